// Package metrics exposes audit throughput counters on a private prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitops/auditor/internal/domain"
)

type Collector struct {
	registry *prometheus.Registry

	auditsTotal     prometheus.Counter
	tablesFailed    prometheus.Counter
	recordsAudited  prometheus.Counter
	recordsFlagged  prometheus.Counter
	financialImpact prometheus.Counter
	auditDuration   prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		auditsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "audits_total",
			Help: "Total number of completed file audits",
		}),
		tablesFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "audit_tables_failed_total",
			Help: "Total number of tables skipped due to table-level errors",
		}),
		recordsAudited: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Total number of membership records evaluated",
		}),
		recordsFlagged: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "audit_records_flagged_total",
			Help: "Total number of membership records flagged",
		}),
		financialImpact: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "audit_financial_impact_dollars_total",
			Help: "Cumulative financial impact surfaced by audits",
		}),
		auditDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_duration_seconds",
			Help:    "Time taken to audit one file",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveResult records one completed file audit.
func (c *Collector) ObserveResult(res *domain.AuditResult, seconds float64) {
	c.auditsTotal.Inc()
	c.recordsAudited.Add(float64(res.TotalRecords))
	c.recordsFlagged.Add(float64(res.FlaggedCount))
	c.financialImpact.Add(res.TotalImpact)
	c.auditDuration.Observe(seconds)
}

// ObserveFailedTable records a table skipped with a table-level error.
func (c *Collector) ObserveFailedTable() {
	c.tablesFailed.Inc()
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
