package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fitops/auditor/internal/metrics"
	"github.com/fitops/auditor/internal/repository"
	"github.com/fitops/auditor/internal/service"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	auditSvc *service.Service,
	runRepo *repository.RunRepo,
	collector *metrics.Collector,
) http.Handler {
	h := &Handlers{
		auditSvc: auditSvc,
		runRepo:  runRepo,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Audits.
		r.Post("/audits", h.CreateAudit)
		r.Get("/audits", h.ListRuns)
		r.Get("/audits/{id}", h.GetRun)
		r.Get("/audits/{id}/report", h.GetRunReport)

		// Rules.
		r.Get("/rules/categories", h.GetRuleCategories)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	r.Method(http.MethodGet, "/metrics", collector.Handler())

	return r
}
