package audit

import (
	log "github.com/sirupsen/logrus"

	"github.com/fitops/auditor/internal/domain"
	"github.com/fitops/auditor/internal/rules"
	"github.com/fitops/auditor/internal/table"
)

// Engine drives audit runs over tables. It is stateless; the rule
// configuration is passed per run so repeated runs and tests stay isolated.
type Engine struct{}

// NewEngine creates an audit engine.
func NewEngine() *Engine {
	return &Engine{}
}

// RunTable audits all rows of one table in input order. It fails fast with a
// MissingColumnsError before any row is evaluated, and with an
// UnknownCategoryError when a row's category resolves to no rule set and no
// default exists. Row-level data problems never fail the run; they are
// recorded on the row's verdict.
func (e *Engine) RunTable(tbl *table.Table, cfg *rules.Config) (*domain.AuditResult, error) {
	if err := tbl.Require(table.RequiredColumns...); err != nil {
		return nil, err
	}

	res := &domain.AuditResult{SourceFile: tbl.SourceFile}

	for i, rec := range tbl.Records {
		var v domain.Verdict
		if rec.Malformed {
			v = Evaluate(rec, nil)
		} else {
			rs, err := cfg.Resolve(rec.Category)
			if err != nil {
				return nil, err
			}
			v = Evaluate(rec, rs)
		}
		v.RowIndex = i
		v.SourceFile = tbl.SourceFile

		res.Verdicts = append(res.Verdicts, v)
		res.TotalRecords++
		if v.Flagged {
			res.FlaggedCount++
			res.FlaggedMemberIDs = append(res.FlaggedMemberIDs, v.MemberID)
		}
		res.TotalImpact += v.FinancialImpact
		res.DuesImpact += v.DuesImpact
		res.BalanceImpact += v.BalanceImpact
	}

	res.CleanCount = res.TotalRecords - res.FlaggedCount
	if res.TotalRecords > 0 {
		res.FlaggedPercent = float64(res.FlaggedCount) / float64(res.TotalRecords) * 100
	}

	log.WithFields(log.Fields{
		"file":    tbl.SourceFile,
		"records": res.TotalRecords,
		"flagged": res.FlaggedCount,
		"impact":  res.TotalImpact,
	}).Info("Audited table")

	return res, nil
}

// TableOutcome is one table's result within a batch: either a completed
// AuditResult or the error that made the table unprocessable.
type TableOutcome struct {
	SourceFile string              `json:"source_file"`
	Result     *domain.AuditResult `json:"result,omitempty"`
	Err        error               `json:"-"`
}

// OK reports whether the table was audited successfully.
func (o TableOutcome) OK() bool {
	return o.Err == nil
}

// BatchResult holds per-table outcomes for one batch invocation, in input
// order.
type BatchResult struct {
	Outcomes []TableOutcome
}

// RunBatch audits multiple tables. A table that cannot be audited is skipped
// with its error recorded while the rest of the batch continues.
func (e *Engine) RunBatch(tables []*table.Table, cfg *rules.Config) *BatchResult {
	batch := &BatchResult{}
	for _, tbl := range tables {
		res, err := e.RunTable(tbl, cfg)
		if err != nil {
			log.WithError(err).WithField("file", tbl.SourceFile).Warn("Skipping table")
		}
		batch.Outcomes = append(batch.Outcomes, TableOutcome{
			SourceFile: tbl.SourceFile,
			Result:     res,
			Err:        err,
		})
	}
	return batch
}

// SucceededCount returns how many tables audited cleanly.
func (b *BatchResult) SucceededCount() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// FailedCount returns how many tables were skipped.
func (b *BatchResult) FailedCount() int {
	return len(b.Outcomes) - b.SucceededCount()
}

// Merged concatenates the successful per-table results into one AuditResult.
// Verdicts keep their per-table source file tags for traceability; per-table
// row order is preserved within the concatenation.
func (b *BatchResult) Merged() *domain.AuditResult {
	merged := &domain.AuditResult{SourceFile: "consolidated"}

	for _, o := range b.Outcomes {
		if !o.OK() {
			continue
		}
		r := o.Result
		merged.Verdicts = append(merged.Verdicts, r.Verdicts...)
		merged.TotalRecords += r.TotalRecords
		merged.FlaggedCount += r.FlaggedCount
		merged.TotalImpact += r.TotalImpact
		merged.DuesImpact += r.DuesImpact
		merged.BalanceImpact += r.BalanceImpact
		merged.FlaggedMemberIDs = append(merged.FlaggedMemberIDs, r.FlaggedMemberIDs...)
	}

	merged.CleanCount = merged.TotalRecords - merged.FlaggedCount
	if merged.TotalRecords > 0 {
		merged.FlaggedPercent = float64(merged.FlaggedCount) / float64(merged.TotalRecords) * 100
	}
	return merged
}
