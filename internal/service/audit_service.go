// Package service orchestrates whole audit requests: parse uploads, run the
// engine, render and store report artifacts, and persist run history. It is
// the boundary layer around the audit core; all file I/O happens here.
package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fitops/auditor/internal/audit"
	"github.com/fitops/auditor/internal/domain"
	"github.com/fitops/auditor/internal/metrics"
	"github.com/fitops/auditor/internal/report"
	"github.com/fitops/auditor/internal/repository"
	"github.com/fitops/auditor/internal/rules"
	"github.com/fitops/auditor/internal/stats"
	"github.com/fitops/auditor/internal/table"
)

// Upload is one file received from a caller.
type Upload struct {
	Filename string
	Data     []byte
}

// FileResult summarises one file's outcome within a batch response.
type FileResult struct {
	RunID          string  `json:"run_id,omitempty"`
	Filename       string  `json:"filename"`
	Error          string  `json:"error,omitempty"`
	TotalRecords   int     `json:"total_records"`
	FlaggedCount   int     `json:"flagged_count"`
	CleanCount     int     `json:"clean_count"`
	FlaggedPercent float64 `json:"flagged_percent"`
	TotalImpact    float64 `json:"total_financial_impact"`
	ReportFile     string  `json:"report_file,omitempty"`
}

// BatchResponse is the full outcome of one audit request.
type BatchResponse struct {
	Files      []FileResult          `json:"files"`
	Merged     *stats.Summary        `json:"merged,omitempty"`
	Statistics []*stats.Summary      `json:"-"`
	Results    []*domain.AuditResult `json:"-"`
}

// Service wires the audit engine to its collaborators.
type Service struct {
	cfg        *rules.Config
	engine     *audit.Engine
	runRepo    *repository.RunRepo
	collector  *metrics.Collector
	outputsDir string
}

// NewService creates the audit service. runRepo and collector may be nil for
// one-shot CLI use.
func NewService(cfg *rules.Config, runRepo *repository.RunRepo, collector *metrics.Collector, outputsDir string) *Service {
	return &Service{
		cfg:        cfg,
		engine:     audit.NewEngine(),
		runRepo:    runRepo,
		collector:  collector,
		outputsDir: outputsDir,
	}
}

// Rules exposes the loaded configuration (read-only).
func (s *Service) Rules() *rules.Config {
	return s.cfg
}

// AuditBatch audits a batch of uploaded files. A failed file is reported in
// its FileResult while the rest of the batch completes. When category is
// non-empty it overrides each record's own membership category, matching the
// behavior of auditing a single-category export.
func (s *Service) AuditBatch(uploads []Upload, category string) (*BatchResponse, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	resp := &BatchResponse{}
	var tables []*table.Table
	parseErrs := map[string]error{}

	for _, up := range uploads {
		tbl, err := table.Read(up.Data, up.Filename)
		if err != nil {
			parseErrs[up.Filename] = err
			continue
		}
		if category != "" {
			for _, rec := range tbl.Records {
				rec.Category = category
			}
		}
		tables = append(tables, tbl)
	}

	batch := s.engine.RunBatch(tables, s.cfg)

	// Report parse failures first, in upload order.
	for _, up := range uploads {
		if err, ok := parseErrs[up.Filename]; ok {
			resp.Files = append(resp.Files, FileResult{Filename: up.Filename, Error: err.Error()})
			if s.collector != nil {
				s.collector.ObserveFailedTable()
			}
		}
	}

	// Outcomes are one per table, in table order; filenames may repeat across
	// uploads, so tables are correlated by index.
	for i, outcome := range batch.Outcomes {
		fr := FileResult{Filename: outcome.SourceFile}
		if !outcome.OK() {
			fr.Error = outcome.Err.Error()
			if s.collector != nil {
				s.collector.ObserveFailedTable()
			}
			resp.Files = append(resp.Files, fr)
			continue
		}

		started := time.Now()
		res := outcome.Result
		sum := stats.Analyze(res, stats.Options{})

		artifact, err := report.Render(tables[i], res, sum)
		if err != nil {
			fr.Error = fmt.Sprintf("render report: %v", err)
			resp.Files = append(resp.Files, fr)
			continue
		}

		runID := uuid.NewString()
		artifactPath, err := s.storeArtifact(artifact)
		if err != nil {
			log.WithError(err).WithField("file", outcome.SourceFile).Warn("Failed to store report artifact")
		}

		if s.runRepo != nil {
			run := &domain.AuditRun{
				ID:             runID,
				SourceFile:     res.SourceFile,
				Category:       categoryLabel(category),
				TotalRecords:   res.TotalRecords,
				FlaggedCount:   res.FlaggedCount,
				CleanCount:     res.CleanCount,
				FlaggedPercent: res.FlaggedPercent,
				TotalImpact:    res.TotalImpact,
				ArtifactPath:   artifactPath,
				CreatedAt:      time.Now().UTC(),
			}
			if err := s.runRepo.Insert(run, flaggedMembers(runID, res)); err != nil {
				log.WithError(err).WithField("run", runID).Warn("Failed to persist audit run")
			}
		}

		if s.collector != nil {
			s.collector.ObserveResult(res, time.Since(started).Seconds())
		}

		fr.RunID = runID
		fr.TotalRecords = res.TotalRecords
		fr.FlaggedCount = res.FlaggedCount
		fr.CleanCount = res.CleanCount
		fr.FlaggedPercent = res.FlaggedPercent
		fr.TotalImpact = res.TotalImpact
		fr.ReportFile = artifact.Filename
		resp.Files = append(resp.Files, fr)

		resp.Results = append(resp.Results, res)
		resp.Statistics = append(resp.Statistics, sum)
	}

	if batch.SucceededCount() > 1 {
		merged := batch.Merged()
		resp.Merged = stats.Analyze(merged, stats.Options{})

		if artifact, err := report.RenderConsolidated(batch); err == nil {
			if _, err := s.storeArtifact(artifact); err != nil {
				log.WithError(err).Warn("Failed to store consolidated report")
			}
		} else {
			log.WithError(err).Warn("Failed to render consolidated report")
		}
	}

	return resp, nil
}

// storeArtifact writes the report into the outputs directory and returns its
// path. A missing outputs dir disables storage.
func (s *Service) storeArtifact(a *report.Artifact) (string, error) {
	if s.outputsDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.outputsDir, 0o755); err != nil {
		return "", fmt.Errorf("create outputs dir: %w", err)
	}
	path := filepath.Join(s.outputsDir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

func flaggedMembers(runID string, res *domain.AuditResult) []domain.FlaggedMember {
	var out []domain.FlaggedMember
	for _, v := range res.Verdicts {
		if !v.Flagged {
			continue
		}
		out = append(out, domain.FlaggedMember{
			RunID:           runID,
			MemberID:        v.MemberID,
			MemberName:      v.MemberName,
			FlagCount:       len(v.Violations),
			Notes:           v.Notes(),
			FinancialImpact: v.FinancialImpact,
		})
	}
	return out
}

func categoryLabel(category string) string {
	if category == "" {
		return "auto"
	}
	return category
}
