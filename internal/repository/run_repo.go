package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fitops/auditor/internal/domain"
)

// RunRepo stores audit run summaries and their flagged members. This is the
// storage collaborator of the audit core; the core itself never touches it.
type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert stores a run summary together with its flagged members in one
// transaction.
func (r *RunRepo) Insert(run *domain.AuditRun, flagged []domain.FlaggedMember) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var artifact any
	if run.ArtifactPath != "" {
		artifact = run.ArtifactPath
	}

	_, err = tx.Exec(
		`INSERT INTO audit_runs
		(id, source_file, category, total_records, flagged_count, clean_count,
		 flagged_percent, total_impact, artifact_path, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.SourceFile, run.Category, run.TotalRecords, run.FlaggedCount,
		run.CleanCount, run.FlaggedPercent, run.TotalImpact, artifact,
		run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO flagged_members
		(run_id, member_id, member_name, flag_count, notes, financial_impact)
		VALUES (?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range flagged {
		m := &flagged[i]
		if _, err := stmt.Exec(run.ID, m.MemberID, m.MemberName, m.FlagCount,
			m.Notes, m.FinancialImpact); err != nil {
			return fmt.Errorf("insert flagged member %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns one run, or nil when it does not exist.
func (r *RunRepo) GetByID(id string) (*domain.AuditRun, error) {
	row := r.db.QueryRow(
		`SELECT id, source_file, category, total_records, flagged_count,
		        clean_count, flagged_percent, total_impact, artifact_path, created_at
		 FROM audit_runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// List returns the most recent runs, newest first.
func (r *RunRepo) List(limit int) ([]domain.AuditRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, source_file, category, total_records, flagged_count,
		        clean_count, flagged_percent, total_impact, artifact_path, created_at
		 FROM audit_runs ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.AuditRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// FlaggedMembers returns the flagged members recorded for a run, in insert
// order.
func (r *RunRepo) FlaggedMembers(runID string) ([]domain.FlaggedMember, error) {
	rows, err := r.db.Query(
		`SELECT run_id, member_id, member_name, flag_count, notes, financial_impact
		 FROM flagged_members WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.FlaggedMember
	for rows.Next() {
		var m domain.FlaggedMember
		if err := rows.Scan(&m.RunID, &m.MemberID, &m.MemberName, &m.FlagCount,
			&m.Notes, &m.FinancialImpact); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// DashboardTotals aggregates across all stored runs.
type DashboardTotals struct {
	TotalRuns      int     `json:"total_runs"`
	TotalRecords   int     `json:"total_records"`
	TotalFlagged   int     `json:"total_flagged"`
	TotalImpact    float64 `json:"total_financial_impact"`
	FlaggedPercent float64 `json:"flagged_percent"`
}

func (r *RunRepo) Dashboard() (*DashboardTotals, error) {
	var t DashboardTotals
	err := r.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(total_records), 0),
		        COALESCE(SUM(flagged_count), 0),
		        COALESCE(SUM(total_impact), 0)
		 FROM audit_runs`,
	).Scan(&t.TotalRuns, &t.TotalRecords, &t.TotalFlagged, &t.TotalImpact)
	if err != nil {
		return nil, err
	}
	if t.TotalRecords > 0 {
		t.FlaggedPercent = float64(t.TotalFlagged) / float64(t.TotalRecords) * 100
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.AuditRun, error) {
	var run domain.AuditRun
	var artifact sql.NullString
	var createdAt string

	if err := row.Scan(&run.ID, &run.SourceFile, &run.Category, &run.TotalRecords,
		&run.FlaggedCount, &run.CleanCount, &run.FlaggedPercent, &run.TotalImpact,
		&artifact, &createdAt); err != nil {
		return nil, err
	}
	run.ArtifactPath = artifact.String

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = ts
	return &run, nil
}
