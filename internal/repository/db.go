package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id TEXT PRIMARY KEY,
			source_file TEXT NOT NULL,
			category TEXT NOT NULL,
			total_records INTEGER NOT NULL,
			flagged_count INTEGER NOT NULL,
			clean_count INTEGER NOT NULL,
			flagged_percent REAL NOT NULL,
			total_impact REAL NOT NULL,
			artifact_path TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_created_at ON audit_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_source_file ON audit_runs(source_file)`,

		`CREATE TABLE IF NOT EXISTS flagged_members (
			run_id TEXT NOT NULL,
			member_id TEXT NOT NULL,
			member_name TEXT NOT NULL,
			flag_count INTEGER NOT NULL,
			notes TEXT NOT NULL,
			financial_impact REAL NOT NULL,
			FOREIGN KEY (run_id) REFERENCES audit_runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flagged_members_run ON flagged_members(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_flagged_members_member ON flagged_members(member_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
