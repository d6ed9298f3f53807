package domain

import "time"

// AuditRun is the stored summary of one completed file audit. Persistence is
// a collaborator concern; the audit core only produces the values.
type AuditRun struct {
	ID             string    `json:"id"`
	SourceFile     string    `json:"source_file"`
	Category       string    `json:"category"`
	TotalRecords   int       `json:"total_records"`
	FlaggedCount   int       `json:"flagged_count"`
	CleanCount     int       `json:"clean_count"`
	FlaggedPercent float64   `json:"flagged_percent"`
	TotalImpact    float64   `json:"total_financial_impact"`
	ArtifactPath   string    `json:"artifact_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FlaggedMember is one flagged record persisted alongside its run, enough to
// review past audits without re-parsing the source file.
type FlaggedMember struct {
	RunID           string  `json:"run_id"`
	MemberID        string  `json:"member_id"`
	MemberName      string  `json:"member_name"`
	FlagCount       int     `json:"flag_count"`
	Notes           string  `json:"notes"`
	FinancialImpact float64 `json:"financial_impact"`
}
