package domain

import "strings"

// NotesSeparator joins violation messages into the report Notes column.
const NotesSeparator = " | "

// Violation is a single rule failure on one record.
type Violation struct {
	// Category is the value-free grouping key (rule kind + field outcome),
	// e.g. "dues_low", "date_mismatch", "balance_credit".
	Category string `json:"category"`
	// Message is the human-readable description including the observed value.
	Message string `json:"message"`
	// Impact is the monetary deviation this violation contributes to the
	// record's financial impact. Zero for non-monetary and missing-value
	// violations.
	Impact float64 `json:"impact"`
}

// Verdict is the result of evaluating one record against one rule set.
// Built once per record per audit run and immutable thereafter.
type Verdict struct {
	Record     *MembershipRecord `json:"-"`
	MemberID   string            `json:"member_id"`
	MemberName string            `json:"member_name"`
	SourceFile string            `json:"source_file,omitempty"`
	RowIndex   int               `json:"row_index"`

	Flagged    bool        `json:"flagged"`
	Violations []Violation `json:"violations,omitempty"`

	// FinancialImpact = DuesImpact + BalanceImpact.
	FinancialImpact float64 `json:"financial_impact"`
	DuesImpact      float64 `json:"dues_impact"`
	BalanceImpact   float64 `json:"balance_impact"`
}

// Notes concatenates violation messages in rule-definition order. Empty for
// clean records.
func (v *Verdict) Notes() string {
	if len(v.Violations) == 0 {
		return ""
	}
	msgs := make([]string, len(v.Violations))
	for i, viol := range v.Violations {
		msgs[i] = viol.Message
	}
	return strings.Join(msgs, NotesSeparator)
}

// AuditResult aggregates one table's audit run. Built incrementally in row
// order and handed off immutable once finalized.
type AuditResult struct {
	SourceFile string `json:"source_file"`

	TotalRecords   int     `json:"total_records"`
	FlaggedCount   int     `json:"flagged_count"`
	CleanCount     int     `json:"clean_count"`
	FlaggedPercent float64 `json:"flagged_percent"`

	TotalImpact   float64 `json:"total_financial_impact"`
	DuesImpact    float64 `json:"total_dues_impact"`
	BalanceImpact float64 `json:"total_balance_impact"`

	FlaggedMemberIDs []string  `json:"flagged_member_ids"`
	Verdicts         []Verdict `json:"verdicts"`
}
