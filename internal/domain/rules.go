package domain

import "time"

// RuleKind discriminates the closed set of check variants. Kind-specific
// parameters are validated once at configuration load, so evaluation can
// switch on the kind without re-checking shapes.
type RuleKind string

const (
	KindDateDiffRange     RuleKind = "date_diff_range"
	KindMinAmount         RuleKind = "min_amount"
	KindExactAmount       RuleKind = "exact_amount"
	KindCategoricalEquals RuleKind = "categorical_equals"
	KindDateEquals        RuleKind = "date_equals"
	KindIntegerEquals     RuleKind = "integer_equals"
)

// RuleDefinition is one field-level check. Which parameters are meaningful
// depends on Kind; the rules loader guarantees the required ones are set.
type RuleDefinition struct {
	Kind  RuleKind `json:"kind"`
	Label string   `json:"label"`
	Field string   `json:"field"`

	// date_diff_range
	SecondField string `json:"second_field,omitempty"`
	MinDays     int    `json:"min_days,omitempty"`
	MaxDays     int    `json:"max_days,omitempty"`

	// min_amount
	Threshold float64 `json:"threshold,omitempty"`

	// exact_amount
	ExpectedAmount float64 `json:"expected_amount,omitempty"`

	// categorical_equals
	ExpectedText  string `json:"expected_text,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`

	// date_equals
	ExpectedDate time.Time `json:"expected_date,omitempty"`

	// integer_equals
	ExpectedInt int `json:"expected_int,omitempty"`
}

// RuleSet is the collection of checks for one membership category. Immutable
// once loaded; safe to share across concurrent audit runs.
type RuleSet struct {
	Name    string           `json:"name"`
	Enabled bool             `json:"enabled"`
	Rules   []RuleDefinition `json:"rules"`
}
