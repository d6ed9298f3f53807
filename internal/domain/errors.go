package domain

import (
	"fmt"
	"strings"
)

// ConfigError reports a malformed rule configuration. It is fatal to startup:
// no audit may run against an ambiguous rule set.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return "rule configuration error: " + e.Detail
}

// MissingColumnsError reports an input table that lacks required columns.
// Fatal for that table only; other tables in the batch continue.
type MissingColumnsError struct {
	SourceFile string
	Columns    []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s",
		e.SourceFile, strings.Join(e.Columns, ", "))
}

// UnknownCategoryError reports a record category that resolves to no rule set
// when no default exists. Fatal for that table: evaluating against the wrong
// rules would silently corrupt the audit.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	if e.Category == "" {
		return "no rule set for records without a membership category and no default configured"
	}
	return fmt.Sprintf("no rule set for membership category %q and no default configured", e.Category)
}
