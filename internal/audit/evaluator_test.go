package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitops/auditor/internal/domain"
	"github.com/fitops/auditor/internal/rules"
	"github.com/fitops/auditor/internal/table"
)

var sampleHeader = []string{
	"Last Name", "First Name", "Member #", "Join Date", "Exp Date", "Type",
	"Pay Type", "Dues Amt", "Cycle", "Balance", "End Draft", "Sales Rep",
}

// cleanRow is a fully compliant Year Paid in Full record under the default
// rules: exactly 365 days between join and expiration, dues above minimum,
// annual billing, sentinel end draft, cycle 1, zero balance.
func cleanRow() []string {
	return []string{
		"Doe", "Jane", "M001", "1/1/24", "12/31/24", "1 Year Paid In Full",
		"ANNUAL BILL", "650.00", "1", "0.00", "12/31/99", "Alice",
	}
}

func record(t *testing.T, row []string) *domain.MembershipRecord {
	t.Helper()
	tbl, err := table.FromRows([][]string{sampleHeader, row}, "test.csv")
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	return tbl.Records[0]
}

func defaultRuleSet(t *testing.T) *domain.RuleSet {
	t.Helper()
	rs, err := rules.Default().Resolve("1 Year Paid In Full")
	require.NoError(t, err)
	return rs
}

func TestEvaluate_CleanRecord(t *testing.T) {
	v := Evaluate(record(t, cleanRow()), defaultRuleSet(t))

	assert.False(t, v.Flagged)
	assert.Empty(t, v.Violations)
	assert.Empty(t, v.Notes())
	assert.Zero(t, v.FinancialImpact)
	assert.Equal(t, "M001", v.MemberID)
	assert.Equal(t, "Jane Doe", v.MemberName)
}

func TestEvaluate_DuesMinimum(t *testing.T) {
	t.Run("exactly at threshold is clean", func(t *testing.T) {
		row := cleanRow()
		row[7] = "600.00"
		v := Evaluate(record(t, row), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("below threshold flags with shortfall impact", func(t *testing.T) {
		row := cleanRow()
		row[7] = "599.99"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "dues_low", v.Violations[0].Category)
		assert.Equal(t, "Dues < $600 ($599.99)", v.Violations[0].Message)
		assert.InDelta(t, 0.01, v.FinancialImpact, 1e-9)
		assert.InDelta(t, 0.01, v.DuesImpact, 1e-9)
	})

	t.Run("comma-grouped amount parses", func(t *testing.T) {
		row := cleanRow()
		row[7] = `1,200.00`
		v := Evaluate(record(t, row), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("unparseable dues flag with zero impact", func(t *testing.T) {
		row := cleanRow()
		row[7] = "n/a"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "dues_invalid", v.Violations[0].Category)
		assert.Equal(t, "Invalid dues amount", v.Violations[0].Message)
		assert.Zero(t, v.FinancialImpact)
	})
}

func TestEvaluate_BalanceExactAmount(t *testing.T) {
	t.Run("zero is clean", func(t *testing.T) {
		v := Evaluate(record(t, cleanRow()), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("within epsilon is clean", func(t *testing.T) {
		row := cleanRow()
		row[9] = "0.004"
		v := Evaluate(record(t, row), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("just past epsilon flags as debit", func(t *testing.T) {
		row := cleanRow()
		row[9] = "0.006"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "balance_debit", v.Violations[0].Category)
		assert.Contains(t, v.Violations[0].Message, "(debit)")
		assert.InDelta(t, 0.006, v.BalanceImpact, 1e-9)
	})

	t.Run("negative balance flags as credit", func(t *testing.T) {
		row := cleanRow()
		row[9] = "-25.00"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "balance_credit", v.Violations[0].Category)
		assert.Equal(t, "Balance: $-25.00 (credit)", v.Violations[0].Message)
		assert.InDelta(t, 25.0, v.FinancialImpact, 1e-9)
	})
}

func TestEvaluate_DateDifference(t *testing.T) {
	t.Run("365 days is clean", func(t *testing.T) {
		row := cleanRow()
		row[3], row[4] = "1/1/24", "12/31/24"
		v := Evaluate(record(t, row), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("366 days is clean", func(t *testing.T) {
		row := cleanRow()
		row[3], row[4] = "1/1/24", "1/1/25"
		v := Evaluate(record(t, row), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("367 days flags", func(t *testing.T) {
		row := cleanRow()
		row[3], row[4] = "1/1/24", "1/2/25"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "date_mismatch", v.Violations[0].Category)
		assert.Equal(t, "Join/Exp dates not 365-366 days apart (367 days)", v.Violations[0].Message)
	})

	t.Run("missing expiration date flags as missing", func(t *testing.T) {
		row := cleanRow()
		row[4] = ""
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "date_invalid", v.Violations[0].Category)
		assert.Equal(t, "Missing date", v.Violations[0].Message)
		assert.Zero(t, v.FinancialImpact)
	})

	t.Run("garbled date flags as invalid format", func(t *testing.T) {
		row := cleanRow()
		row[4] = "13/45/xx"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		assert.Equal(t, "Invalid date format", v.Violations[0].Message)
	})
}

func TestEvaluate_PayType(t *testing.T) {
	t.Run("case-insensitive match is clean", func(t *testing.T) {
		row := cleanRow()
		row[6] = "annual bill"
		v := Evaluate(record(t, row), defaultRuleSet(t))
		assert.False(t, v.Flagged)
	})

	t.Run("mismatch flags", func(t *testing.T) {
		row := cleanRow()
		row[6] = "MONTHLY"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		require.Len(t, v.Violations, 1)
		assert.Equal(t, "pay_type_wrong", v.Violations[0].Category)
		assert.Equal(t, "Pay Type: MONTHLY", v.Violations[0].Message)
	})
}

func TestEvaluate_EndDraftAndCycle(t *testing.T) {
	t.Run("wrong end draft", func(t *testing.T) {
		row := cleanRow()
		row[10] = "6/30/25"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		assert.Equal(t, "end_draft_wrong", v.Violations[0].Category)
		assert.Equal(t, "End Draft: 6/30/25", v.Violations[0].Message)
	})

	t.Run("wrong cycle", func(t *testing.T) {
		row := cleanRow()
		row[8] = "12"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		assert.Equal(t, "cycle_wrong", v.Violations[0].Category)
		assert.Equal(t, "Cycle: 12", v.Violations[0].Message)
	})

	t.Run("invalid cycle", func(t *testing.T) {
		row := cleanRow()
		row[8] = "one"
		v := Evaluate(record(t, row), defaultRuleSet(t))

		require.True(t, v.Flagged)
		assert.Equal(t, "cycle_invalid", v.Violations[0].Category)
		assert.Equal(t, "Invalid cycle value", v.Violations[0].Message)
	})
}

func TestEvaluate_CollectsAllViolations(t *testing.T) {
	row := cleanRow()
	row[6] = "NO PAY"
	row[7] = "0.00"
	v := Evaluate(record(t, row), defaultRuleSet(t))

	require.True(t, v.Flagged)
	require.Len(t, v.Violations, 2)

	// Violations arrive in rule-definition order: dues before pay type.
	assert.Equal(t, "dues_low", v.Violations[0].Category)
	assert.Equal(t, "pay_type_wrong", v.Violations[1].Category)
	assert.Equal(t, "Dues < $600 ($0.00) | Pay Type: NO PAY", v.Notes())
	assert.InDelta(t, 600.0, v.FinancialImpact, 1e-9)
}

func TestEvaluate_Idempotent(t *testing.T) {
	rec := record(t, func() []string {
		row := cleanRow()
		row[7] = "100.00"
		row[9] = "50.00"
		return row
	}())
	rs := defaultRuleSet(t)

	first := Evaluate(rec, rs)
	second := Evaluate(rec, rs)
	assert.Equal(t, first, second)
}

func TestEvaluate_MalformedRecord(t *testing.T) {
	rec := &domain.MembershipRecord{Malformed: true}
	v := Evaluate(rec, nil)

	require.True(t, v.Flagged)
	require.Len(t, v.Violations, 1)
	assert.Equal(t, CategoryUnparseable, v.Violations[0].Category)
	assert.Equal(t, "Unparseable record", v.Violations[0].Message)
	assert.Zero(t, v.FinancialImpact)
}
