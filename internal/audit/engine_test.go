package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitops/auditor/internal/domain"
	"github.com/fitops/auditor/internal/rules"
	"github.com/fitops/auditor/internal/table"
)

func testTable(t *testing.T, rows ...[]string) *table.Table {
	t.Helper()
	all := append([][]string{sampleHeader}, rows...)
	tbl, err := table.FromRows(all, "members.csv")
	require.NoError(t, err)
	return tbl
}

func TestRunTable_EndToEnd(t *testing.T) {
	// (a) fully compliant, (b) zero dues on NO PAY billing, (c) missing
	// expiration date.
	rowB := cleanRow()
	rowB[2] = "M002"
	rowB[6] = "NO PAY"
	rowB[7] = "0.00"

	rowC := cleanRow()
	rowC[2] = "M003"
	rowC[4] = ""

	tbl := testTable(t, cleanRow(), rowB, rowC)

	res, err := NewEngine().RunTable(tbl, rules.Default())
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalRecords)
	assert.Equal(t, 2, res.FlaggedCount)
	assert.Equal(t, 1, res.CleanCount)
	assert.InDelta(t, 66.7, res.FlaggedPercent, 0.1)
	assert.Equal(t, []string{"M002", "M003"}, res.FlaggedMemberIDs)

	// Only (b)'s dues shortfall counts: the missing date on (c) is not a
	// monetary violation.
	assert.InDelta(t, 600.0, res.TotalImpact, 1e-9)
	assert.InDelta(t, 600.0, res.DuesImpact, 1e-9)
	assert.Zero(t, res.BalanceImpact)

	require.Len(t, res.Verdicts, 3)
	assert.False(t, res.Verdicts[0].Flagged)
	assert.Len(t, res.Verdicts[1].Violations, 2)
	assert.Equal(t, "Missing date", res.Verdicts[2].Violations[0].Message)
}

func TestRunTable_PreservesRowOrder(t *testing.T) {
	var rows [][]string
	ids := []string{"M010", "M011", "M012", "M013", "M014"}
	for _, id := range ids {
		row := cleanRow()
		row[2] = id
		rows = append(rows, row)
	}

	res, err := NewEngine().RunTable(testTable(t, rows...), rules.Default())
	require.NoError(t, err)

	require.Len(t, res.Verdicts, len(ids))
	for i, v := range res.Verdicts {
		assert.Equal(t, ids[i], v.MemberID)
		assert.Equal(t, i, v.RowIndex)
		assert.Equal(t, "members.csv", v.SourceFile)
	}
}

func TestRunTable_EmptyTable(t *testing.T) {
	res, err := NewEngine().RunTable(testTable(t), rules.Default())
	require.NoError(t, err)

	assert.Zero(t, res.TotalRecords)
	assert.Zero(t, res.FlaggedCount)
	assert.Zero(t, res.FlaggedPercent)
	assert.Empty(t, res.Verdicts)
}

func TestRunTable_MissingColumns(t *testing.T) {
	header := []string{"Last Name", "First Name", "Member #", "Join Date"}
	tbl, err := table.FromRows([][]string{header, {"Doe", "Jane", "M001", "1/1/24"}}, "partial.csv")
	require.NoError(t, err)

	_, err = NewEngine().RunTable(tbl, rules.Default())

	var missingErr *domain.MissingColumnsError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "partial.csv", missingErr.SourceFile)
	assert.Contains(t, missingErr.Columns, domain.FieldBalance)
	assert.Contains(t, missingErr.Columns, domain.FieldEndDraft)
	assert.NotContains(t, missingErr.Columns, domain.FieldJoinDate)
}

func TestRunTable_UnknownCategoryNoDefault(t *testing.T) {
	cfg, err := rules.Load([]byte(`
rule_sets:
  Annual:
    rules:
      - kind: min_amount
        label: Dues
        field: dues_amount
        threshold: 600
`))
	require.NoError(t, err)

	row := cleanRow()
	row[5] = "Monthly"

	_, err = NewEngine().RunTable(testTable(t, row), cfg)

	var unknownErr *domain.UnknownCategoryError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "Monthly", unknownErr.Category)
}

func TestRunBatch_SkipsFailedTableAndContinues(t *testing.T) {
	good := testTable(t, cleanRow())

	badHeader := []string{"Member #"}
	bad, err := table.FromRows([][]string{badHeader, {"M002"}}, "bad.csv")
	require.NoError(t, err)

	batch := NewEngine().RunBatch([]*table.Table{bad, good}, rules.Default())

	require.Len(t, batch.Outcomes, 2)
	assert.False(t, batch.Outcomes[0].OK())
	assert.True(t, batch.Outcomes[1].OK())
	assert.Equal(t, 1, batch.SucceededCount())
	assert.Equal(t, 1, batch.FailedCount())
}

func TestBatchResult_Merged(t *testing.T) {
	rowB := cleanRow()
	rowB[2] = "M050"
	rowB[7] = "500.00"

	tblA, err := table.FromRows([][]string{sampleHeader, cleanRow()}, "a.csv")
	require.NoError(t, err)
	tblB, err := table.FromRows([][]string{sampleHeader, rowB}, "b.csv")
	require.NoError(t, err)

	batch := NewEngine().RunBatch([]*table.Table{tblA, tblB}, rules.Default())
	merged := batch.Merged()

	assert.Equal(t, 2, merged.TotalRecords)
	assert.Equal(t, 1, merged.FlaggedCount)
	assert.InDelta(t, 100.0, merged.TotalImpact, 1e-9)

	// Verdicts keep their per-table source tags.
	require.Len(t, merged.Verdicts, 2)
	assert.Equal(t, "a.csv", merged.Verdicts[0].SourceFile)
	assert.Equal(t, "b.csv", merged.Verdicts[1].SourceFile)
}
