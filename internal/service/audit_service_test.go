package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fitops/auditor/internal/metrics"
	"github.com/fitops/auditor/internal/repository"
	"github.com/fitops/auditor/internal/rules"
)

const membersCSV = "Last Name,First Name,Member #,Join Date,Exp Date,Type,Pay Type,Dues Amt,Cycle,Balance,End Draft,Sales Rep\n" +
	"Doe,Jane,M001,1/1/24,12/31/24,1 Year Paid In Full,ANNUAL BILL,650.00,1,0.00,12/31/99,Alice\n" +
	"Smith,John,M002,1/1/24,12/31/24,1 Year Paid In Full,NO PAY,0.00,1,0.00,12/31/99,Bob\n"

func testService(t *testing.T) (*Service, *repository.RunRepo, string) {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewRunRepo(db)
	outputs := t.TempDir()
	svc := NewService(rules.Default(), repo, metrics.NewCollector(), outputs)
	return svc, repo, outputs
}

func TestAuditBatch_SingleFile(t *testing.T) {
	svc, repo, outputs := testService(t)

	resp, err := svc.AuditBatch([]Upload{{Filename: "members.csv", Data: []byte(membersCSV)}}, "")
	require.NoError(t, err)

	require.Len(t, resp.Files, 1)
	fr := resp.Files[0]
	assert.Empty(t, fr.Error)
	assert.NotEmpty(t, fr.RunID)
	assert.Equal(t, 2, fr.TotalRecords)
	assert.Equal(t, 1, fr.FlaggedCount)
	assert.InDelta(t, 600.0, fr.TotalImpact, 1e-9)
	assert.Equal(t, "members_Audit_Report.xlsx", fr.ReportFile)
	assert.Nil(t, resp.Merged, "no consolidated stats for a single file")

	// The artifact landed on disk.
	_, err = os.Stat(filepath.Join(outputs, fr.ReportFile))
	require.NoError(t, err)

	// The run and its flagged members were persisted.
	run, err := repo.GetByID(fr.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "members.csv", run.SourceFile)
	assert.Equal(t, "auto", run.Category)

	members, err := repo.FlaggedMembers(fr.RunID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "M002", members[0].MemberID)
	assert.Equal(t, "John Smith", members[0].MemberName)
	assert.Equal(t, "Dues < $600 ($0.00) | Pay Type: NO PAY", members[0].Notes)
}

func TestAuditBatch_MultipleFilesGetMergedStats(t *testing.T) {
	svc, _, outputs := testService(t)

	resp, err := svc.AuditBatch([]Upload{
		{Filename: "a.csv", Data: []byte(membersCSV)},
		{Filename: "b.csv", Data: []byte(membersCSV)},
	}, "")
	require.NoError(t, err)

	require.Len(t, resp.Files, 2)
	require.NotNil(t, resp.Merged)
	assert.Equal(t, 4, resp.Merged.TotalRecords)
	assert.Equal(t, 2, resp.Merged.FlaggedCount)

	_, err = os.Stat(filepath.Join(outputs, "Consolidated_Audit_Report.xlsx"))
	require.NoError(t, err)
}

func TestAuditBatch_DuplicateFilenames(t *testing.T) {
	svc, _, outputs := testService(t)

	// Same upload name, different header shape. Each report must reproduce
	// its own table, not the first table that happened to share the name.
	snakeCSV := "member_id,join_date,expiration_date,pay_type,dues_amount,cycle,balance,end_draft\n" +
		"M900,2024-01-01,2024-12-31,ANNUAL BILL,650,1,0,1999-12-31\n"

	resp, err := svc.AuditBatch([]Upload{
		{Filename: "members.csv", Data: []byte(membersCSV)},
		{Filename: "members.csv", Data: []byte(snakeCSV)},
	}, "")
	require.NoError(t, err)

	require.Len(t, resp.Files, 2)
	assert.Equal(t, 2, resp.Files[0].TotalRecords)
	assert.Equal(t, 1, resp.Files[1].TotalRecords)

	// The shared artifact name means the second render wins on disk; its
	// header row must be the second upload's header.
	f, err := excelize.OpenFile(filepath.Join(outputs, "members_Audit_Report.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Audit Report")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "member_id", rows[0][0])
	assert.Equal(t, "M900", rows[1][0])
}

func TestAuditBatch_UnsupportedFileReported(t *testing.T) {
	svc, _, _ := testService(t)

	resp, err := svc.AuditBatch([]Upload{
		{Filename: "notes.txt", Data: []byte("hello")},
		{Filename: "members.csv", Data: []byte(membersCSV)},
	}, "")
	require.NoError(t, err)

	require.Len(t, resp.Files, 2)
	assert.Equal(t, "notes.txt", resp.Files[0].Filename)
	assert.Contains(t, resp.Files[0].Error, "unsupported file type")
	assert.Empty(t, resp.Files[1].Error)
}

func TestAuditBatch_CategoryOverride(t *testing.T) {
	svc, repo, _ := testService(t)

	// Rows carry no Type column; the override selects the rule set.
	csv := "Member #,Join Date,Exp Date,Pay Type,Dues Amt,Cycle,Balance,End Draft\n" +
		"M001,1/1/24,12/31/24,ANNUAL BILL,650.00,1,0.00,12/31/99\n"

	resp, err := svc.AuditBatch([]Upload{{Filename: "typed.csv", Data: []byte(csv)}},
		"1 Year Paid In Full")
	require.NoError(t, err)

	require.Len(t, resp.Files, 1)
	assert.Empty(t, resp.Files[0].Error)
	assert.Equal(t, 1, resp.Files[0].TotalRecords)

	run, err := repo.GetByID(resp.Files[0].RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "1 Year Paid In Full", run.Category)
}

func TestAuditBatch_NoFiles(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.AuditBatch(nil, "")
	assert.Error(t, err)
}

func TestAuditBatch_MissingColumnsReported(t *testing.T) {
	svc, _, _ := testService(t)

	resp, err := svc.AuditBatch([]Upload{
		{Filename: "thin.csv", Data: []byte("Member #\nM001\n")},
	}, "")
	require.NoError(t, err)

	require.Len(t, resp.Files, 1)
	assert.Contains(t, resp.Files[0].Error, "missing required columns")
}

func TestAuditBatch_WorksWithoutRepoAndCollector(t *testing.T) {
	svc := NewService(rules.Default(), nil, nil, "")

	resp, err := svc.AuditBatch([]Upload{{Filename: "members.csv", Data: []byte(membersCSV)}}, "")
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Empty(t, resp.Files[0].Error)
	assert.Equal(t, 2, resp.Files[0].TotalRecords)
}
