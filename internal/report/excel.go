// Package report renders audit results into formatted Excel artifacts: the
// original table reproduced unmodified plus Status and Notes columns, flagged
// rows highlighted, and a summary sheet with aggregate statistics.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/fitops/auditor/internal/audit"
	"github.com/fitops/auditor/internal/domain"
	"github.com/fitops/auditor/internal/stats"
	"github.com/fitops/auditor/internal/table"
)

// Status display strings. The underlying flag state is the Verdict boolean;
// these are presentation only.
const (
	StatusFlagged = "⚠️ FLAGGED"
	StatusOK      = "✅ OK"
)

const (
	sheetSummary = "Summary"
	sheetAudit   = "Audit Report"

	highlightColor = "FFFF00" // yellow fill on flagged rows
	headerColor    = "D3D3D3" // gray header background

	maxColWidth = 50
)

// Artifact is a rendered report: spreadsheet bytes plus a suggested filename.
// The core never writes it to disk; storage is the caller's concern.
type Artifact struct {
	Filename string
	Data     []byte
}

type styleIDs struct {
	header    int
	highlight int
	title     int
	section   int
	bold      int
	redBold   int
}

// Render produces the audit report workbook for one table. Output is
// deterministic for identical inputs, modulo workbook timestamp metadata.
// Pass a nil summary to have one computed.
func Render(tbl *table.Table, res *domain.AuditResult, sum *stats.Summary) (*Artifact, error) {
	if sum == nil {
		sum = stats.Analyze(res, stats.Options{})
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	// The default sheet becomes Summary so it is first in the workbook.
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetAudit); err != nil {
		return nil, err
	}

	if err := writeAuditSheet(f, styles, tbl, res); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, styles, sum); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Artifact{
		Filename: SuggestedFilename(tbl.SourceFile),
		Data:     buf.Bytes(),
	}, nil
}

// SuggestedFilename derives the report filename from the source file name.
func SuggestedFilename(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" {
		stem = "membership"
	}
	return stem + "_Audit_Report.xlsx"
}

func newStyles(f *excelize.File) (styleIDs, error) {
	var s styleIDs
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, err
	}
	if s.highlight, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{highlightColor}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}); err != nil {
		return s, err
	}
	if s.section, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, err
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	if s.redBold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "FF0000"}}); err != nil {
		return s, err
	}
	return s, nil
}

func writeAuditSheet(f *excelize.File, styles styleIDs, tbl *table.Table, res *domain.AuditResult) error {
	header := append(append([]string{}, tbl.Header...), "Status", "Notes")
	widths := make([]int, len(header))

	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetAudit, cell, name); err != nil {
			return err
		}
		widths[col] = utf8.RuneCountInString(name)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetAudit, "A1", last, styles.header); err != nil {
		return err
	}

	for i, v := range res.Verdicts {
		row := i + 2

		cells := rawCells(v, len(tbl.Header))
		status := StatusOK
		if v.Flagged {
			status = StatusFlagged
		}
		cells = append(cells, status, v.Notes())

		for col, val := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetAudit, cell, val); err != nil {
				return err
			}
			// Rune count, not bytes: the status strings are multibyte.
			if l := utf8.RuneCountInString(val); l > widths[col] {
				widths[col] = l
			}
		}

		if v.Flagged {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(cells), row)
			if err := f.SetCellStyle(sheetAudit, first, last, styles.highlight); err != nil {
				return err
			}
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		width := float64(w + 2)
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sheetAudit, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

// rawCells reproduces the verdict's original row, padded to the header width.
func rawCells(v domain.Verdict, width int) []string {
	cells := make([]string, width)
	if v.Record != nil {
		copy(cells, v.Record.Raw)
	}
	return cells
}

func writeSummarySheet(f *excelize.File, styles styleIDs, sum *stats.Summary) error {
	set := func(cell string, val interface{}) error {
		return f.SetCellValue(sheetSummary, cell, val)
	}
	style := func(cell string, id int) error {
		return f.SetCellStyle(sheetSummary, cell, cell, id)
	}

	if err := set("A1", "AUDIT SUMMARY"); err != nil {
		return err
	}
	if err := style("A1", styles.title); err != nil {
		return err
	}

	row := 3
	overall := []struct {
		label string
		value interface{}
	}{
		{"Total Records:", sum.TotalRecords},
		{"Flagged Records:", sum.FlaggedCount},
		{"Clean Records:", sum.CleanCount},
		{"Flagged Percentage:", fmt.Sprintf("%.1f%%", sum.FlaggedPercent)},
	}
	for _, item := range overall {
		if err := set(fmt.Sprintf("A%d", row), item.label); err != nil {
			return err
		}
		if err := set(fmt.Sprintf("B%d", row), item.value); err != nil {
			return err
		}
		if err := style(fmt.Sprintf("A%d", row), styles.bold); err != nil {
			return err
		}
		row++
	}

	row += 2
	if err := set(fmt.Sprintf("A%d", row), "RED FLAG BREAKDOWN"); err != nil {
		return err
	}
	if err := style(fmt.Sprintf("A%d", row), styles.section); err != nil {
		return err
	}

	row += 2
	if err := set(fmt.Sprintf("A%d", row), "Red Flag Type"); err != nil {
		return err
	}
	if err := set(fmt.Sprintf("B%d", row), "Count"); err != nil {
		return err
	}
	if err := style(fmt.Sprintf("A%d", row), styles.bold); err != nil {
		return err
	}
	if err := style(fmt.Sprintf("B%d", row), styles.bold); err != nil {
		return err
	}
	for _, c := range sum.CategoryCounts {
		row++
		if err := set(fmt.Sprintf("A%d", row), c.Label); err != nil {
			return err
		}
		if err := set(fmt.Sprintf("B%d", row), c.Count); err != nil {
			return err
		}
	}

	row += 3
	if err := set(fmt.Sprintf("A%d", row), "FINANCIAL IMPACT"); err != nil {
		return err
	}
	if err := style(fmt.Sprintf("A%d", row), styles.section); err != nil {
		return err
	}

	row += 2
	if err := set(fmt.Sprintf("A%d", row), "Total Potential Revenue at Risk:"); err != nil {
		return err
	}
	if err := set(fmt.Sprintf("B%d", row), fmt.Sprintf("$%.2f", sum.TotalImpact)); err != nil {
		return err
	}
	if err := style(fmt.Sprintf("A%d", row), styles.bold); err != nil {
		return err
	}
	if err := style(fmt.Sprintf("B%d", row), styles.redBold); err != nil {
		return err
	}

	if err := f.SetColWidth(sheetSummary, "A", "A", 35); err != nil {
		return err
	}
	return f.SetColWidth(sheetSummary, "B", "B", 20)
}

// RenderConsolidated produces the cross-file overview workbook for a batch:
// one row per successfully audited file plus a totals row.
func RenderConsolidated(batch *audit.BatchResult) (*Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	const sheet = "Overview"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	if err := f.SetCellValue(sheet, "A1", "CONSOLIDATED AUDIT REPORT"); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", styles.title); err != nil {
		return nil, err
	}

	headers := []string{"Filename", "Total Records", "Flagged", "Clean", "Flag %", "Financial Impact"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, "A3", "F3", styles.header); err != nil {
		return nil, err
	}

	row := 4
	var totalRecords, totalFlagged int
	var totalImpact float64

	for _, o := range batch.Outcomes {
		if !o.OK() {
			continue
		}
		r := o.Result

		values := []interface{}{
			r.SourceFile,
			r.TotalRecords,
			r.FlaggedCount,
			r.CleanCount,
			fmt.Sprintf("%.1f%%", r.FlaggedPercent),
			fmt.Sprintf("$%.2f", r.TotalImpact),
		}
		for i, val := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
		if r.FlaggedCount > 0 {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(sheet, first, last, styles.highlight); err != nil {
				return nil, err
			}
		}

		totalRecords += r.TotalRecords
		totalFlagged += r.FlaggedCount
		totalImpact += r.TotalImpact
		row++
	}

	row++
	totalPct := 0.0
	if totalRecords > 0 {
		totalPct = float64(totalFlagged) / float64(totalRecords) * 100
	}
	totals := []interface{}{
		"TOTALS",
		totalRecords,
		totalFlagged,
		totalRecords - totalFlagged,
		fmt.Sprintf("%.1f%%", totalPct),
		fmt.Sprintf("$%.2f", totalImpact),
	}
	for i, val := range totals {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(totals), row)
	if err := f.SetCellStyle(sheet, first, last, styles.bold); err != nil {
		return nil, err
	}

	widths := []float64{40, 15, 15, 15, 12, 20}
	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, w); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Artifact{Filename: "Consolidated_Audit_Report.xlsx", Data: buf.Bytes()}, nil
}
