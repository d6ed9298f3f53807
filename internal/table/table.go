// Package table turns uploaded CSV/XLSX membership exports into the ordered,
// typed Table the audit engine consumes. All field parsing happens here, once
// per row; parse failures become explicit invalid-field markers on the record
// rather than evaluation-time errors.
package table

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fitops/auditor/internal/domain"
)

// RequiredColumns are the canonical fields a membership export must carry for
// the default rule set to be evaluable. Checked before any row is evaluated.
var RequiredColumns = []string{
	domain.FieldMemberNumber,
	domain.FieldJoinDate,
	domain.FieldExpirationDate,
	domain.FieldPayType,
	domain.FieldDuesAmount,
	domain.FieldCycle,
	domain.FieldBalance,
	domain.FieldEndDraft,
}

// columnAliases maps normalized header names to canonical field names. Covers
// both the legacy 17-column export and the newer snake_case export.
var columnAliases = map[string]string{
	"last_name":       domain.FieldLastName,
	"first_name":      domain.FieldFirstName,
	"member":          domain.FieldMemberNumber,
	"member_number":   domain.FieldMemberNumber,
	"member_id":       domain.FieldMemberNumber,
	"join_date":       domain.FieldJoinDate,
	"exp_date":        domain.FieldExpirationDate,
	"expiration_date": domain.FieldExpirationDate,
	"type":            domain.FieldMemberType,
	"member_type":     domain.FieldMemberType,
	"pay_type":        domain.FieldPayType,
	"payment_method":  domain.FieldPayType,
	"dues_amt":        domain.FieldDuesAmount,
	"dues_amount":     domain.FieldDuesAmount,
	"cycle":           domain.FieldCycle,
	"balance":         domain.FieldBalance,
	"end_draft":       domain.FieldEndDraft,
	"sales_rep":       domain.FieldSalesRep,
	"salesperson":     domain.FieldSalesRep,
	"postedby":        domain.FieldSalesRep,
}

// Table is an ordered sequence of parsed membership records plus the original
// header, kept verbatim for report reproduction.
type Table struct {
	SourceFile string
	Header     []string
	Records    []*domain.MembershipRecord

	columns map[string]int // canonical field -> header index
}

// Read parses file bytes according to the filename extension. Supported:
// .csv, .xlsx, .xls.
func Read(data []byte, filename string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(data, filename)
	case ".xlsx", ".xls":
		return ReadXLSX(data, filename)
	}
	return nil, fmt.Errorf("unsupported file type: %s", filename)
}

// FromRows builds a Table from a header row plus data rows.
func FromRows(rows [][]string, source string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: file is empty", source)
	}

	header := rows[0]
	t := &Table{
		SourceFile: source,
		Header:     header,
		columns:    make(map[string]int, len(header)),
	}
	for i, name := range header {
		if canonical, ok := columnAliases[normalizeHeader(name)]; ok {
			if _, seen := t.columns[canonical]; !seen {
				t.columns[canonical] = i
			}
		}
	}

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		t.Records = append(t.Records, t.buildRecord(row))
	}
	return t, nil
}

// Require fails with a domain.MissingColumnsError naming each missing canonical
// column, so a bad export is rejected before evaluation begins.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingColumnsError{SourceFile: t.SourceFile, Columns: missing}
	}
	return nil
}

func (t *Table) buildRecord(row []string) *domain.MembershipRecord {
	cell := func(field string) string {
		idx, ok := t.columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	// Pad the raw row to header width so report columns stay aligned.
	raw := make([]string, len(t.Header))
	copy(raw, row)

	rec := &domain.MembershipRecord{
		MemberID:       cell(domain.FieldMemberNumber),
		LastName:       cell(domain.FieldLastName),
		FirstName:      cell(domain.FieldFirstName),
		JoinDate:       parseDate(cell(domain.FieldJoinDate)),
		ExpirationDate: parseDate(cell(domain.FieldExpirationDate)),
		DuesAmount:     parseCurrency(cell(domain.FieldDuesAmount)),
		Balance:        parseCurrency(cell(domain.FieldBalance)),
		Cycle:          parseInt(cell(domain.FieldCycle)),
		EndDraft:       parseDate(cell(domain.FieldEndDraft)),
		PayType:        cell(domain.FieldPayType),
		Category:       cell(domain.FieldMemberType),
		SalesRep:       cell(domain.FieldSalesRep),
		Raw:            raw,
	}

	// A row with no identifier and nothing parseable is noise, not data.
	rec.Malformed = rec.MemberID == "" &&
		!rec.JoinDate.Valid && !rec.DuesAmount.Valid && !rec.Balance.Valid

	return rec
}

var dateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

func parseDate(s string) domain.DateField {
	f := domain.DateField{Raw: s}
	if s == "" {
		return f
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t
			f.Valid = true
			return f
		}
	}
	return f
}

func parseCurrency(s string) domain.MoneyField {
	f := domain.MoneyField{Raw: s}
	cleaned := strings.NewReplacer("$", "", ",", "", `"`, "", " ", "").Replace(s)
	if cleaned == "" {
		return f
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return f
	}
	f.Amount = v
	f.Valid = true
	return f
}

func parseInt(s string) domain.IntField {
	f := domain.IntField{Raw: s}
	if s == "" {
		return f
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return f
	}
	f.Value = v
	f.Valid = true
	return f
}

func normalizeHeader(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-' || r == '/':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
