// Package audit implements red flag evaluation of membership records: the row
// evaluator applies one rule set to one record, the engine drives whole
// tables and batches.
package audit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fitops/auditor/internal/domain"
)

// amountEpsilon absorbs floating point rounding in exact-amount checks. A
// deviation at or below half a cent is treated as equal.
const amountEpsilon = 0.005

// CategoryUnparseable marks a record that could not be interpreted at all.
const CategoryUnparseable = "unparseable_record"

// Evaluate runs every rule in the set against one record and returns the
// verdict. All rules are checked with no short-circuit, so a row collects every
// violation it has, in rule-definition order. Evaluation never fails: missing
// or unparseable fields become violations, because surfacing exactly those
// data problems is the point of the audit.
func Evaluate(rec *domain.MembershipRecord, rs *domain.RuleSet) domain.Verdict {
	v := domain.Verdict{
		Record:     rec,
		MemberID:   rec.MemberID,
		MemberName: rec.Name(),
	}

	if rec.Malformed {
		v.Flagged = true
		v.Violations = []domain.Violation{{
			Category: CategoryUnparseable,
			Message:  "Unparseable record",
		}}
		return v
	}

	for _, rule := range rs.Rules {
		viol, flagged := checkRule(rec, rule)
		if !flagged {
			continue
		}
		v.Violations = append(v.Violations, viol)

		// Only monetary rules move the financial impact figures.
		switch rule.Kind {
		case domain.KindMinAmount:
			v.DuesImpact += viol.Impact
		case domain.KindExactAmount:
			v.BalanceImpact += viol.Impact
		}
	}

	v.Flagged = len(v.Violations) > 0
	v.FinancialImpact = v.DuesImpact + v.BalanceImpact
	return v
}

func checkRule(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	switch rule.Kind {
	case domain.KindDateDiffRange:
		return checkDateDiff(rec, rule)
	case domain.KindMinAmount:
		return checkMinAmount(rec, rule)
	case domain.KindExactAmount:
		return checkExactAmount(rec, rule)
	case domain.KindCategoricalEquals:
		return checkCategorical(rec, rule)
	case domain.KindDateEquals:
		return checkDateEquals(rec, rule)
	case domain.KindIntegerEquals:
		return checkIntegerEquals(rec, rule)
	}
	// Unreachable with a loader-validated config.
	return domain.Violation{}, false
}

func checkDateDiff(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	a, okA := rec.Date(rule.Field)
	b, okB := rec.Date(rule.SecondField)

	if !okA || !okB || !a.Valid || !b.Valid {
		msg := "Invalid date format"
		if a.Raw == "" || b.Raw == "" {
			msg = "Missing date"
		}
		return domain.Violation{Category: "date_invalid", Message: msg}, true
	}

	days := int(b.Time.Sub(a.Time).Hours() / 24)
	if days < rule.MinDays || days > rule.MaxDays {
		return domain.Violation{
			Category: "date_mismatch",
			Message: fmt.Sprintf("%s not %d-%d days apart (%d days)",
				rule.Label, rule.MinDays, rule.MaxDays, days),
		}, true
	}
	return domain.Violation{}, false
}

func checkMinAmount(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	m, ok := rec.Money(rule.Field)
	if !ok || !m.Valid {
		return domain.Violation{
			Category: shortField(rule.Field) + "_invalid",
			Message:  fmt.Sprintf("Invalid %s amount", strings.ToLower(rule.Label)),
		}, true
	}

	if m.Amount < rule.Threshold {
		return domain.Violation{
			Category: shortField(rule.Field) + "_low",
			Message: fmt.Sprintf("%s < $%s ($%.2f)",
				rule.Label, formatAmount(rule.Threshold), m.Amount),
			Impact: rule.Threshold - m.Amount,
		}, true
	}
	return domain.Violation{}, false
}

func checkExactAmount(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	m, ok := rec.Money(rule.Field)
	if !ok || !m.Valid {
		return domain.Violation{
			Category: shortField(rule.Field) + "_invalid",
			Message:  fmt.Sprintf("Invalid %s", strings.ToLower(rule.Label)),
		}, true
	}

	dev := m.Amount - rule.ExpectedAmount
	if math.Abs(dev) <= amountEpsilon {
		return domain.Violation{}, false
	}

	// Sign matters: a credit and a debit of the same magnitude are both
	// violations, and the message says which.
	side := "debit"
	if dev < 0 {
		side = "credit"
	}
	return domain.Violation{
		Category: shortField(rule.Field) + "_" + side,
		Message:  fmt.Sprintf("%s: $%.2f (%s)", rule.Label, m.Amount, side),
		Impact:   math.Abs(dev),
	}, true
}

func checkCategorical(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	actual, _ := rec.Text(rule.Field)

	match := actual == rule.ExpectedText
	if !rule.CaseSensitive {
		match = strings.EqualFold(actual, rule.ExpectedText)
	}
	if match {
		return domain.Violation{}, false
	}
	return domain.Violation{
		Category: rule.Field + "_wrong",
		Message:  fmt.Sprintf("%s: %s", rule.Label, actual),
	}, true
}

func checkDateEquals(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	d, ok := rec.Date(rule.Field)
	if !ok || !d.Valid {
		return domain.Violation{
			Category: rule.Field + "_invalid",
			Message:  fmt.Sprintf("%s: %s", rule.Label, d.Raw),
		}, true
	}
	if !d.Time.Equal(rule.ExpectedDate) {
		return domain.Violation{
			Category: rule.Field + "_wrong",
			Message:  fmt.Sprintf("%s: %s", rule.Label, d.Raw),
		}, true
	}
	return domain.Violation{}, false
}

func checkIntegerEquals(rec *domain.MembershipRecord, rule domain.RuleDefinition) (domain.Violation, bool) {
	n, ok := rec.Int(rule.Field)
	if !ok || !n.Valid {
		return domain.Violation{
			Category: shortField(rule.Field) + "_invalid",
			Message:  fmt.Sprintf("Invalid %s value", strings.ToLower(rule.Label)),
		}, true
	}
	if n.Value != rule.ExpectedInt {
		return domain.Violation{
			Category: shortField(rule.Field) + "_wrong",
			Message:  fmt.Sprintf("%s: %d", rule.Label, n.Value),
		}, true
	}
	return domain.Violation{}, false
}

// shortField derives the category stem from a canonical field name, e.g.
// dues_amount -> dues.
func shortField(field string) string {
	return strings.TrimSuffix(field, "_amount")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
