// Package stats derives cross-cutting analyses from a finished audit run:
// flag frequencies, co-occurrence, time-bucketed trends, and attribution
// breakdowns. Everything here is read-only over the AuditResult.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fitops/auditor/internal/domain"
)

// Bucket names for rows whose grouping key is absent or unparseable. Rows are
// never dropped from a grouping.
const (
	BucketInvalidDate = "Invalid Date"
	BucketNotAssigned = "Not Assigned"
)

// Membership status buckets, keyed off the expiration date against the
// reference time.
const (
	BucketExpired = "Expired"
	BucketActive  = "Active"
)

// Options selects the grouping dimensions.
type Options struct {
	// BucketField is the date field used for time-bucketed trends.
	// Defaults to join_date.
	BucketField string
	// TopImpactLimit caps the top-impact member list. Defaults to 20.
	TopImpactLimit int
	// Now is the reference time for the expired-vs-active breakdown.
	// Defaults to the wall clock.
	Now time.Time
}

// CategoryCount is the frequency of one violation category across a run.
type CategoryCount struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
}

// PairCount counts two violation categories appearing on the same record.
type PairCount struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// GroupStat is the flag breakdown for one grouping bucket.
type GroupStat struct {
	Key             string  `json:"key"`
	Total           int     `json:"total"`
	Flagged         int     `json:"flagged"`
	Clean           int     `json:"clean"`
	FlagPercent     float64 `json:"flag_percent"`
	FinancialImpact float64 `json:"financial_impact"`
}

// TopImpactMember is one entry of the highest-financial-impact ranking.
type TopImpactMember struct {
	MemberID        string  `json:"member_id"`
	MemberName      string  `json:"member_name"`
	FinancialImpact float64 `json:"financial_impact"`
	FlagCount       int     `json:"flag_count"`
	Notes           string  `json:"notes"`
}

// Summary is the full statistics output, plain data suitable for charting.
type Summary struct {
	TotalRecords   int     `json:"total_records"`
	FlaggedCount   int     `json:"flagged_count"`
	CleanCount     int     `json:"clean_count"`
	FlaggedPercent float64 `json:"flagged_percent"`

	TotalImpact   float64 `json:"total_financial_impact"`
	DuesImpact    float64 `json:"total_dues_impact"`
	BalanceImpact float64 `json:"total_balance_impact"`

	CategoryCounts   []CategoryCount   `json:"category_counts"`
	Cooccurrence     []PairCount       `json:"cooccurrence"`
	TimeBuckets      []GroupStat       `json:"time_buckets"`
	SalesRepStats    []GroupStat       `json:"sales_rep_stats"`
	MembershipStatus []GroupStat       `json:"membership_status"`
	TopImpact        []TopImpactMember `json:"top_impact"`
}

// Analyze computes the statistics summary for one audit result.
func Analyze(res *domain.AuditResult, opts Options) *Summary {
	if opts.BucketField == "" {
		opts.BucketField = domain.FieldJoinDate
	}
	if opts.TopImpactLimit <= 0 {
		opts.TopImpactLimit = 20
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	sum := &Summary{
		TotalRecords:   res.TotalRecords,
		FlaggedCount:   res.FlaggedCount,
		CleanCount:     res.CleanCount,
		FlaggedPercent: res.FlaggedPercent,
		TotalImpact:    res.TotalImpact,
		DuesImpact:     res.DuesImpact,
		BalanceImpact:  res.BalanceImpact,
	}

	sum.CategoryCounts = categoryCounts(res)
	sum.Cooccurrence = cooccurrence(res)
	sum.TimeBuckets = timeBuckets(res, opts.BucketField)
	sum.SalesRepStats = salesRepStats(res)
	sum.MembershipStatus = membershipStatus(res, opts.Now)
	sum.TopImpact = topImpact(res, opts.TopImpactLimit)
	return sum
}

func categoryCounts(res *domain.AuditResult) []CategoryCount {
	counts := map[string]int{}
	for _, v := range res.Verdicts {
		for _, viol := range v.Violations {
			counts[viol.Category]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Label: CategoryLabel(cat), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func cooccurrence(res *domain.AuditResult) []PairCount {
	counts := map[string]int{}
	for _, v := range res.Verdicts {
		if len(v.Violations) < 2 {
			continue
		}
		cats := make([]string, 0, len(v.Violations))
		for _, viol := range v.Violations {
			cats = append(cats, viol.Category)
		}
		sort.Strings(cats)
		for i := 0; i < len(cats); i++ {
			for j := i + 1; j < len(cats); j++ {
				counts[cats[i]+" + "+cats[j]]++
			}
		}
	}

	out := make([]PairCount, 0, len(counts))
	for pair, n := range counts {
		out = append(out, PairCount{Pair: pair, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pair < out[j].Pair
	})
	return out
}

func timeBuckets(res *domain.AuditResult, field string) []GroupStat {
	groups := map[string]*GroupStat{}

	for _, v := range res.Verdicts {
		key := BucketInvalidDate
		if v.Record != nil {
			if d, ok := v.Record.Date(field); ok && d.Valid {
				key = fmt.Sprintf("%d-Q%d", d.Time.Year(), (int(d.Time.Month())-1)/3+1)
			}
		}
		accumulate(groups, key, v)
	}

	out := flatten(groups)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func salesRepStats(res *domain.AuditResult) []GroupStat {
	groups := map[string]*GroupStat{}

	for _, v := range res.Verdicts {
		key := BucketNotAssigned
		if v.Record != nil && strings.TrimSpace(v.Record.SalesRep) != "" {
			key = v.Record.SalesRep
		}
		accumulate(groups, key, v)
	}

	out := flatten(groups)
	// Ranked: worst offenders first.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flagged != out[j].Flagged {
			return out[i].Flagged > out[j].Flagged
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// membershipStatus splits the run by whether the membership had expired at the
// reference time. Rows without a parseable expiration date are kept in an
// explicit unknown bucket.
func membershipStatus(res *domain.AuditResult, now time.Time) []GroupStat {
	groups := map[string]*GroupStat{}

	for _, v := range res.Verdicts {
		key := BucketInvalidDate
		if v.Record != nil {
			if d, ok := v.Record.Date(domain.FieldExpirationDate); ok && d.Valid {
				if d.Time.Before(now) {
					key = BucketExpired
				} else {
					key = BucketActive
				}
			}
		}
		accumulate(groups, key, v)
	}

	out := flatten(groups)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func topImpact(res *domain.AuditResult, limit int) []TopImpactMember {
	sorted := make([]domain.Verdict, len(res.Verdicts))
	copy(sorted, res.Verdicts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FinancialImpact > sorted[j].FinancialImpact
	})

	var out []TopImpactMember
	for _, v := range sorted {
		if len(out) >= limit || v.FinancialImpact <= 0 {
			break
		}
		out = append(out, TopImpactMember{
			MemberID:        v.MemberID,
			MemberName:      v.MemberName,
			FinancialImpact: v.FinancialImpact,
			FlagCount:       len(v.Violations),
			Notes:           v.Notes(),
		})
	}
	return out
}

func accumulate(groups map[string]*GroupStat, key string, v domain.Verdict) {
	g, ok := groups[key]
	if !ok {
		g = &GroupStat{Key: key}
		groups[key] = g
	}
	g.Total++
	if v.Flagged {
		g.Flagged++
	} else {
		g.Clean++
	}
	g.FinancialImpact += v.FinancialImpact
}

func flatten(groups map[string]*GroupStat) []GroupStat {
	out := make([]GroupStat, 0, len(groups))
	for _, g := range groups {
		if g.Total > 0 {
			g.FlagPercent = float64(g.Flagged) / float64(g.Total) * 100
		}
		out = append(out, *g)
	}
	return out
}

// categoryLabels maps category keys to display names for summary sheets.
var categoryLabels = map[string]string{
	"dues_low":           "Dues Below Minimum",
	"dues_invalid":       "Invalid Dues Amount",
	"date_mismatch":      "Join/Exp Date Mismatch",
	"date_invalid":       "Invalid Date Format",
	"pay_type_wrong":     "Incorrect Pay Type",
	"end_draft_wrong":    "Incorrect End Draft Date",
	"end_draft_invalid":  "Invalid End Draft Date",
	"cycle_wrong":        "Incorrect Cycle Number",
	"cycle_invalid":      "Invalid Cycle Value",
	"balance_debit":      "Outstanding Balance (Owed)",
	"balance_credit":     "Credit Balance (Refund Due)",
	"balance_invalid":    "Invalid Balance Value",
	"unparseable_record": "Unparseable Record",
}

// CategoryLabel formats a violation category for display, falling back to
// title-cased snake case for categories without a curated name.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	words := strings.Split(category, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
