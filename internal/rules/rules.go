// Package rules loads and validates the rule configuration: one named rule
// set per membership category, each an ordered list of field-level checks.
package rules

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fitops/auditor/internal/domain"
)

// dateLayouts accepted for expected-date parameters, most common first.
var dateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

// Config is the validated rule-set-by-category mapping. Immutable after Load;
// safe to share across concurrent audit runs.
type Config struct {
	defaultCategory string
	sets            map[string]*domain.RuleSet // keyed by normalized category
	names           []string                   // declared order, for listing
}

// rawConfig keeps rule_sets as a yaml.Node: decoding into a Go map would lose
// the declaration order that Categories() promises.
type rawConfig struct {
	DefaultCategory string    `yaml:"default_category"`
	RuleSets        yaml.Node `yaml:"rule_sets"`
}

type rawRuleSet struct {
	Enabled *bool     `yaml:"enabled"`
	Rules   []rawRule `yaml:"rules"`
}

// rawRule is the loosely-typed YAML shape. Expected is polymorphic: its
// concrete type is decided by Kind during validation.
type rawRule struct {
	Kind          string      `yaml:"kind"`
	Label         string      `yaml:"label"`
	Field         string      `yaml:"field"`
	SecondField   string      `yaml:"second_field"`
	MinDays       *int        `yaml:"min_days"`
	MaxDays       *int        `yaml:"max_days"`
	Threshold     *float64    `yaml:"threshold"`
	Expected      interface{} `yaml:"expected"`
	CaseSensitive *bool       `yaml:"case_sensitive"`
}

// Load parses and validates YAML rule configuration. Any unknown kind or
// missing kind-specific parameter fails with a domain.ConfigError so the
// caller can refuse to run audits (fail closed).
func Load(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &domain.ConfigError{Detail: fmt.Sprintf("parse yaml: %v", err)}
	}
	if raw.RuleSets.Kind != yaml.MappingNode || len(raw.RuleSets.Content) == 0 {
		return nil, &domain.ConfigError{Detail: "no rule sets defined"}
	}

	cfg := &Config{
		defaultCategory: strings.TrimSpace(raw.DefaultCategory),
		sets:            make(map[string]*domain.RuleSet, len(raw.RuleSets.Content)/2),
	}

	// Mapping node content alternates key, value.
	for i := 0; i+1 < len(raw.RuleSets.Content); i += 2 {
		name := raw.RuleSets.Content[i].Value

		var rawSet rawRuleSet
		if err := raw.RuleSets.Content[i+1].Decode(&rawSet); err != nil {
			return nil, &domain.ConfigError{
				Detail: fmt.Sprintf("rule set %q: %v", name, err),
			}
		}

		set, err := buildRuleSet(name, rawSet)
		if err != nil {
			return nil, err
		}
		cfg.sets[normalizeCategory(name)] = set
		cfg.names = append(cfg.names, name)
	}

	if cfg.defaultCategory != "" {
		if _, ok := cfg.sets[normalizeCategory(cfg.defaultCategory)]; !ok {
			return nil, &domain.ConfigError{
				Detail: fmt.Sprintf("default_category %q has no rule set", cfg.defaultCategory),
			}
		}
	}

	return cfg, nil
}

func buildRuleSet(name string, raw rawRuleSet) (*domain.RuleSet, error) {
	if len(raw.Rules) == 0 {
		return nil, &domain.ConfigError{Detail: fmt.Sprintf("rule set %q has no rules", name)}
	}

	enabled := true
	if raw.Enabled != nil {
		enabled = *raw.Enabled
	}

	set := &domain.RuleSet{Name: name, Enabled: enabled}
	for i, rr := range raw.Rules {
		def, err := buildRule(name, i, rr)
		if err != nil {
			return nil, err
		}
		set.Rules = append(set.Rules, def)
	}
	return set, nil
}

func buildRule(setName string, idx int, rr rawRule) (domain.RuleDefinition, error) {
	fail := func(format string, args ...interface{}) (domain.RuleDefinition, error) {
		detail := fmt.Sprintf(format, args...)
		return domain.RuleDefinition{}, &domain.ConfigError{
			Detail: fmt.Sprintf("rule set %q, rule %d: %s", setName, idx+1, detail),
		}
	}

	if rr.Field == "" {
		return fail("missing field")
	}

	def := domain.RuleDefinition{
		Kind:  domain.RuleKind(rr.Kind),
		Label: rr.Label,
		Field: rr.Field,
	}
	if def.Label == "" {
		def.Label = rr.Field
	}

	switch def.Kind {
	case domain.KindDateDiffRange:
		if rr.SecondField == "" {
			return fail("date_diff_range requires second_field")
		}
		if rr.MinDays == nil || rr.MaxDays == nil {
			return fail("date_diff_range requires min_days and max_days")
		}
		if *rr.MinDays > *rr.MaxDays {
			return fail("min_days %d exceeds max_days %d", *rr.MinDays, *rr.MaxDays)
		}
		def.SecondField = rr.SecondField
		def.MinDays = *rr.MinDays
		def.MaxDays = *rr.MaxDays

	case domain.KindMinAmount:
		if rr.Threshold == nil {
			return fail("min_amount requires threshold")
		}
		def.Threshold = *rr.Threshold

	case domain.KindExactAmount:
		amount, err := expectedFloat(rr.Expected)
		if err != nil {
			return fail("exact_amount: %v", err)
		}
		def.ExpectedAmount = amount

	case domain.KindCategoricalEquals:
		text, ok := rr.Expected.(string)
		if !ok || text == "" {
			return fail("categorical_equals requires a non-empty expected string")
		}
		def.ExpectedText = text
		if rr.CaseSensitive != nil {
			def.CaseSensitive = *rr.CaseSensitive
		}

	case domain.KindDateEquals:
		text, ok := rr.Expected.(string)
		if !ok || text == "" {
			return fail("date_equals requires an expected date string")
		}
		parsed, err := parseExpectedDate(text)
		if err != nil {
			return fail("date_equals: %v", err)
		}
		def.ExpectedDate = parsed

	case domain.KindIntegerEquals:
		n, err := expectedInt(rr.Expected)
		if err != nil {
			return fail("integer_equals: %v", err)
		}
		def.ExpectedInt = n

	default:
		return fail("unknown rule kind %q", rr.Kind)
	}

	return def, nil
}

func expectedFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing expected value")
	}
	return 0, fmt.Errorf("expected value must be numeric, got %T", v)
}

func expectedInt(v interface{}) (int, error) {
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("expected value must be an integer, got %T", v)
	}
	return n, nil
}

func parseExpectedDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// Resolve returns the enabled rule set for a membership category. Unrecognized
// or empty categories fall back to the default category; if no default exists
// the lookup fails with a domain.UnknownCategoryError. Disabled rule sets are
// excluded from the candidate pool but remain loaded, so disabling one is
// non-destructive.
func (c *Config) Resolve(category string) (*domain.RuleSet, error) {
	if set, ok := c.sets[normalizeCategory(category)]; ok && set.Enabled {
		return set, nil
	}
	if c.defaultCategory != "" {
		if set, ok := c.sets[normalizeCategory(c.defaultCategory)]; ok && set.Enabled {
			return set, nil
		}
	}
	return nil, &domain.UnknownCategoryError{Category: strings.TrimSpace(category)}
}

// DefaultCategory returns the configured fallback category name, empty when
// none is configured.
func (c *Config) DefaultCategory() string {
	return c.defaultCategory
}

// Categories lists the declared rule set names in file order.
func (c *Config) Categories() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Default returns the built-in configuration for Year Paid in Full
// memberships, used when no rules file is supplied.
func Default() *Config {
	cfg, err := Load([]byte(defaultYAML))
	if err != nil {
		// The built-in config is covered by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return cfg
}

const defaultYAML = `
default_category: 1 Year Paid In Full
rule_sets:
  1 Year Paid In Full:
    enabled: true
    rules:
      - kind: date_diff_range
        label: Join/Exp dates
        field: join_date
        second_field: expiration_date
        min_days: 365
        max_days: 366
      - kind: min_amount
        label: Dues
        field: dues_amount
        threshold: 600
      - kind: categorical_equals
        label: Pay Type
        field: pay_type
        expected: ANNUAL BILL
        case_sensitive: false
      - kind: date_equals
        label: End Draft
        field: end_draft
        expected: 12/31/99
      - kind: integer_equals
        label: Cycle
        field: cycle
        expected: 1
      - kind: exact_amount
        label: Balance
        field: balance
        expected: 0
`
