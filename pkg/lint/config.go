package lint

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Config controls which rules are enabled and their severity. Rules are
// named by selector (see Registry.Lookup) and resolved once, by
// Registry.Resolve. A nil *Config is the default configuration:
// recommended rules only.
//
// All methods return the receiver so calls chain; calling them on a nil
// *Config allocates a new one.
type Config struct {
	all      bool
	only     []string
	enabled  []string
	disabled []string
	severity map[string]Severity
	options  map[string]Options
}

// NewConfig creates a default configuration with recommended rules enabled.
func NewConfig() *Config {
	return &Config{
		severity: make(map[string]Severity),
		options:  make(map[string]Options),
	}
}

func (c *Config) init() *Config {
	if c == nil {
		return NewConfig()
	}
	if c.severity == nil {
		c.severity = make(map[string]Severity)
	}
	if c.options == nil {
		c.options = make(map[string]Options)
	}
	return c
}

// All enables every rule, recommended or not.
func (c *Config) All() *Config {
	c = c.init()
	c.all = true
	return c
}

// OnlyRecommended restores the default base set.
func (c *Config) OnlyRecommended() *Config {
	c = c.init()
	c.all = false
	return c
}

// Only replaces the base set with the selected rules. Enable and Disable
// still apply on top of it.
func (c *Config) Only(selectors ...string) *Config {
	c = c.init()
	c.only = append(c.only, selectors...)
	return c
}

// Enable turns on rules on top of the base set.
func (c *Config) Enable(selectors ...string) *Config {
	c = c.init()
	c.enabled = append(c.enabled, selectors...)
	return c
}

// Disable turns rules off. Disable wins over Enable and All.
func (c *Config) Disable(selectors ...string) *Config {
	c = c.init()
	c.disabled = append(c.disabled, selectors...)
	return c
}

// SetSeverity overrides the severity of the selected rules.
func (c *Config) SetSeverity(selector string, severity Severity) *Config {
	c = c.init()
	c.severity[selector] = severity
	return c
}

// SetRuleOptions sets rule-specific options for the selected rules.
// Options for a group apply to each of its rules; options for a single
// rule take precedence.
func (c *Config) SetRuleOptions(selector string, opts map[string]any) *Config {
	c = c.init()
	c.options[selector] = c.options[selector].merge(opts)
	return c
}

// IsAll reports whether All was requested.
func (c *Config) IsAll() bool {
	return c != nil && c.all
}

// Plan is a Config resolved against a Registry. It is indexed by rule key
// and immutable.
type Plan struct {
	enabled     []bool
	severity    []Severity
	hasSeverity []bool
	options     []Options
}

// Enabled reports whether the rule runs.
func (p *Plan) Enabled(key RuleKey) bool {
	return p.inRange(key) && p.enabled[key.index]
}

// Severity returns the configured severity of the rule, if overridden.
func (p *Plan) Severity(key RuleKey) (Severity, bool) {
	if !p.inRange(key) || !p.hasSeverity[key.index] {
		return 0, false
	}
	return p.severity[key.index], true
}

// Options returns the rule's configured options, or nil.
func (p *Plan) Options(key RuleKey) Options {
	if !p.inRange(key) {
		return nil
	}
	return p.options[key.index]
}

// EnabledCount returns the number of enabled rules.
func (p *Plan) EnabledCount() int {
	n := 0
	for _, on := range p.enabled {
		if on {
			n++
		}
	}
	return n
}

func (p *Plan) inRange(key RuleKey) bool {
	return p != nil && key.rule != "" && key.index >= 0 && key.index < len(p.enabled)
}

// Resolve turns cfg into a Plan. Each selector that names no rule or group
// produces one config diagnostic and is otherwise ignored.
func (r *Registry) Resolve(cfg *Config) (*Plan, []Diagnostic) {
	n := len(r.rules)
	plan := &Plan{
		enabled:     make([]bool, n),
		severity:    make([]Severity, n),
		hasSeverity: make([]bool, n),
		options:     make([]Options, n),
	}
	res := &resolver{reg: r, seen: make(map[string]bool)}

	for i, rr := range r.rules {
		plan.enabled[i] = rr.meta.Recommended || cfg.IsAll()
	}
	if cfg == nil {
		return plan, nil
	}

	if len(cfg.only) > 0 {
		clear(plan.enabled)
		for _, sel := range cfg.only {
			for _, key := range res.lookup(sel) {
				plan.enabled[key.index] = true
			}
		}
	}
	for _, sel := range cfg.enabled {
		for _, key := range res.lookup(sel) {
			plan.enabled[key.index] = true
		}
	}
	for _, sel := range cfg.disabled {
		for _, key := range res.lookup(sel) {
			plan.enabled[key.index] = false
		}
	}

	for _, e := range bySpecificity(res, cfg.severity) {
		for _, key := range e.keys {
			plan.severity[key.index] = e.value
			plan.hasSeverity[key.index] = true
		}
	}
	for _, e := range bySpecificity(res, cfg.options) {
		for _, key := range e.keys {
			plan.options[key.index] = plan.options[key.index].merge(e.value)
		}
	}
	return plan, res.diags
}

type resolver struct {
	reg   *Registry
	seen  map[string]bool
	diags []Diagnostic
}

func (res *resolver) lookup(sel string) []RuleKey {
	keys, err := res.reg.Lookup(sel)
	if err != nil {
		if !res.seen[sel] {
			res.seen[sel] = true
			res.diags = append(res.diags, configDiagnostic(sel, err))
		}
		return nil
	}
	return keys
}

type resolved[T any] struct {
	selector string
	keys     []RuleKey
	value    T
}

// bySpecificity resolves a selector map so that broader selectors come
// first and narrower ones override them.
func bySpecificity[T any](res *resolver, m map[string]T) []resolved[T] {
	out := make([]resolved[T], 0, len(m))
	for _, sel := range slices.Sorted(maps.Keys(m)) {
		keys := res.lookup(sel)
		if len(keys) == 0 {
			continue
		}
		out = append(out, resolved[T]{selector: sel, keys: keys, value: m[sel]})
	}
	slices.SortFunc(out, func(a, b resolved[T]) int {
		return cmp.Or(cmp.Compare(len(b.keys), len(a.keys)), cmp.Compare(a.selector, b.selector))
	})
	return out
}

func configDiagnostic(sel string, err error) Diagnostic {
	msg := fmt.Sprintf("unknown rule or group %q", sel)
	if errors.Is(err, ErrAmbiguous) {
		msg = err.Error()
	}
	return Diagnostic{
		Category: CategoryConfig,
		Severity: SeverityWarning,
		Message:  msg,
		Detail:   "The selector is ignored. Run `pgcheck rules` to list the available rules.",
	}
}
