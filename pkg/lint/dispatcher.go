package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
)

// ErrRulePanic wraps a panic recovered from a rule.
var ErrRulePanic = errors.New("rule panicked")

// Dispatcher runs the enabled rules of a plan against statements.
// It is safe for concurrent use.
type Dispatcher struct {
	reg    *Registry
	plan   *Plan
	keys   []RuleKey
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil plan runs the recommended
// rules; a nil logger discards.
func NewDispatcher(reg *Registry, plan *Plan, logger *slog.Logger) *Dispatcher {
	if plan == nil {
		plan, _ = reg.Resolve(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dispatcher{reg: reg, plan: plan, logger: logger}
	for _, key := range reg.Rules() {
		if plan.Enabled(key) {
			d.keys = append(d.keys, key)
		}
	}
	return d
}

// Rules returns the rules the dispatcher runs, in run order.
func (d *Dispatcher) Rules() []RuleKey {
	return d.keys
}

// Run checks one statement. Rules run in (group, name) order and so do
// their diagnostics. A rule that panics or returns an error yields one
// internal diagnostic; the remaining rules still run. A nil stmt is
// skipped.
func (d *Dispatcher) Run(stmt ast.Node, ctx *RuleContext) []Diagnostic {
	if stmt == nil {
		return nil
	}
	if ctx == nil {
		ctx = &RuleContext{}
	}

	var diagnostics []Diagnostic
	for _, key := range d.keys {
		rule, _ := d.reg.Rule(key)
		meta, _ := d.reg.Metadata(key)

		override, overridden := d.plan.Severity(key)
		rc := *ctx
		rc.key = key
		rc.Options = d.plan.Options(key)
		rc.severity = meta.Severity
		if overridden {
			rc.severity = override
		}

		diags, err := d.runRule(rule, stmt, &rc)
		if err != nil {
			d.logger.LogAttrs(context.Background(), slog.LevelWarn, "rule failed",
				slog.String("rule", key.String()),
				slog.Int("statement", ctx.Index),
				slog.String("error", err.Error()))
			diagnostics = append(diagnostics, internalDiagnostic(key, err))
			continue
		}

		for i := range diags {
			diags[i].Rule = key
			diags[i].Category = key.String()
			if overridden {
				diags[i].Severity = override
			}
			if diags[i].DocumentationURL == "" {
				diags[i].DocumentationURL = BuildDocURL(key)
			}
		}
		diagnostics = append(diagnostics, diags...)
	}
	return diagnostics
}

func (d *Dispatcher) runRule(rule Rule, stmt ast.Node, ctx *RuleContext) (diags []Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("rule panic", slog.String("rule", ctx.key.String()), slog.String("stack", string(debug.Stack())))
			diags = nil
			err = fmt.Errorf("%w: %v", ErrRulePanic, r)
		}
	}()
	return rule.Check(stmt, ctx)
}

func internalDiagnostic(key RuleKey, err error) Diagnostic {
	return Diagnostic{
		Rule:     key,
		Category: CategoryInternalRule,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("rule %s failed: %v", key, err),
		Detail:   "The rule was skipped for this statement. Other rules were not affected.",
	}
}
