package lint

import (
	"cmp"
	"slices"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/token"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// =============================================================================
// Diagnostics
// =============================================================================

// Diagnostic categories that do not belong to a rule.
const (
	CategoryInternalRule = "internal/rule"
	CategoryConfig       = "config"
	CategorySyntax       = "syntax"
	CategorySplit        = "split"
	CategorySuppressions = "suppressions"
)

// Diagnostic represents a finding.
type Diagnostic struct {
	// Rule is the zero key for diagnostics no rule produced.
	Rule     RuleKey
	Category string // "lint/<group>/<rule>", "syntax", "config", ...
	Severity Severity
	Message  string
	Detail   string
	// Pos and EndPos are statement-relative when a rule returns them and
	// document positions once the workspace has rebased them. A zero range
	// covers the whole statement.
	Pos    token.Position
	EndPos token.Position

	DocumentationURL string
	Advices          []Advice
}

// Advice is a note attached to a diagnostic.
type Advice struct {
	Message string
	Span    token.Span // optional
}

// HasRange reports whether the diagnostic points at a specific range.
func (d Diagnostic) HasRange() bool {
	return d.Pos != (token.Position{}) || d.EndPos != (token.Position{})
}

// SortDiagnostics orders diagnostics by position, then category. Equal
// diagnostics keep their relative order.
func SortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Pos.Offset, b.Pos.Offset),
			cmp.Compare(a.EndPos.Offset, b.EndPos.Offset),
			cmp.Compare(a.Category, b.Category),
		)
	})
}

// CountBySeverity returns how many diagnostics have each severity.
func CountBySeverity(diags []Diagnostic) map[Severity]int {
	counts := make(map[Severity]int)
	for _, d := range diags {
		counts[d.Severity]++
	}
	return counts
}

// =============================================================================
// Rules
// =============================================================================

// Metadata describes a rule for registration, configuration and docs.
type Metadata struct {
	Name        string   // e.g. "banDropColumn"
	Group       string   // e.g. "safety"
	Category    string   // defaults to "lint"
	Description string   // one line
	Severity    Severity // default severity
	Recommended bool     // enabled by default
	Sources     []string // rules this one is modelled on, e.g. "squawk/ban-drop-column"
	ConfigKeys  []string // options the rule reads from RuleContext.Options

	Rationale   string
	BadExample  string
	GoodExample string
	Fix         string
}

// Rule checks single statements.
type Rule interface {
	Metadata() Metadata
	// Check may return an error; the dispatcher turns it into an internal
	// diagnostic and keeps going.
	Check(stmt ast.Node, ctx *RuleContext) ([]Diagnostic, error)
}

// CheckFunc is the check of a RuleDef.
type CheckFunc func(stmt ast.Node, ctx *RuleContext) ([]Diagnostic, error)

// RuleDef is a data-driven rule definition.
// Rules are stateless - all context comes via the Check function parameters.
type RuleDef struct {
	Name        string
	Group       string
	Category    string
	Description string
	Severity    Severity
	Recommended bool
	Sources     []string
	ConfigKeys  []string

	// Documentation fields for richer rule documentation
	Rationale   string // Why this rule exists, what problems it prevents
	BadExample  string // Code showing the anti-pattern
	GoodExample string // Code showing the correct pattern
	Fix         string // How to fix violations (when not obvious)

	Check CheckFunc
}

// wrappedRuleDef wraps a RuleDef to implement Rule.
type wrappedRuleDef struct {
	def RuleDef
}

// WrapRuleDef wraps a RuleDef to implement the Rule interface.
func WrapRuleDef(def RuleDef) Rule {
	return &wrappedRuleDef{def: def}
}

func (w *wrappedRuleDef) Metadata() Metadata {
	return Metadata{
		Name:        w.def.Name,
		Group:       w.def.Group,
		Category:    w.def.Category,
		Description: w.def.Description,
		Severity:    w.def.Severity,
		Recommended: w.def.Recommended,
		Sources:     w.def.Sources,
		ConfigKeys:  w.def.ConfigKeys,
		Rationale:   w.def.Rationale,
		BadExample:  w.def.BadExample,
		GoodExample: w.def.GoodExample,
		Fix:         w.def.Fix,
	}
}

func (w *wrappedRuleDef) Check(stmt ast.Node, ctx *RuleContext) ([]Diagnostic, error) {
	if w.def.Check == nil {
		return nil, nil
	}
	return w.def.Check(stmt, ctx)
}

// Unwrap returns the underlying RuleDef.
func (w *wrappedRuleDef) Unwrap() RuleDef {
	return w.def
}

// =============================================================================
// Rule Context
// =============================================================================

// RuleContext is what a rule may know about the statement it checks.
// Rules must treat it as read-only.
type RuleContext struct {
	// Text is the statement text. Node spans are relative to it.
	Text string
	// Index is the statement's position in the document; Total is the
	// number of statements.
	Index int
	Total int
	// State is the transaction state entering the statement.
	State tracker.Snapshot
	// ScopeSize is the number of statements in the statement's scope.
	ScopeSize int
	// Previous holds the statements before this one. Entries are nil for
	// statements that failed to parse.
	Previous []ast.Node
	// Options holds the configured options of the running rule.
	Options Options

	key      RuleKey
	severity Severity
}

// ScopeOrdinal returns the 1-based position of the statement in its scope.
func (c *RuleContext) ScopeOrdinal() int {
	return c.State.StatementsInScope + 1
}

// Rule returns the key of the running rule.
func (c *RuleContext) Rule() RuleKey {
	return c.key
}

// Report starts a diagnostic for the running rule at span. A zero span
// covers the whole statement.
func (c *RuleContext) Report(span token.Span, message string) Diagnostic {
	return Diagnostic{
		Rule:     c.key,
		Category: c.key.String(),
		Severity: c.severity,
		Message:  message,
		Pos:      span.Start,
		EndPos:   span.End,
	}
}
