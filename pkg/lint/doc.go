// Package lint provides the rule registry, configuration and dispatcher
// used to check Postgres statements.
//
// # Rule Registration
//
// Rule packages expose a registrar instead of relying on init() side
// effects. A registry is built from any number of registrars and is
// immutable afterwards:
//
//	reg, err := lint.NewRegistry(safety.Register, customRules.Register)
//
// A registrar records its groups and rules into a Visitor:
//
//	func Register(v lint.Visitor) {
//		v.RecordGroup(lint.Group{Name: "safety", Description: "..."})
//		v.RecordRule(lint.WrapRuleDef(BanDropColumn))
//	}
//
// Rules are kept sorted by (group, name). The registry issues a RuleKey
// for each; keys print as "lint/<group>/<name>", which is also the
// category of the rule's diagnostics.
//
// # Configuration
//
// Use Config to control which rules are enabled and their severity:
//
//	cfg := lint.NewConfig().
//		Enable("lockTimeoutWarning").
//		Disable("safety/banDropColumn").
//		SetSeverity("safety", lint.SeverityError).
//		SetRuleOptions("preferBigInt", map[string]any{"allow_small": true})
//
// Selectors are resolved once, by Registry.Resolve, into a Plan. Selectors
// that match nothing produce config diagnostics.
//
// # Dispatch
//
// A Dispatcher runs the enabled rules of a plan against one statement at a
// time. Rules receive a read-only RuleContext holding the statement text,
// the transaction state entering the statement and the rule's options. A
// rule that panics or returns an error produces an "internal/rule"
// diagnostic; it never stops the other rules.
//
// # Creating Custom Rules
//
// Implement the Rule interface or use RuleDef:
//
//	var MyRule = lint.RuleDef{
//		Name:        "noVacuumFull",
//		Group:       "custom",
//		Description: "VACUUM FULL rewrites the table under an ACCESS EXCLUSIVE lock.",
//		Severity:    lint.SeverityWarning,
//		Recommended: true,
//		Check:       checkNoVacuumFull,
//	}
package lint
