package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// LockTimeoutWarning flags strong locks on existing tables taken without a
// lock_timeout.
var LockTimeoutWarning = lint.RuleDef{
	Name:        "lockTimeoutWarning",
	Group:       Group,
	Description: "Strong lock taken without lock_timeout set.",
	Severity:    lint.SeverityWarning,
	Sources:     []string{"eugene/E9"},
	ConfigKeys:  []string{"minLevel"},
	Check:       checkLockTimeoutWarning,

	Rationale: `A statement that waits for a lock queues every later statement on the same
table behind it. Without lock_timeout the wait is unbounded and a single long
running query turns a quick migration into an outage.`,

	BadExample: `ALTER TABLE users ADD COLUMN email text;`,

	GoodExample: `SET LOCAL lock_timeout = '2s';
ALTER TABLE users ADD COLUMN email text;`,

	Fix: "Set lock_timeout before the statement and retry the migration when it times out.",
}

func checkLockTimeoutWarning(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	if ctx.State.LockTimeoutSet {
		return nil, nil
	}
	minLevel := tracker.ShareRowExclusive
	if s := ctx.Options.GetString("minLevel", ""); s != "" {
		level, ok := tracker.ParseLockMode(s)
		if !ok {
			return nil, fmt.Errorf("invalid minLevel %q", s)
		}
		minLevel = level
	}

	eff := tracker.Classify(stmt)
	if !eff.DDL || eff.Target.Name == "" || createdEarlier(ctx, eff.Target) {
		return nil, nil
	}

	// A plain CREATE INDEX takes SHARE, which still blocks every write.
	if idx, ok := stmt.(*ast.CreateIndexStmt); ok && !idx.Concurrently {
		name := idx.Name
		if name == "" {
			name = "(unnamed)"
		}
		return []lint.Diagnostic{report(ctx, idx.Span,
			fmt.Sprintf("Statement takes SHARE lock on %s while creating index %s without lock timeout set.", qualified(idx.Relation), name),
			"This blocks writes to the table indefinitely if another transaction holds a conflicting lock.",
			"Run 'SET LOCAL lock_timeout = '2s';' before this statement, or use CREATE INDEX CONCURRENTLY to avoid blocking writes.")}, nil
	}
	if eff.Lock < minLevel {
		return nil, nil
	}
	return []lint.Diagnostic{report(ctx, stmt.GetSpan(),
		fmt.Sprintf("Statement takes %s lock on %s without lock timeout set.", eff.Lock.SQLName(), qualified(eff.Target)),
		"This can block all operations on the table indefinitely if another transaction holds a conflicting lock.",
		"Run 'SET LOCAL lock_timeout = '2s';' before this statement and retry the migration if it times out.")}, nil
}
