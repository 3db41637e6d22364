package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// TransactionNesting flags explicit transaction control that conflicts
// with an open transaction.
var TransactionNesting = lint.RuleDef{
	Name:        "transactionNesting",
	Group:       Group,
	Description: "Transaction control conflicts with an open transaction.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/transaction-nesting"},
	Check:       checkTransactionNesting,

	Rationale: `BEGIN inside a transaction only raises a warning in Postgres and does not start
a new transaction, so a later COMMIT ends more than the author expects. COMMIT in
a file that a migration tool already wraps in a transaction ends the tool's
transaction early.`,

	BadExample: `BEGIN;
BEGIN;
ALTER TABLE users ADD COLUMN email text;
COMMIT;`,

	GoodExample: `ALTER TABLE users ADD COLUMN email text;`,
}

func checkTransactionNesting(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	tx, ok := stmt.(*ast.TransactionStmt)
	if !ok {
		return nil, nil
	}
	switch tx.Kind {
	case ast.TransBegin, ast.TransStart:
		if ctx.State.Mode == tracker.Explicit {
			return []lint.Diagnostic{report(ctx, tx.Span,
				"Nested transaction detected.",
				"Starting a transaction when already in a transaction can cause issues.",
				"")}, nil
		}
	case ast.TransCommit, ast.TransRollback:
		if ctx.State.Mode == tracker.Implicit && ctx.State.StatementsInScope > 0 {
			return []lint.Diagnostic{report(ctx, tx.Span,
				"Attempting to end transaction managed by migration tool.",
				"Migration tools manage transactions automatically. Remove explicit transaction control.",
				"Put migration statements in separate files to have them be in separate transactions.")}, nil
		}
	}
	return nil, nil
}
