package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// RunningStatementWhileHoldingAccessExclusive flags statements that run
// after an earlier statement in the same transaction took an ACCESS
// EXCLUSIVE lock.
var RunningStatementWhileHoldingAccessExclusive = lint.RuleDef{
	Name:        "runningStatementWhileHoldingAccessExclusive",
	Group:       Group,
	Description: "Statement runs while an ACCESS EXCLUSIVE lock is held.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"eugene/E4"},
	Check:       checkRunningStatementWhileHoldingAccessExclusive,

	Rationale: `An ACCESS EXCLUSIVE lock is held until the transaction ends. Every statement
that runs after it extends the time in which no other session can even read the
locked table.`,

	BadExample: `ALTER TABLE users ADD COLUMN email text;
UPDATE users SET email = '';`,

	GoodExample: `ALTER TABLE users ADD COLUMN email text;
-- next migration
UPDATE users SET email = '';`,
}

func checkRunningStatementWhileHoldingAccessExclusive(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	if !ctx.State.HoldingAccessExclusive() || endsTransaction(stmt) {
		return nil, nil
	}
	return []lint.Diagnostic{report(ctx, stmt.GetSpan(),
		"Running statement while holding ACCESS EXCLUSIVE lock.",
		"This blocks all access to the table for the duration of this statement.",
		"Run this statement in a separate transaction to minimize lock duration.")}, nil
}

// endsTransaction reports whether stmt releases the locks of the open
// transaction.
func endsTransaction(stmt ast.Node) bool {
	tx, ok := stmt.(*ast.TransactionStmt)
	if !ok {
		return false
	}
	switch tx.Kind {
	case ast.TransCommit, ast.TransRollback, ast.TransPrepare:
		return true
	}
	return false
}
