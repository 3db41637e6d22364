package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// BanConcurrentIndexCreationInTransaction flags CREATE INDEX CONCURRENTLY
// that would run inside a transaction block.
var BanConcurrentIndexCreationInTransaction = lint.RuleDef{
	Name:        "banConcurrentIndexCreationInTransaction",
	Group:       Group,
	Description: "CREATE INDEX CONCURRENTLY cannot run inside a transaction block.",
	Severity:    lint.SeverityError,
	Recommended: true,
	Sources:     []string{"squawk/ban-concurrent-index-creation-in-transaction"},
	Check:       checkBanConcurrentIndexCreationInTransaction,

	Rationale: `Postgres refuses to build an index concurrently inside a transaction block.
Migration runners usually wrap each file in a transaction, so a concurrent index
next to other statements fails at deploy time.`,

	BadExample: `CREATE TABLE users (id bigint);
CREATE INDEX CONCURRENTLY users_id_idx ON users (id);`,

	GoodExample: `-- a migration of its own
CREATE INDEX CONCURRENTLY users_id_idx ON users (id);`,

	Fix: "Move the statement into its own migration, or run it outside the migration tool.",
}

func checkBanConcurrentIndexCreationInTransaction(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	idx, ok := stmt.(*ast.CreateIndexStmt)
	if !ok || !idx.Concurrently {
		return nil, nil
	}
	if ctx.State.Mode != tracker.Explicit && ctx.ScopeSize <= 1 {
		return nil, nil
	}
	return []lint.Diagnostic{report(ctx, idx.Span,
		"CREATE INDEX CONCURRENTLY cannot be used inside a transaction block.",
		"Run CREATE INDEX CONCURRENTLY outside of a transaction. Migration tools usually run in transactions, so you may need to run this statement in its own migration or manually.",
		"")}, nil
}
