package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/splitter"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

func parseAll(t *testing.T, sql string) []ast.Node {
	t.Helper()
	res := splitter.Split(sql)
	require.Empty(t, res.Diagnostics)
	nodes := make([]ast.Node, 0, len(res.Ranges))
	for _, r := range res.Ranges {
		node, err := ast.Parse(r.Text)
		require.NoError(t, err, r.Text)
		nodes = append(nodes, node)
	}
	return nodes
}

func TestFold_ConcurrentIndexScenario(t *testing.T) {
	nodes := parseAll(t, "CREATE INDEX CONCURRENTLY idx ON t(c); SELECT 1;")
	require.Len(t, nodes, 2)

	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 2)

	assert.Equal(t, tracker.Implicit, snaps[0].Mode)
	assert.Equal(t, 0, snaps[0].StatementsInScope)
	assert.Equal(t, 1, snaps[1].StatementsInScope)
	assert.Equal(t, []int{2, 2}, tracker.ScopeSizes(snaps))
}

func TestFold_AccessExclusiveScenario(t *testing.T) {
	nodes := parseAll(t, "ALTER TABLE t ADD COLUMN c text; SELECT count(*) FROM t;")
	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 2)

	assert.Equal(t, tracker.AccessShare, snaps[0].HeldLockLevel, "a statement must not see its own lock")
	assert.Equal(t, tracker.AccessExclusive, snaps[1].HeldLockLevel)
	assert.True(t, snaps[1].HoldingAccessExclusive())
}

func TestFold_CommitResetsScope(t *testing.T) {
	nodes := parseAll(t, "BEGIN;\nALTER TABLE t DROP COLUMN c;\nCOMMIT;\nSELECT 1;")
	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 4)

	assert.Equal(t, tracker.Implicit, snaps[0].Mode)
	assert.Equal(t, tracker.Explicit, snaps[1].Mode)
	assert.Equal(t, 1, snaps[1].StatementsInScope)
	assert.Equal(t, tracker.AccessShare, snaps[1].HeldLockLevel)

	assert.Equal(t, tracker.Explicit, snaps[2].Mode)
	assert.Equal(t, tracker.AccessExclusive, snaps[2].HeldLockLevel)

	after := snaps[3]
	assert.Equal(t, tracker.Implicit, after.Mode)
	assert.Equal(t, 0, after.StatementsInScope)
	assert.Equal(t, tracker.AccessShare, after.HeldLockLevel)
	assert.NotEqual(t, snaps[2].Scope, after.Scope)

	assert.Equal(t, []int{3, 3, 3, 1}, tracker.ScopeSizes(snaps))
}

func TestFold_RollbackResetsScope(t *testing.T) {
	nodes := parseAll(t, "BEGIN; LOCK t; ROLLBACK; SELECT 1;")
	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 4)

	assert.Equal(t, tracker.AccessExclusive, snaps[2].HeldLockLevel)
	assert.Equal(t, tracker.AccessShare, snaps[3].HeldLockLevel)
	assert.Equal(t, 0, snaps[3].StatementsInScope)
}

func TestFold_BeginStartsScopeAfterImplicitStatements(t *testing.T) {
	nodes := parseAll(t, "ALTER TABLE a ADD COLUMN c int; BEGIN; SELECT 1; COMMIT;")
	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 4)

	assert.Equal(t, tracker.AccessShare, snaps[1].HeldLockLevel)
	assert.Equal(t, 0, snaps[1].StatementsInScope, "BEGIN opens a new scope")
	assert.Equal(t, tracker.AccessShare, snaps[2].HeldLockLevel)
	assert.Equal(t, []int{1, 3, 3, 3}, tracker.ScopeSizes(snaps))
}

func TestFold_FilePolicyNeverResets(t *testing.T) {
	nodes := parseAll(t, "BEGIN;\nALTER TABLE t DROP COLUMN c;\nCOMMIT;\nSELECT 1;")
	snaps := tracker.Fold(nodes, tracker.WithPolicy(tracker.ScopeFile))
	require.Len(t, snaps, 4)

	after := snaps[3]
	assert.Equal(t, tracker.Implicit, after.Mode)
	assert.Equal(t, 3, after.StatementsInScope)
	assert.Equal(t, tracker.AccessExclusive, after.HeldLockLevel)
	assert.Equal(t, []int{4, 4, 4, 4}, tracker.ScopeSizes(snaps))
}

func TestFold_CommitInImplicitModeKeepsScope(t *testing.T) {
	nodes := parseAll(t, "ALTER TABLE t ADD COLUMN c int; COMMIT; SELECT 1;")
	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 3)

	assert.Equal(t, 2, snaps[2].StatementsInScope)
	assert.Equal(t, tracker.AccessExclusive, snaps[2].HeldLockLevel)
}

func TestFold_LockLevelIsMonotonicWithinScope(t *testing.T) {
	sql := `CREATE INDEX i ON t (a);
ALTER TABLE t VALIDATE CONSTRAINT c;
LOCK t IN ROW EXCLUSIVE MODE;
DROP TABLE u;
VACUUM t;
SELECT 1;`
	snaps := tracker.Fold(parseAll(t, sql))
	require.Len(t, snaps, 6)

	want := []tracker.LockLevel{
		tracker.AccessShare,
		tracker.Share,
		tracker.Share,
		tracker.Share,
		tracker.AccessExclusive,
		tracker.AccessExclusive,
	}
	for i, s := range snaps {
		assert.Equal(t, want[i], s.HeldLockLevel, "statement %d", i)
		assert.Equal(t, i, s.StatementsInScope)
		if i > 0 {
			assert.GreaterOrEqual(t, s.HeldLockLevel, snaps[i-1].HeldLockLevel)
		}
	}
}

func TestFold_DMLDoesNotRaiseHeldLock(t *testing.T) {
	snaps := tracker.Fold(parseAll(t, "UPDATE t SET a = 1; SELECT * FROM t FOR UPDATE; SELECT 1;"))
	for _, s := range snaps {
		assert.Equal(t, tracker.AccessShare, s.HeldLockLevel)
	}
}

func TestFold_ObjectsCreatedInScope(t *testing.T) {
	sql := "CREATE TABLE t (id int); ALTER TABLE T ADD COLUMN c int; CREATE INDEX t_c_idx ON public.t (c); SELECT 1;"
	snaps := tracker.Fold(parseAll(t, sql))
	require.Len(t, snaps, 4)

	assert.False(t, snaps[0].HasCreated(ast.QualifiedName{Name: "t"}))
	assert.True(t, snaps[1].HasCreated(ast.QualifiedName{Name: "t"}))
	assert.True(t, snaps[1].HasCreated(ast.QualifiedName{Schema: "PUBLIC", Name: "T"}))
	assert.False(t, snaps[1].HasCreated(ast.QualifiedName{Schema: "app", Name: "t"}))
	assert.True(t, snaps[3].HasCreated(ast.QualifiedName{Name: "t_c_idx"}))

	// Locks on a table created in the same scope block nobody.
	assert.Equal(t, tracker.AccessShare, snaps[3].HeldLockLevel)
}

func TestFold_CreateTableWithReferenceLocksReferencedTable(t *testing.T) {
	snaps := tracker.Fold(parseAll(t, "CREATE TABLE child (parent_id int REFERENCES parent); SELECT 1;"))
	require.Len(t, snaps, 2)
	assert.Equal(t, tracker.ShareRowExclusive, snaps[1].HeldLockLevel)
}

func TestFold_Timeouts(t *testing.T) {
	sql := "SET lock_timeout = '2s'; SET statement_timeout = 0; ALTER TABLE t ADD COLUMN c int;"
	snaps := tracker.Fold(parseAll(t, sql))
	require.Len(t, snaps, 3)

	assert.False(t, snaps[0].LockTimeoutSet)
	assert.True(t, snaps[1].LockTimeoutSet)
	assert.True(t, snaps[2].LockTimeoutSet)
	assert.False(t, snaps[2].StatementTimeoutSet, "a zero timeout disables it")
}

func TestFold_NestedBegin(t *testing.T) {
	snaps := tracker.Fold(parseAll(t, "BEGIN; BEGIN; SELECT 1; COMMIT;"))
	require.Len(t, snaps, 4)

	assert.Equal(t, 0, snaps[0].ExplicitDepth)
	assert.Equal(t, 1, snaps[1].ExplicitDepth)
	assert.Equal(t, 2, snaps[2].ExplicitDepth)
}

func TestFold_NilStatementsCount(t *testing.T) {
	nodes := parseAll(t, "ALTER TABLE t ADD COLUMN c int;")
	nodes = append(nodes, nil, nil)

	snaps := tracker.Fold(nodes)
	require.Len(t, snaps, 3)
	assert.Equal(t, 2, snaps[2].StatementsInScope)
	assert.Equal(t, tracker.AccessExclusive, snaps[2].HeldLockLevel)
}

func TestFold_SnapshotsAreIndependent(t *testing.T) {
	snaps := tracker.Fold(parseAll(t, "CREATE TABLE a (id int); CREATE TABLE b (id int); SELECT 1;"))
	require.Len(t, snaps, 3)

	created := snaps[1].CreatedObjects()
	require.Len(t, created, 1)
	created[0].Name = "mutated"

	assert.True(t, snaps[1].HasCreated(ast.QualifiedName{Name: "a"}))
	assert.False(t, snaps[1].HasCreated(ast.QualifiedName{Name: "b"}))
	assert.Len(t, snaps[2].CreatedObjects(), 2)
}

func TestFold_Empty(t *testing.T) {
	assert.Empty(t, tracker.Fold(nil))
	assert.Empty(t, tracker.ScopeSizes(nil))
}
