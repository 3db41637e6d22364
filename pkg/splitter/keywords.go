package splitter

import "github.com/leapstack-labs/pgcheck/pkg/token"

func set(kinds ...token.TokenType) map[token.TokenType]bool {
	m := make(map[token.TokenType]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// statementStarts are the keywords that can begin a top-level statement.
// BEGIN is handled separately because it also opens BEGIN ATOMIC blocks.
var statementStarts = set(
	token.ABORT, token.ALTER, token.ANALYZE, token.CALL, token.CHECKPOINT,
	token.CLOSE, token.CLUSTER, token.COMMENT_KW, token.COMMIT, token.COPY,
	token.CREATE, token.DEALLOCATE, token.DECLARE, token.DELETE, token.DISCARD,
	token.DO, token.DROP, token.EXECUTE, token.EXPLAIN, token.FETCH,
	token.GRANT, token.IMPORT, token.INSERT, token.LISTEN, token.LOAD,
	token.LOCK, token.MERGE, token.MOVE, token.NOTIFY, token.PREPARE,
	token.REASSIGN, token.REFRESH, token.REINDEX, token.RELEASE, token.RESET,
	token.REVOKE, token.ROLLBACK, token.SAVEPOINT, token.SECURITY, token.SELECT,
	token.SET, token.SHOW, token.START, token.TRUNCATE, token.UNLISTEN,
	token.UPDATE, token.VACUUM, token.VALUES, token.WITH,
)

// selectContinuations precede a SELECT that belongs to the current
// statement: set operations, CREATE ... AS SELECT, rules, GRANT SELECT.
var selectContinuations = set(
	token.FOR, token.AS, token.ON, token.ALSO, token.INSTEAD, token.UNION,
	token.ALL, token.EXCEPT, token.INTERSECT, token.GRANT, token.REVOKE,
	token.COMMA, token.ATOMIC,
)

// dmlContinuations precede an INSERT, UPDATE or DELETE that belongs to the
// current statement: trigger events, FK actions, FOR UPDATE, ON CONFLICT
// DO UPDATE, MERGE actions, privileges.
var dmlContinuations = set(
	token.BEFORE, token.AFTER, token.FOR, token.OR, token.OF, token.ON,
	token.ALSO, token.INSTEAD, token.GRANT, token.REVOKE, token.COMMA,
	token.DO, token.KEY, token.THEN, token.ATOMIC,
)

// withContinuations follow a WITH that is not a CTE list.
var withContinuations = set(
	token.ORDINALITY, token.CHECK, token.TIME, token.GRANT, token.ADMIN,
	token.INHERIT, token.SET, token.DATA, token.NO, token.LOCAL,
	token.CASCADED, token.HOLD, token.LPAREN,
)

// genericContinuations precede any other statement keyword that belongs to
// the current statement, e.g. AFTER TRUNCATE, GRANT EXECUTE, ROLLBACK TO
// SAVEPOINT, VACUUM ANALYZE.
var genericContinuations = set(
	token.BEFORE, token.AFTER, token.FOR, token.OR, token.OF, token.ON,
	token.ALSO, token.INSTEAD, token.GRANT, token.REVOKE, token.COMMA,
	token.DO, token.TO, token.THEN, token.RELEASE, token.VACUUM, token.KEY,
)

var (
	selectExclusions = []token.TokenType{token.FETCH}
	insertExclusions = []token.TokenType{token.SELECT, token.VALUES, token.SET, token.DO, token.WITH}
	updateExclusions = []token.TokenType{token.SET}
	mergeExclusions  = []token.TokenType{token.SET, token.VALUES, token.DO}
	createExclusions = []token.TokenType{
		token.WITH, token.EXECUTE, token.START, token.SET, token.RESET, token.DROP,
		token.DELETE, token.COMMIT, token.DO, token.VALUES, token.SECURITY,
	}
	alterExclusions = []token.TokenType{
		token.ALTER, token.DROP, token.SET, token.RESET, token.WITH, token.CLUSTER,
		token.GRANT, token.REVOKE, token.START,
	}
)
