// Package token defines the lexical tokens of Postgres SQL.
//
// Unlike a parser-oriented token set, trivia (whitespace, line endings and
// comments) are real tokens here: the statement splitter needs them to tell
// a blank line from a single line break and to trim statement ranges.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Trivia
	WHITESPACE  // spaces, tabs, vertical tabs, form feeds
	LINE_ENDING // one or more line breaks
	COMMENT     // -- line or /* block */

	// Literals
	IDENT         // identifier
	QUOTED_IDENT  // "Identifier"
	NUMBER        // 123, 45.67, 1e10
	STRING        // 'hello', E'\n', B'01', X'1F', U&'d\0061t'
	DOLLAR_STRING // $$body$$, $fn$body$fn$
	PARAM         // $1

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	DOT       // .
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	COLON     // :
	DCOLON    // ::
	BACKSLASH // \ (psql meta-command)
	STAR      // *
	EQ        // =
	OPERATOR  // any other operator

	keywordBeg

	// Keywords (alphabetical)
	ABORT
	ACCESS
	ADD
	ADMIN
	AFTER
	ALL
	ALSO
	ALTER
	ANALYZE
	AND
	AS
	ATOMIC
	BEFORE
	BEGIN
	BY
	CALL
	CASCADE
	CASCADED
	CASE
	CHECK
	CHECKPOINT
	CLOSE
	CLUSTER
	COLUMN
	COMMENT_KW
	COMMIT
	CONCURRENTLY
	CONSTRAINT
	COPY
	CREATE
	DATA
	DATABASE
	DEALLOCATE
	DECLARE
	DEFAULT
	DELETE
	DISCARD
	DO
	DROP
	ELSE
	END
	EXCEPT
	EXCLUSIVE
	EXECUTE
	EXISTS
	EXPLAIN
	EXTENSION
	FETCH
	FOR
	FOREIGN
	FROM
	FULL
	FUNCTION
	GENERATED
	GRANT
	HOLD
	IF
	IMPORT
	IN
	INDEX
	INHERIT
	INSERT
	INSTEAD
	INTERSECT
	INTO
	IS
	KEY
	LANGUAGE
	LISTEN
	LOAD
	LOCAL
	LOCK
	MATERIALIZED
	MERGE
	MODE
	MOVE
	NO
	NOT
	NOTIFY
	NULL
	OF
	ON
	ONLY
	OR
	ORDINALITY
	PREPARE
	PRIMARY
	PROCEDURE
	REASSIGN
	RECURSIVE
	REFERENCES
	REFRESH
	REINDEX
	RELEASE
	RENAME
	REPLACE
	RESET
	RESTART
	REVOKE
	ROLLBACK
	SAVEPOINT
	SCHEMA
	SECURITY
	SELECT
	SESSION
	SET
	SHARE
	SHOW
	START
	TABLE
	THEN
	TIME
	TO
	TRANSACTION
	TRIGGER
	TRUNCATE
	TYPE
	UNION
	UNIQUE
	UNLISTEN
	UPDATE
	USING
	VACUUM
	VALIDATE
	VALUES
	VERBOSE
	VIEW
	WHEN
	WITH
	WORK

	keywordEnd
)

var tokenNames = map[TokenType]string{
	EOF:           "EOF",
	ILLEGAL:       "ILLEGAL",
	WHITESPACE:    "WHITESPACE",
	LINE_ENDING:   "LINE_ENDING",
	COMMENT:       "COMMENT",
	IDENT:         "IDENT",
	QUOTED_IDENT:  "QUOTED_IDENT",
	NUMBER:        "NUMBER",
	STRING:        "STRING",
	DOLLAR_STRING: "DOLLAR_STRING",
	PARAM:         "PARAM",
	SEMICOLON:     ";",
	COMMA:         ",",
	DOT:           ".",
	LPAREN:        "(",
	RPAREN:        ")",
	LBRACKET:      "[",
	RBRACKET:      "]",
	COLON:         ":",
	DCOLON:        "::",
	BACKSLASH:     "\\",
	STAR:          "*",
	EQ:            "=",
	OPERATOR:      "OPERATOR",
}

// keywords maps lowercase keyword text to its token type.
var keywords = map[string]TokenType{}

func init() {
	for t := keywordBeg + 1; t < keywordEnd; t++ {
		name := keywordText(t)
		keywords[strings.ToLower(name)] = t
		if _, ok := tokenNames[t]; !ok {
			tokenNames[t] = name
		}
	}
}

// keywordText returns the SQL spelling of a keyword token.
func keywordText(t TokenType) string {
	return keywordSpelling[t-keywordBeg-1]
}

// keywordSpelling follows the order of the keyword constants.
var keywordSpelling = [...]string{
	"ABORT", "ACCESS", "ADD", "ADMIN", "AFTER", "ALL", "ALSO", "ALTER", "ANALYZE", "AND", "AS", "ATOMIC",
	"BEFORE", "BEGIN", "BY",
	"CALL", "CASCADE", "CASCADED", "CASE", "CHECK", "CHECKPOINT", "CLOSE", "CLUSTER", "COLUMN", "COMMENT",
	"COMMIT", "CONCURRENTLY", "CONSTRAINT", "COPY", "CREATE",
	"DATA", "DATABASE", "DEALLOCATE", "DECLARE", "DEFAULT", "DELETE", "DISCARD", "DO", "DROP",
	"ELSE", "END", "EXCEPT", "EXCLUSIVE", "EXECUTE", "EXISTS", "EXPLAIN", "EXTENSION",
	"FETCH", "FOR", "FOREIGN", "FROM", "FULL", "FUNCTION",
	"GENERATED", "GRANT",
	"HOLD",
	"IF", "IMPORT", "IN", "INDEX", "INHERIT", "INSERT", "INSTEAD", "INTERSECT", "INTO", "IS",
	"KEY",
	"LANGUAGE", "LISTEN", "LOAD", "LOCAL", "LOCK",
	"MATERIALIZED", "MERGE", "MODE", "MOVE",
	"NO", "NOT", "NOTIFY", "NULL",
	"OF", "ON", "ONLY", "OR", "ORDINALITY",
	"PREPARE", "PRIMARY", "PROCEDURE",
	"REASSIGN", "RECURSIVE", "REFERENCES", "REFRESH", "REINDEX", "RELEASE", "RENAME", "REPLACE", "RESET",
	"RESTART", "REVOKE", "ROLLBACK",
	"SAVEPOINT", "SCHEMA", "SECURITY", "SELECT", "SESSION", "SET", "SHARE", "SHOW", "START",
	"TABLE", "THEN", "TIME", "TO", "TRANSACTION", "TRIGGER", "TRUNCATE", "TYPE",
	"UNION", "UNIQUE", "UNLISTEN", "UPDATE", "USING",
	"VACUUM", "VALIDATE", "VALUES", "VERBOSE", "VIEW",
	"WHEN", "WITH", "WORK",
}

// String returns the string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// Token represents a lexical token with its position in the source.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position // first byte
	End     Position // one past the last byte
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}

// Newlines returns the number of line breaks in a LINE_ENDING token.
// A CRLF pair counts once.
func (t Token) Newlines() int {
	if t.Type != LINE_ENDING {
		return 0
	}
	n := 0
	for i := 0; i < len(t.Literal); i++ {
		switch t.Literal[i] {
		case '\n':
			n++
		case '\r':
			if i+1 >= len(t.Literal) || t.Literal[i+1] != '\n' {
				n++
			}
		}
	}
	return n
}

// LookupIdent returns the token type for an identifier.
// Keywords are matched case-insensitively.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t > keywordBeg && t < keywordEnd
}

// IsTrivia returns true for whitespace, line endings and comments.
func IsTrivia(t TokenType) bool {
	return t == WHITESPACE || t == LINE_ENDING || t == COMMENT
}

// IsLiteral returns true for identifiers, strings, numbers and parameters.
func IsLiteral(t TokenType) bool {
	return t >= IDENT && t <= PARAM
}
