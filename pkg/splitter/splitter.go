// Package splitter finds statement boundaries in Postgres SQL.
//
// The splitter is not a parser. It knows a small set of statement-start
// keywords and a handful of constructs that must be consumed whole
// (parentheses, CASE ... END, BEGIN ATOMIC ... END, CTE lists), and it
// scans forward from a statement start until a semicolon, a blank line or
// the next unambiguous statement start. It works on invalid and incomplete
// SQL: problems are reported as diagnostics and splitting always continues.
package splitter

import (
	"github.com/leapstack-labs/pgcheck/pkg/lexer"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// StatementRange is the text of one statement and its byte offsets in the
// source. End is exclusive.
type StatementRange struct {
	Text  string
	Start int
	End   int
}

// Diagnostic is a problem found while splitting, anchored to a byte range.
type Diagnostic struct {
	Message string
	Start   int
	End     int
}

// Result holds the statements of a source text in order, plus the lexer
// and splitter diagnostics.
type Result struct {
	Ranges      []StatementRange
	Diagnostics []Diagnostic
}

// Split tokenizes sql and splits it into statements.
func Split(sql string) *Result {
	tokens, lexErrs := lexer.Tokenize(sql)
	res := SplitTokens(sql, tokens)
	if len(lexErrs) == 0 {
		return res
	}
	diags := make([]Diagnostic, 0, len(lexErrs)+len(res.Diagnostics))
	for _, e := range lexErrs {
		diags = append(diags, Diagnostic{Message: e.Message, Start: e.Span.Start.Offset, End: e.Span.End.Offset})
	}
	res.Diagnostics = append(diags, res.Diagnostics...)
	return res
}

// SplitTokens splits an already tokenized source. tokens must be the
// complete, lossless token stream of src ending with EOF.
func SplitTokens(src string, tokens []token.Token) *Result {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		end := len(src)
		tokens = append(tokens, token.Token{
			Type: token.EOF,
			Pos:  token.Position{Offset: end},
			End:  token.Position{Offset: end},
		})
	}
	p := &splitter{src: src, tokens: tokens, stmtStart: -1}
	p.pos = p.nextSignificant(-1)
	p.source()
	return &Result{Ranges: p.ranges, Diagnostics: p.diags}
}

type splitter struct {
	src       string
	tokens    []token.Token
	pos       int // index of the current, non-trivia token
	stmtStart int // index of the first token of the open statement, -1 if none

	ranges []StatementRange
	diags  []Diagnostic
}

// isTrivia reports whether the token at i is skipped by advance. A line
// ending that holds a blank line is significant: it separates statements.
func (p *splitter) isTrivia(i int) bool {
	tok := p.tokens[i]
	switch tok.Type {
	case token.WHITESPACE, token.COMMENT:
		return true
	case token.LINE_ENDING:
		return tok.Newlines() < 2
	}
	return false
}

func (p *splitter) nextSignificant(from int) int {
	i := from + 1
	for i < len(p.tokens)-1 && p.isTrivia(i) {
		i++
	}
	if i > len(p.tokens)-1 {
		i = len(p.tokens) - 1
	}
	return i
}

func (p *splitter) current() token.Token {
	return p.tokens[p.pos]
}

func (p *splitter) kind() token.TokenType {
	return p.tokens[p.pos].Type
}

func (p *splitter) atEOF() bool {
	return p.kind() == token.EOF
}

// advance moves to the next significant token. It is a no-op at EOF.
func (p *splitter) advance() {
	if p.atEOF() {
		return
	}
	p.pos = p.nextSignificant(p.pos)
}

// lookAhead returns the type of the next significant token.
func (p *splitter) lookAhead() token.TokenType {
	if p.atEOF() {
		return token.EOF
	}
	return p.tokens[p.nextSignificant(p.pos)].Type
}

// lookBack returns the type of the previous token that is not whitespace or
// a comment. Line endings are skipped only when skipLineEndings is set.
// It returns EOF when there is no such token.
func (p *splitter) lookBack(skipLineEndings bool) token.TokenType {
	for i := p.pos - 1; i >= 0; i-- {
		switch p.tokens[i].Type {
		case token.WHITESPACE, token.COMMENT:
			continue
		case token.LINE_ENDING:
			if skipLineEndings {
				continue
			}
		}
		return p.tokens[i].Type
	}
	return token.EOF
}

func (p *splitter) startStmt() {
	p.stmtStart = p.pos
}

// closeStmt records the open statement, ending at the last significant
// token consumed.
func (p *splitter) closeStmt() {
	if p.stmtStart < 0 {
		return
	}
	start := p.stmtStart
	p.stmtStart = -1

	last := p.pos - 1
	for last >= start && (token.IsTrivia(p.tokens[last].Type) || p.tokens[last].Type == token.EOF) {
		last--
	}
	if last < start {
		return
	}
	from, to := p.tokens[start].Pos.Offset, p.tokens[last].End.Offset
	p.ranges = append(p.ranges, StatementRange{Text: p.src[from:to], Start: from, End: to})
}

// errorAt records a diagnostic on the current token, or on the previous
// significant token when the input has ended.
func (p *splitter) errorAt(msg string) {
	tok := p.current()
	if tok.Type == token.EOF {
		for i := p.pos - 1; i >= 0; i-- {
			if !token.IsTrivia(p.tokens[i].Type) {
				tok = p.tokens[i]
				break
			}
		}
	}
	p.diags = append(p.diags, Diagnostic{Message: msg, Start: tok.Pos.Offset, End: tok.End.Offset})
}

// expect consumes a token of the given type or reports it missing.
func (p *splitter) expect(kind token.TokenType) bool {
	if p.kind() == kind {
		p.advance()
		return true
	}
	p.errorAt("Expected " + kind.String())
	return false
}

// eat consumes the current token if it has the given type.
func (p *splitter) eat(kind token.TokenType) bool {
	if p.kind() == kind {
		p.advance()
		return true
	}
	return false
}
