package splitter

import "github.com/leapstack-labs/pgcheck/pkg/token"

// source is the top-level loop over the whole input.
func (p *splitter) source() {
	for !p.atEOF() {
		switch p.kind() {
		case token.LINE_ENDING, token.SEMICOLON:
			p.advance()
		case token.BACKSLASH:
			p.metaCommand()
		default:
			p.statement()
		}
	}
}

// statement scans one statement and records its range.
func (p *splitter) statement() {
	p.startStmt()
	p.body()
	p.closeStmt()
}

// body dispatches on the first token of a statement.
func (p *splitter) body() {
	switch p.kind() {
	case token.WITH:
		p.cte()
	case token.SELECT:
		p.expect(token.SELECT)
		p.unknown(selectExclusions)
	case token.INSERT:
		p.expect(token.INSERT)
		p.expect(token.INTO)
		p.unknown(insertExclusions)
	case token.UPDATE:
		p.expect(token.UPDATE)
		p.unknown(updateExclusions)
	case token.DELETE:
		p.expect(token.DELETE)
		p.expect(token.FROM)
		p.unknown(nil)
	case token.MERGE:
		p.expect(token.MERGE)
		p.unknown(mergeExclusions)
	case token.CREATE:
		p.expect(token.CREATE)
		p.unknown(createExclusions)
	case token.ALTER:
		p.expect(token.ALTER)
		p.unknown(alterExclusions)
	case token.EXPLAIN:
		p.explain()
	default:
		p.unknown(nil)
	}
}

// metaCommand consumes a psql backslash command up to the end of its line.
// Line endings are normally skipped by advance, so this walks raw tokens.
func (p *splitter) metaCommand() {
	p.startStmt()
	i := p.pos
	for i < len(p.tokens)-1 && p.tokens[i].Type != token.LINE_ENDING {
		i++
	}
	p.pos = i
	p.closeStmt()
	if !p.atEOF() && p.isTrivia(p.pos) {
		p.pos = p.nextSignificant(p.pos)
	}
}

// cte scans WITH [RECURSIVE] name [(cols)] AS [NOT] [MATERIALIZED] (...)
// [, ...] and then the statement the CTE list belongs to.
func (p *splitter) cte() {
	p.cteList()
	switch p.kind() {
	case token.SELECT, token.INSERT, token.UPDATE, token.DELETE, token.MERGE:
		p.body()
	default:
		p.errorAt("Expected SELECT, INSERT, UPDATE, DELETE or MERGE")
		p.unknown(nil)
	}
}

// cteList consumes the WITH clause itself, up to the statement it prefixes.
func (p *splitter) cteList() {
	p.expect(token.WITH)
	p.eat(token.RECURSIVE)
	for {
		if token.IsLiteral(p.kind()) || token.IsKeyword(p.kind()) {
			p.advance()
		} else {
			p.errorAt("Expected identifier")
		}
		if p.kind() == token.LPAREN {
			p.parenthesis()
		}
		p.expect(token.AS)
		p.eat(token.NOT)
		p.eat(token.MATERIALIZED)
		p.parenthesis()
		if !p.eat(token.COMMA) {
			return
		}
	}
}

// startsCTEList reports whether the WITH at the current position opens a
// CTE list: WITH RECURSIVE, or WITH name [(cols)] AS.
func (p *splitter) startsCTEList() bool {
	i := p.nextSignificant(p.pos)
	kind := p.tokens[i].Type
	if kind == token.RECURSIVE {
		return true
	}
	if (!token.IsLiteral(kind) && !token.IsKeyword(kind)) || withContinuations[kind] {
		return false
	}
	i = p.nextSignificant(i)
	if p.tokens[i].Type == token.LPAREN {
		for depth := 1; depth > 0; {
			i = p.nextSignificant(i)
			switch p.tokens[i].Type {
			case token.EOF:
				return false
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			}
		}
		i = p.nextSignificant(i)
	}
	return p.tokens[i].Type == token.AS
}

// explain scans EXPLAIN [ANALYZE] [VERBOSE] [(options)] and the explained
// statement as part of the same range.
func (p *splitter) explain() {
	p.expect(token.EXPLAIN)
	for {
		switch p.kind() {
		case token.ANALYZE, token.VERBOSE:
			p.advance()
			continue
		case token.LPAREN:
			p.parenthesis()
			continue
		}
		break
	}
	switch p.kind() {
	case token.WITH, token.SELECT, token.INSERT, token.UPDATE, token.DELETE, token.MERGE, token.CREATE:
		p.body()
	case token.SEMICOLON, token.EOF:
		p.errorAt("Expected statement")
	default:
		p.advance()
		p.unknown(nil)
	}
}

// parenthesis consumes a balanced parenthesized group.
func (p *splitter) parenthesis() {
	if !p.expect(token.LPAREN) {
		return
	}
	depth := 1
	for {
		switch p.kind() {
		case token.EOF:
			p.errorAt("Expected )")
			return
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// caseExpr consumes CASE ... END, including nested CASE expressions.
func (p *splitter) caseExpr() {
	p.expect(token.CASE)
	for {
		switch p.kind() {
		case token.EOF:
			p.errorAt("Expected END")
			return
		case token.CASE:
			p.caseExpr()
		case token.LPAREN:
			p.parenthesis()
		case token.END:
			p.advance()
			return
		default:
			p.advance()
		}
	}
}

// beginEnd consumes a BEGIN ... END block such as a BEGIN ATOMIC function
// body, semicolons included.
func (p *splitter) beginEnd() {
	p.expect(token.BEGIN)
	for {
		switch p.kind() {
		case token.EOF:
			p.errorAt("Expected END")
			return
		case token.BEGIN:
			p.beginEnd()
		case token.CASE:
			p.caseExpr()
		case token.LPAREN:
			p.parenthesis()
		case token.END:
			p.advance()
			return
		default:
			p.advance()
		}
	}
}

// unknown consumes tokens until the statement ends: a semicolon, a blank
// line, a meta-command at the start of a line, or a statement-start keyword
// that cannot continue the current statement. Kinds in exclude never end
// the statement.
func (p *splitter) unknown(exclude []token.TokenType) {
	for {
		switch p.kind() {
		case token.EOF:
			return
		case token.SEMICOLON:
			p.advance()
			return
		case token.LINE_ENDING:
			if p.lookBack(true) != token.COMMA {
				return
			}
			p.advance()
		case token.CASE:
			p.caseExpr()
		case token.LPAREN:
			p.parenthesis()
		case token.RPAREN:
			p.errorAt("Unexpected )")
			p.advance()
		case token.BACKSLASH:
			if p.pos != p.stmtStart && p.lookBack(false) == token.LINE_ENDING {
				return
			}
			p.advance()
		case token.WITH:
			switch {
			case p.pos == p.stmtStart:
				p.advance()
			case contains(exclude, token.WITH) && p.startsCTEList():
				// CREATE VIEW v AS WITH x AS (...) SELECT ...
				p.cteList()
				switch p.kind() {
				case token.SELECT, token.INSERT, token.UPDATE, token.DELETE, token.MERGE:
					p.advance()
				}
			case p.endsStatement(token.WITH, exclude):
				return
			default:
				p.advance()
			}
		case token.BEGIN:
			switch {
			case p.lookAhead() == token.ATOMIC:
				p.beginEnd()
			case p.pos == p.stmtStart || contains(exclude, token.BEGIN):
				p.advance()
			default:
				return
			}
		default:
			if p.pos != p.stmtStart && p.endsStatement(p.kind(), exclude) {
				return
			}
			p.advance()
		}
	}
}

// endsStatement reports whether a token of the given kind, seen at nesting
// depth zero inside a statement, starts a new statement.
func (p *splitter) endsStatement(kind token.TokenType, exclude []token.TokenType) bool {
	if !statementStarts[kind] || contains(exclude, kind) {
		return false
	}
	prev := p.lookBack(true)
	switch kind {
	case token.SELECT:
		return !selectContinuations[prev]
	case token.INSERT, token.UPDATE, token.DELETE:
		return !dmlContinuations[prev]
	case token.WITH:
		return !withContinuations[p.lookAhead()]
	case token.CREATE:
		return prev != token.GRANT && prev != token.REVOKE && prev != token.COMMA
	}
	return !genericContinuations[prev]
}

func contains(kinds []token.TokenType, kind token.TokenType) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
