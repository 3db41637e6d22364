package ast

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/lexer"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// Parse parses the text of a single statement. A trailing semicolon is
// allowed. Statements it does not model yield *UnknownStmt rather than an
// error; errors are reserved for text that is not a well-formed statement
// of a modelled kind.
func Parse(text string) (Node, error) {
	tokens, lexErrs := lexer.Tokenize(text)
	if len(lexErrs) > 0 {
		e := lexErrs[0]
		return nil, &ParseError{Offset: e.Span.Start.Offset, End: e.Span.End.Offset, Message: e.Message}
	}

	sig := lexer.Significant(tokens)
	eof := sig[len(sig)-1]
	sig = sig[:len(sig)-1]
	for len(sig) > 0 && sig[len(sig)-1].Type == token.SEMICOLON {
		sig = sig[:len(sig)-1]
	}
	if len(sig) == 0 {
		return nil, &ParseError{Offset: 0, End: len(text), Message: errEmptyStatement}
	}
	if err := checkParens(sig); err != nil {
		return nil, err
	}

	p := newParser(text, sig, eof)
	return p.statement()
}

func checkParens(toks []token.Token) error {
	var open []token.Token
	for _, tok := range toks {
		switch tok.Type {
		case token.LPAREN:
			open = append(open, tok)
		case token.RPAREN:
			if len(open) == 0 {
				return &ParseError{Offset: tok.Pos.Offset, End: tok.End.Offset, Message: errUnexpectedClosing}
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		tok := open[len(open)-1]
		return &ParseError{Offset: tok.Pos.Offset, End: tok.End.Offset, Message: errUnbalancedParens}
	}
	return nil
}

// parser walks the significant tokens of one statement, or of one element
// of it (a column definition, an ALTER TABLE subcommand).
type parser struct {
	src  string
	toks []token.Token // significant tokens followed by EOF
	pos  int
}

func newParser(src string, toks []token.Token, eof token.Token) *parser {
	all := make([]token.Token, 0, len(toks)+1)
	all = append(all, toks...)
	if len(toks) > 0 {
		last := toks[len(toks)-1].End
		eof = token.Token{Type: token.EOF, Pos: last, End: last}
	}
	all = append(all, eof)
	return &parser{src: src, toks: all}
}

// sub returns a parser over toks[start:end] of p.
func (p *parser) sub(start, end int) *parser {
	return newParser(p.src, p.toks[start:end], p.toks[end])
}

func (p *parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *parser) peek(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) atEOF() bool {
	return p.cur().Type == token.EOF
}

func (p *parser) next() {
	if !p.atEOF() {
		p.pos++
	}
}

func (p *parser) at(t token.TokenType) bool {
	return p.cur().Type == t
}

func (p *parser) accept(t token.TokenType) bool {
	if p.at(t) {
		p.next()
		return true
	}
	return false
}

// isWord reports whether tok is the given word, keyword or not.
func isWord(tok token.Token, w string) bool {
	return (tok.Type == token.IDENT || token.IsKeyword(tok.Type)) && strings.EqualFold(tok.Literal, w)
}

func (p *parser) atWord(w string) bool {
	return isWord(p.cur(), w)
}

func (p *parser) acceptWord(w string) bool {
	if p.atWord(w) {
		p.next()
		return true
	}
	return false
}

// acceptWords consumes the whole sequence or nothing.
func (p *parser) acceptWords(words ...string) bool {
	for i, w := range words {
		if !isWord(p.peek(i), w) {
			return false
		}
	}
	p.pos += len(words)
	return true
}

func (p *parser) errorf(format string, args ...any) error {
	tok := p.cur()
	return &ParseError{Offset: tok.Pos.Offset, End: tok.End.Offset, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(what string) error {
	if p.atEOF() {
		return p.errorf(errUnexpectedEOF, what)
	}
	return p.errorf(errUnexpectedToken, p.cur().Literal, what)
}

func (p *parser) expect(t token.TokenType) error {
	if p.accept(t) {
		return nil
	}
	return p.unexpected(t.String())
}

func (p *parser) expectWord(w string) error {
	if p.acceptWord(w) {
		return nil
	}
	return p.unexpected(strings.ToUpper(w))
}

// ident parses an identifier. Unquoted identifiers and non-reserved
// keywords used as names are folded to lower case.
func (p *parser) ident() (string, error) {
	tok := p.cur()
	switch {
	case tok.Type == token.IDENT || token.IsKeyword(tok.Type):
		p.next()
		return strings.ToLower(tok.Literal), nil
	case tok.Type == token.QUOTED_IDENT:
		p.next()
		return unquoteIdent(tok.Literal), nil
	}
	return "", p.unexpected("identifier")
}

func unquoteIdent(lit string) string {
	lit = strings.TrimPrefix(strings.TrimPrefix(lit, "U&"), "u&")
	if len(lit) >= 2 {
		lit = lit[1 : len(lit)-1]
	}
	return strings.ReplaceAll(lit, `""`, `"`)
}

func unquoteString(lit string) string {
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		return strings.ReplaceAll(lit[1:len(lit)-1], "''", "'")
	}
	return lit
}

// qualifiedName parses name, schema.name or catalog.schema.name.
func (p *parser) qualifiedName() (QualifiedName, error) {
	parts := make([]string, 0, 3)
	for {
		part, err := p.ident()
		if err != nil {
			return QualifiedName{}, err
		}
		parts = append(parts, part)
		if !p.at(token.DOT) {
			break
		}
		p.next()
	}
	if len(parts) == 1 {
		return QualifiedName{Name: parts[0]}, nil
	}
	return QualifiedName{Schema: parts[len(parts)-2], Name: parts[len(parts)-1]}, nil
}

// nameList parses a comma separated list of names, skipping a trailing
// parenthesized group (column lists, function signatures) and the * of
// inheritance after each name.
func (p *parser) nameList() ([]QualifiedName, error) {
	var names []QualifiedName
	for {
		name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		p.accept(token.STAR)
		if p.at(token.LPAREN) {
			p.skipGroup()
		}
		if !p.accept(token.COMMA) {
			return names, nil
		}
	}
}

// skipGroup consumes a balanced parenthesized group at the current token.
func (p *parser) skipGroup() {
	if !p.at(token.LPAREN) {
		return
	}
	depth := 0
	for !p.atEOF() {
		switch p.cur().Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.next()
		if depth == 0 {
			return
		}
	}
}

// groupElements returns the token index ranges of the comma separated
// elements of the parenthesized group at the current token and moves past
// the group.
func (p *parser) groupElements() [][2]int {
	if !p.at(token.LPAREN) {
		return nil
	}
	start := p.pos
	p.skipGroup()
	return splitTopLevel(p.toks, start+1, p.pos-1)
}

// restElements splits the remaining tokens on top-level commas.
func (p *parser) restElements() [][2]int {
	start := p.pos
	p.pos = len(p.toks) - 1
	return splitTopLevel(p.toks, start, p.pos)
}

func splitTopLevel(toks []token.Token, start, end int) [][2]int {
	var out [][2]int
	depth := 0
	from := start
	for i := start; i < end; i++ {
		switch toks[i].Type {
		case token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
		case token.COMMA:
			if depth == 0 {
				out = append(out, [2]int{from, i})
				from = i + 1
			}
		}
	}
	if from < end {
		out = append(out, [2]int{from, end})
	}
	return out
}

// textFrom returns the source text of tokens [start, p.pos).
func (p *parser) textFrom(start int) string {
	if start >= p.pos {
		return ""
	}
	return p.src[p.toks[start].Pos.Offset:p.toks[p.pos-1].End.Offset]
}

// spanFrom returns the span of tokens [start, p.pos).
func (p *parser) spanFrom(start int) token.Span {
	if start >= p.pos {
		return token.Span{Start: p.toks[start].Pos, End: p.toks[start].Pos}
	}
	return token.Span{Start: p.toks[start].Pos, End: p.toks[p.pos-1].End}
}

// fullSpan covers every token the parser was given.
func (p *parser) fullSpan() token.Span {
	last := len(p.toks) - 2
	if last < 0 {
		return token.Span{}
	}
	return token.Span{Start: p.toks[0].Pos, End: p.toks[last].End}
}

// findTopLevel returns the index of the first top-level token at or after
// the current position matching fn, or -1.
func (p *parser) findTopLevel(fn func(i int) bool) int {
	depth := 0
	for i := p.pos; i < len(p.toks)-1; i++ {
		switch p.toks[i].Type {
		case token.LPAREN:
			depth++
			continue
		case token.RPAREN:
			depth--
			continue
		}
		if depth == 0 && fn(i) {
			return i
		}
	}
	return -1
}

func (p *parser) statement() (Node, error) {
	span := p.fullSpan()
	switch p.cur().Type {
	case token.WITH:
		p.next()
		p.acceptWord("RECURSIVE")
		// The CTE list is skipped; the statement it prefixes decides the kind.
		for !p.atEOF() {
			switch p.cur().Type {
			case token.SELECT, token.INSERT, token.UPDATE, token.DELETE, token.MERGE, token.VALUES:
				return p.statement()
			case token.LPAREN:
				p.skipGroup()
			default:
				p.next()
			}
		}
		return nil, p.unexpected("SELECT, INSERT, UPDATE, DELETE or MERGE")
	case token.SELECT, token.VALUES, token.TABLE, token.LPAREN:
		return p.selectStmt(span), nil
	case token.INSERT:
		p.next()
		if err := p.expect(token.INTO); err != nil {
			return nil, err
		}
		rel, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		return &InsertStmt{NodeInfo: NodeInfo{Span: span}, Relation: rel}, nil
	case token.UPDATE:
		p.next()
		p.accept(token.ONLY)
		rel, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		return &UpdateStmt{NodeInfo: NodeInfo{Span: span}, Relation: rel}, nil
	case token.DELETE:
		p.next()
		if err := p.expect(token.FROM); err != nil {
			return nil, err
		}
		p.accept(token.ONLY)
		rel, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		return &DeleteStmt{NodeInfo: NodeInfo{Span: span}, Relation: rel}, nil
	case token.MERGE:
		p.next()
		if err := p.expect(token.INTO); err != nil {
			return nil, err
		}
		rel, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		return &MergeStmt{NodeInfo: NodeInfo{Span: span}, Relation: rel}, nil
	case token.CREATE:
		return p.createStmt(span)
	case token.ALTER:
		return p.alterStmt(span)
	case token.DROP:
		return p.dropStmt(span)
	case token.TRUNCATE:
		return p.truncateStmt(span)
	case token.LOCK:
		return p.lockStmt(span)
	case token.VACUUM:
		return p.vacuumStmt(span)
	case token.ANALYZE:
		p.next()
		p.accept(token.VERBOSE)
		p.skipGroup()
		stmt := &AnalyzeStmt{NodeInfo: NodeInfo{Span: span}}
		if !p.atEOF() {
			rels, err := p.nameList()
			if err != nil {
				return nil, err
			}
			stmt.Relations = rels
		}
		return stmt, nil
	case token.REINDEX:
		return p.reindexStmt(span)
	case token.REFRESH:
		return p.refreshStmt(span)
	case token.CLUSTER:
		p.next()
		p.accept(token.VERBOSE)
		p.skipGroup()
		stmt := &ClusterStmt{NodeInfo: NodeInfo{Span: span}}
		if !p.atEOF() {
			rel, err := p.qualifiedName()
			if err != nil {
				return nil, err
			}
			stmt.Relation = rel
		}
		return stmt, nil
	case token.BEGIN, token.START, token.COMMIT, token.END, token.ROLLBACK, token.ABORT,
		token.SAVEPOINT, token.RELEASE:
		return p.transactionStmt(span)
	case token.PREPARE:
		if isWord(p.peek(1), "TRANSACTION") {
			return &TransactionStmt{NodeInfo: NodeInfo{Span: span}, Kind: TransPrepare}, nil
		}
	case token.SET:
		return p.setStmt(span)
	case token.RESET:
		p.next()
		start := p.pos
		p.pos = len(p.toks) - 1
		name := strings.ToLower(p.textFrom(start))
		if name == "" {
			return nil, p.unexpected("parameter name")
		}
		return &VariableSetStmt{NodeInfo: NodeInfo{Span: span}, Name: name, Reset: true}, nil
	}
	return &UnknownStmt{NodeInfo: NodeInfo{Span: span}, Keyword: strings.ToUpper(p.cur().Literal)}, nil
}

func (p *parser) selectStmt(span token.Span) *SelectStmt {
	stmt := &SelectStmt{NodeInfo: NodeInfo{Span: span}}
	idx := p.findTopLevel(func(i int) bool {
		if p.toks[i].Type != token.FOR {
			return false
		}
		next := p.toks[i+1]
		return next.Type == token.UPDATE || next.Type == token.SHARE || next.Type == token.NO || next.Type == token.KEY
	})
	stmt.ForUpdate = idx >= 0
	return stmt
}

func (p *parser) transactionStmt(span token.Span) (Node, error) {
	stmt := &TransactionStmt{NodeInfo: NodeInfo{Span: span}}
	first := p.cur().Type
	p.next()
	switch first {
	case token.BEGIN:
		stmt.Kind = TransBegin
	case token.START:
		if err := p.expect(token.TRANSACTION); err != nil {
			return nil, err
		}
		stmt.Kind = TransStart
	case token.COMMIT, token.END:
		stmt.Kind = TransCommit
		if p.acceptWord("PREPARED") {
			stmt.Kind = TransCommitPrepared
		}
	case token.ROLLBACK, token.ABORT:
		stmt.Kind = TransRollback
		switch {
		case p.acceptWord("PREPARED"):
			stmt.Kind = TransRollbackPrepared
		default:
			p.accept(token.WORK)
			p.accept(token.TRANSACTION)
			if p.accept(token.TO) {
				stmt.Kind = TransRollbackTo
			}
		}
	case token.SAVEPOINT:
		stmt.Kind = TransSavepoint
	case token.RELEASE:
		stmt.Kind = TransRelease
	}
	return stmt, nil
}

func (p *parser) setStmt(span token.Span) (Node, error) {
	p.next()
	stmt := &VariableSetStmt{NodeInfo: NodeInfo{Span: span}}
	if p.accept(token.LOCAL) {
		stmt.Local = true
	} else {
		p.accept(token.SESSION)
	}
	if p.at(token.TRANSACTION) {
		p.next()
		stmt.Name = "transaction"
		start := p.pos
		p.pos = len(p.toks) - 1
		stmt.Value = p.textFrom(start)
		return stmt, nil
	}

	start := p.pos
	for !p.atEOF() && !p.at(token.TO) && !p.at(token.EQ) {
		if _, err := p.ident(); err != nil {
			return nil, err
		}
		if !p.accept(token.DOT) {
			break
		}
	}
	stmt.Name = strings.ToLower(p.textFrom(start))
	if stmt.Name == "time" && p.acceptWord("ZONE") {
		stmt.Name = "timezone"
	}
	if stmt.Name == "" {
		return nil, p.unexpected("parameter name")
	}
	if !p.accept(token.TO) && !p.accept(token.EQ) {
		// SET TIME ZONE, SET SCHEMA, SET NAMES, SET ROLE
		if p.atEOF() {
			return nil, p.unexpected("TO or =")
		}
	}
	valueStart := p.pos
	p.pos = len(p.toks) - 1
	if valueStart == p.pos-1 && p.toks[valueStart].Type == token.STRING {
		stmt.Value = unquoteString(p.toks[valueStart].Literal)
	} else {
		stmt.Value = p.textFrom(valueStart)
	}
	return stmt, nil
}
