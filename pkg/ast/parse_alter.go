package ast

import (
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/token"
)

func (p *parser) alterStmt(span token.Span) (Node, error) {
	p.next() // ALTER
	if !p.at(token.TABLE) {
		return p.alterObject(span)
	}
	p.next()
	if p.atWord("ALL") {
		// ALTER TABLE ALL IN TABLESPACE
		return &UnknownStmt{NodeInfo: NodeInfo{Span: span}, Keyword: "ALTER"}, nil
	}

	stmt := &AlterTableStmt{NodeInfo: NodeInfo{Span: span}}
	stmt.IfExists = p.acceptWords("IF", "EXISTS")
	p.accept(token.ONLY)
	rel, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt.Relation = rel
	p.accept(token.STAR)
	if p.atEOF() {
		return nil, p.unexpected("ALTER TABLE action")
	}

	for _, el := range p.restElements() {
		cmd, err := p.sub(el[0], el[1]).alterCmd()
		if err != nil {
			return nil, err
		}
		stmt.Commands = append(stmt.Commands, cmd)
	}
	return stmt, nil
}

func (p *parser) alterCmd() (*AlterTableCmd, error) {
	cmd := &AlterTableCmd{}
	cmd.Span = p.fullSpan()

	switch {
	case p.accept(token.ADD):
		if p.atConstraintStart() {
			c, err := p.tableConstraint()
			if err != nil {
				return nil, err
			}
			cmd.Kind = AlterAddConstraint
			cmd.Constraint = c
			cmd.Name = c.Name
			return cmd, nil
		}
		p.accept(token.COLUMN)
		p.acceptWords("IF", "NOT", "EXISTS")
		def, err := p.columnDef()
		if err != nil {
			return nil, err
		}
		cmd.Kind = AlterAddColumn
		cmd.Column = def.Name
		cmd.Def = def
		return cmd, nil

	case p.accept(token.DROP):
		if p.accept(token.CONSTRAINT) {
			p.acceptWords("IF", "EXISTS")
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			cmd.Kind = AlterDropConstraint
			cmd.Name = name
			return cmd, nil
		}
		if !p.accept(token.COLUMN) && p.isAlterTableNoun() {
			cmd.Kind = AlterOther
			return cmd, nil
		}
		p.acceptWords("IF", "EXISTS")
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		cmd.Kind = AlterDropColumn
		cmd.Column = name
		return cmd, nil

	case p.accept(token.ALTER):
		p.accept(token.COLUMN)
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		cmd.Column = name
		return p.alterColumn(cmd)

	case p.accept(token.VALIDATE):
		if err := p.expect(token.CONSTRAINT); err != nil {
			return nil, err
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		cmd.Kind = AlterValidateConstraint
		cmd.Name = name
		return cmd, nil

	case p.accept(token.RENAME):
		switch {
		case p.accept(token.TO):
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			cmd.Kind = AlterRenameTable
			cmd.Name = name
		case p.at(token.CONSTRAINT):
			cmd.Kind = AlterOther
		default:
			p.accept(token.COLUMN)
			from, err := p.ident()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.TO); err != nil {
				return nil, err
			}
			to, err := p.ident()
			if err != nil {
				return nil, err
			}
			cmd.Kind = AlterRenameColumn
			cmd.Column = from
			cmd.Name = to
		}
		return cmd, nil
	}

	cmd.Kind = AlterOther
	return cmd, nil
}

// isAlterTableNoun reports whether the word after DROP names something
// other than a column, as in DROP IDENTITY or DROP EXPRESSION.
func (p *parser) isAlterTableNoun() bool {
	switch strings.ToUpper(p.cur().Literal) {
	case "IDENTITY", "EXPRESSION", "DEFAULT", "NOT", "TRIGGER", "RULE":
		return p.cur().Type != token.QUOTED_IDENT
	}
	return false
}

func (p *parser) alterColumn(cmd *AlterTableCmd) (*AlterTableCmd, error) {
	switch {
	case p.accept(token.TYPE), p.acceptWords("SET", "DATA", "TYPE"):
		t, err := p.typeName()
		if err != nil {
			return nil, err
		}
		cmd.Kind = AlterColumnType
		cmd.Type = &t
	case p.acceptWords("SET", "NOT", "NULL"):
		cmd.Kind = AlterSetNotNull
	case p.acceptWords("DROP", "NOT", "NULL"):
		cmd.Kind = AlterDropNotNull
	case p.acceptWords("SET", "DEFAULT"):
		start := p.pos
		p.pos = len(p.toks) - 1
		if start == p.pos {
			return nil, p.unexpected("default expression")
		}
		cmd.Kind = AlterSetDefault
		cmd.Default = p.textFrom(start)
	case p.acceptWords("DROP", "DEFAULT"):
		cmd.Kind = AlterDropDefault
	case p.acceptWords("SET", "STATISTICS"):
		cmd.Kind = AlterSetStatistics
	default:
		cmd.Kind = AlterOther
	}
	return cmd, nil
}

// objectTypePrefixes are the leading words of object types spelled with
// more than one word.
var objectTypePrefixes = map[string][]string{
	"MATERIALIZED": {"VIEW"},
	"FOREIGN":      {"TABLE", "DATA", "WRAPPER"},
	"EVENT":        {"TRIGGER"},
	"ACCESS":       {"METHOD"},
	"TEXT":         {"SEARCH", "CONFIGURATION", "DICTIONARY", "PARSER", "TEMPLATE"},
	"USER":         {"MAPPING"},
	"OPERATOR":     {"CLASS", "FAMILY"},
	"DEFAULT":      {"PRIVILEGES"},
}

// objectType reads an object type such as "table", "materialized view" or
// "foreign data wrapper".
func (p *parser) objectType() string {
	first := p.cur()
	if first.Type == token.EOF {
		return ""
	}
	words := []string{strings.ToLower(first.Literal)}
	p.next()
	if follow, ok := objectTypePrefixes[strings.ToUpper(first.Literal)]; ok {
		for _, w := range follow {
			if p.atWord(w) {
				words = append(words, strings.ToLower(w))
				p.next()
			}
		}
	}
	return strings.Join(words, " ")
}

func (p *parser) alterObject(span token.Span) (Node, error) {
	objectType := p.objectType()
	if objectType == "" {
		return nil, p.unexpected("object type")
	}
	p.acceptWords("IF", "EXISTS")
	if p.at(token.IDENT) || p.at(token.QUOTED_IDENT) || token.IsKeyword(p.cur().Type) {
		name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		if p.findTopLevel(func(i int) bool { return p.toks[i].Type == token.RENAME }) >= 0 {
			return &RenameStmt{NodeInfo: NodeInfo{Span: span}, ObjectType: objectType, Name: name}, nil
		}
	}
	return &UnknownStmt{NodeInfo: NodeInfo{Span: span}, Keyword: "ALTER"}, nil
}

func (p *parser) dropStmt(span token.Span) (Node, error) {
	p.next() // DROP
	if p.accept(token.INDEX) {
		stmt := &DropIndexStmt{NodeInfo: NodeInfo{Span: span}}
		stmt.Concurrently = p.accept(token.CONCURRENTLY)
		stmt.IfExists = p.acceptWords("IF", "EXISTS")
		names, err := p.nameList()
		if err != nil {
			return nil, err
		}
		stmt.Names = names
		return stmt, nil
	}

	objectType := p.objectType()
	if objectType == "" {
		return nil, p.unexpected("object type")
	}
	stmt := &DropStmt{NodeInfo: NodeInfo{Span: span}, ObjectType: objectType}
	stmt.IfExists = p.acceptWords("IF", "EXISTS")
	// DROP CAST (a AS b) and friends have no plain name list.
	if !p.at(token.LPAREN) {
		names, err := p.nameList()
		if err != nil {
			return nil, err
		}
		stmt.Names = names
	}
	stmt.Cascade = p.findTopLevel(func(i int) bool { return p.toks[i].Type == token.CASCADE }) >= 0
	return stmt, nil
}

func (p *parser) truncateStmt(span token.Span) (Node, error) {
	p.next() // TRUNCATE
	p.accept(token.TABLE)
	p.accept(token.ONLY)
	names, err := p.nameList()
	if err != nil {
		return nil, err
	}
	stmt := &TruncateStmt{NodeInfo: NodeInfo{Span: span}, Relations: names}
	stmt.Cascade = p.findTopLevel(func(i int) bool { return p.toks[i].Type == token.CASCADE }) >= 0
	return stmt, nil
}

func (p *parser) lockStmt(span token.Span) (Node, error) {
	p.next() // LOCK
	p.accept(token.TABLE)
	p.accept(token.ONLY)
	names, err := p.nameList()
	if err != nil {
		return nil, err
	}
	stmt := &LockStmt{NodeInfo: NodeInfo{Span: span}, Relations: names, Mode: "access exclusive"}
	if p.accept(token.IN) {
		var words []string
		for !p.atEOF() && !p.at(token.MODE) {
			words = append(words, strings.ToLower(p.cur().Literal))
			p.next()
		}
		if err := p.expect(token.MODE); err != nil {
			return nil, err
		}
		if len(words) == 0 {
			return nil, p.unexpected("lock mode")
		}
		stmt.Mode = strings.Join(words, " ")
	}
	stmt.NoWait = p.acceptWord("NOWAIT")
	return stmt, nil
}

// optionEnabled reports whether a parenthesized option element such as
// "FULL" or "FULL false" turns the option on.
func optionEnabled(toks []token.Token, el [2]int, name string) bool {
	if !isWord(toks[el[0]], name) {
		return false
	}
	if el[1]-el[0] < 2 {
		return true
	}
	switch strings.ToLower(strings.Trim(toks[el[0]+1].Literal, "'")) {
	case "false", "off", "0", "no":
		return false
	}
	return true
}

func (p *parser) vacuumStmt(span token.Span) (Node, error) {
	p.next() // VACUUM
	stmt := &VacuumStmt{NodeInfo: NodeInfo{Span: span}}
	if p.at(token.LPAREN) {
		toks := p.toks
		for _, el := range p.groupElements() {
			stmt.Full = stmt.Full || optionEnabled(toks, el, "FULL")
			stmt.Analyze = stmt.Analyze || optionEnabled(toks, el, "ANALYZE")
		}
	}
	for {
		switch {
		case p.accept(token.FULL):
			stmt.Full = true
			continue
		case p.accept(token.ANALYZE):
			stmt.Analyze = true
			continue
		case p.acceptWord("FREEZE"), p.accept(token.VERBOSE):
			continue
		}
		break
	}
	if !p.atEOF() {
		names, err := p.nameList()
		if err != nil {
			return nil, err
		}
		stmt.Relations = names
	}
	return stmt, nil
}

func (p *parser) reindexStmt(span token.Span) (Node, error) {
	p.next() // REINDEX
	stmt := &ReindexStmt{NodeInfo: NodeInfo{Span: span}}
	if p.at(token.LPAREN) {
		toks := p.toks
		for _, el := range p.groupElements() {
			stmt.Concurrently = stmt.Concurrently || optionEnabled(toks, el, "CONCURRENTLY")
		}
	}
	kind := p.cur()
	switch {
	case kind.Type == token.INDEX, kind.Type == token.TABLE, kind.Type == token.SCHEMA,
		kind.Type == token.DATABASE, isWord(kind, "SYSTEM"):
		stmt.ObjectType = strings.ToLower(kind.Literal)
		p.next()
	default:
		return nil, p.unexpected("INDEX, TABLE, SCHEMA, DATABASE or SYSTEM")
	}
	if p.accept(token.CONCURRENTLY) {
		stmt.Concurrently = true
	}
	if !p.atEOF() {
		name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		stmt.Name = name
	}
	return stmt, nil
}

func (p *parser) refreshStmt(span token.Span) (Node, error) {
	p.next() // REFRESH
	if err := p.expect(token.MATERIALIZED); err != nil {
		return nil, err
	}
	if err := p.expect(token.VIEW); err != nil {
		return nil, err
	}
	stmt := &RefreshMatViewStmt{NodeInfo: NodeInfo{Span: span}}
	stmt.Concurrently = p.accept(token.CONCURRENTLY)
	rel, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt.Relation = rel
	return stmt, nil
}
