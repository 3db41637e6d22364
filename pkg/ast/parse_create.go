package ast

import (
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/token"
)

func (p *parser) createStmt(span token.Span) (Node, error) {
	p.next() // CREATE
	orReplace := p.acceptWords("OR", "REPLACE")
	temporary := false
	for {
		switch {
		case p.acceptWord("TEMP"), p.acceptWord("TEMPORARY"):
			temporary = true
			continue
		case p.acceptWord("UNLOGGED"), p.acceptWord("GLOBAL"), p.accept(token.LOCAL):
			continue
		}
		break
	}

	switch {
	case p.at(token.TABLE):
		p.next()
		stmt, err := p.createTable(span)
		if err != nil {
			return nil, err
		}
		stmt.Temporary = temporary
		return stmt, nil
	case p.at(token.UNIQUE):
		p.next()
		if err := p.expect(token.INDEX); err != nil {
			return nil, err
		}
		return p.createIndex(span, true)
	case p.at(token.INDEX):
		p.next()
		return p.createIndex(span, false)
	case p.at(token.FUNCTION), p.at(token.PROCEDURE):
		return p.createFunction(span)
	case p.at(token.TYPE):
		p.next()
		return p.createType(span)
	case p.at(token.TRIGGER), p.at(token.CONSTRAINT) && p.peek(1).Type == token.TRIGGER:
		p.accept(token.CONSTRAINT)
		p.next()
		return p.createTrigger(span)
	case p.at(token.EXTENSION):
		p.next()
		ifNotExists := p.acceptWords("IF", "NOT", "EXISTS")
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &CreateExtensionStmt{NodeInfo: NodeInfo{Span: span}, Name: name, IfNotExists: ifNotExists}, nil
	case p.at(token.SCHEMA):
		p.next()
		ifNotExists := p.acceptWords("IF", "NOT", "EXISTS")
		p.acceptWord("AUTHORIZATION")
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &CreateSchemaStmt{NodeInfo: NodeInfo{Span: span}, Name: name, IfNotExists: ifNotExists}, nil
	case p.at(token.VIEW), p.at(token.MATERIALIZED), p.at(token.RECURSIVE):
		materialized := p.accept(token.MATERIALIZED)
		p.accept(token.RECURSIVE)
		if err := p.expect(token.VIEW); err != nil {
			return nil, err
		}
		p.acceptWords("IF", "NOT", "EXISTS")
		rel, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		return &CreateViewStmt{
			NodeInfo:     NodeInfo{Span: span},
			Relation:     rel,
			Materialized: materialized,
			OrReplace:    orReplace,
		}, nil
	}
	return &UnknownStmt{NodeInfo: NodeInfo{Span: span}, Keyword: "CREATE"}, nil
}

func (p *parser) createTable(span token.Span) (*CreateTableStmt, error) {
	stmt := &CreateTableStmt{NodeInfo: NodeInfo{Span: span}}
	stmt.IfNotExists = p.acceptWords("IF", "NOT", "EXISTS")
	rel, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt.Relation = rel

	// PARTITION OF parent and OF type take their columns from elsewhere.
	if p.acceptWords("PARTITION", "OF") || p.accept(token.OF) {
		if _, err := p.qualifiedName(); err != nil {
			return nil, err
		}
	}

	if p.at(token.LPAREN) {
		for _, el := range p.groupElements() {
			sp := p.sub(el[0], el[1])
			switch {
			case sp.atConstraintStart():
				c, err := sp.tableConstraint()
				if err != nil {
					return nil, err
				}
				stmt.Constraints = append(stmt.Constraints, c)
			case sp.atWord("LIKE"):
			default:
				col, err := sp.columnDef()
				if err != nil {
					return nil, err
				}
				stmt.Columns = append(stmt.Columns, col)
			}
		}
	}

	stmt.Partitioned = p.findTopLevel(func(i int) bool {
		return isWord(p.toks[i], "PARTITION") && isWord(p.toks[i+1], "BY")
	}) >= 0
	stmt.AsSelect = p.findTopLevel(func(i int) bool { return p.toks[i].Type == token.AS }) >= 0
	return stmt, nil
}

func (p *parser) atConstraintStart() bool {
	switch p.cur().Type {
	case token.CONSTRAINT, token.PRIMARY, token.UNIQUE, token.FOREIGN, token.CHECK:
		return true
	}
	return p.atWord("EXCLUDE")
}

// columnConstraintStart reports whether the current token ends a column
// type or default expression.
func (p *parser) columnConstraintStart() bool {
	switch p.cur().Type {
	case token.CONSTRAINT, token.NOT, token.NULL, token.DEFAULT, token.PRIMARY, token.UNIQUE,
		token.REFERENCES, token.CHECK, token.GENERATED, token.USING:
		return true
	}
	return p.atWord("COLLATE")
}

// typeName parses a column type up to the first column constraint.
func (p *parser) typeName() (TypeName, error) {
	var t TypeName
	var b strings.Builder
	glue := false
	for !p.atEOF() && !p.columnConstraintStart() {
		tok := p.cur()
		switch {
		case tok.Type == token.LPAREN:
			start := p.pos
			p.skipGroup()
			t.Mods = p.textFrom(start)
			continue
		case tok.Type == token.LBRACKET:
			for !p.atEOF() && !p.at(token.RBRACKET) {
				p.next()
			}
			t.Array = true
		case tok.Type == token.DOT:
			b.WriteString(".")
			glue = true
		case isWord(tok, "ARRAY"):
			t.Array = true
		default:
			if b.Len() > 0 && !glue {
				b.WriteString(" ")
			}
			if tok.Type == token.QUOTED_IDENT {
				b.WriteString(unquoteIdent(tok.Literal))
			} else {
				b.WriteString(strings.ToLower(tok.Literal))
			}
			glue = false
		}
		p.next()
	}
	if b.Len() == 0 {
		return t, p.unexpected("type name")
	}
	t.Name = b.String()
	return t, nil
}

// skipExpr consumes an expression up to the next column constraint and
// returns its text. At least one token is consumed.
func (p *parser) skipExpr() string {
	start := p.pos
	for first := true; !p.atEOF() && (first || !p.columnConstraintStart()); first = false {
		if p.at(token.LPAREN) {
			p.skipGroup()
			continue
		}
		p.next()
	}
	return p.textFrom(start)
}

func (p *parser) columnDef() (*ColumnDef, error) {
	start := p.pos
	col := &ColumnDef{}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	col.Name = name
	if col.Type, err = p.typeName(); err != nil {
		return nil, err
	}

	for !p.atEOF() {
		switch {
		case p.accept(token.CONSTRAINT):
			if _, err := p.ident(); err != nil {
				return nil, err
			}
		case p.accept(token.NOT):
			if err := p.expect(token.NULL); err != nil {
				return nil, err
			}
			col.NotNull = true
		case p.accept(token.NULL):
		case p.accept(token.DEFAULT):
			col.HasDefault = true
			col.Default = p.skipExpr()
		case p.accept(token.PRIMARY):
			if err := p.expect(token.KEY); err != nil {
				return nil, err
			}
			col.PrimaryKey = true
			col.NotNull = true
		case p.accept(token.UNIQUE):
			col.Unique = true
		case p.accept(token.REFERENCES):
			ref, err := p.qualifiedName()
			if err != nil {
				return nil, err
			}
			col.References = &ref
		case p.accept(token.CHECK):
			p.skipGroup()
		case p.accept(token.GENERATED):
			if !p.acceptWord("ALWAYS") {
				p.acceptWords("BY", "DEFAULT")
			}
			if err := p.expect(token.AS); err != nil {
				return nil, err
			}
			if p.acceptWord("IDENTITY") {
				col.Identity = true
				col.NotNull = true
			} else {
				p.skipGroup()
				col.Generated = true
			}
		default:
			p.next()
		}
	}
	col.Span = p.spanFrom(start)
	return col, nil
}

func (p *parser) tableConstraint() (*Constraint, error) {
	start := p.pos
	c := &Constraint{}
	if p.accept(token.CONSTRAINT) {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		c.Name = name
	}

	switch {
	case p.accept(token.PRIMARY):
		if err := p.expect(token.KEY); err != nil {
			return nil, err
		}
		c.Kind = ConstraintPrimaryKey
	case p.accept(token.UNIQUE):
		c.Kind = ConstraintUnique
		p.acceptWords("NULLS", "NOT", "DISTINCT")
		p.acceptWords("NULLS", "DISTINCT")
	case p.accept(token.FOREIGN):
		if err := p.expect(token.KEY); err != nil {
			return nil, err
		}
		c.Kind = ConstraintForeignKey
	case p.accept(token.CHECK):
		c.Kind = ConstraintCheck
	case p.acceptWord("EXCLUDE"):
		c.Kind = ConstraintExclude
	default:
		return nil, p.unexpected("constraint")
	}

	if p.at(token.LPAREN) && c.Kind != ConstraintCheck && c.Kind != ConstraintExclude {
		for _, el := range p.groupElements() {
			sp := p.sub(el[0], el[1])
			col, err := sp.ident()
			if err != nil {
				return nil, err
			}
			c.Columns = append(c.Columns, col)
		}
	}

	for !p.atEOF() {
		switch {
		case p.acceptWords("USING", "INDEX"):
			c.UsingIndex = true
		case p.accept(token.REFERENCES):
			ref, err := p.qualifiedName()
			if err != nil {
				return nil, err
			}
			c.References = &ref
		case p.acceptWords("NOT", "VALID"):
			c.NotValid = true
		case p.at(token.LPAREN):
			p.skipGroup()
		default:
			p.next()
		}
	}
	c.Span = p.spanFrom(start)
	return c, nil
}

func (p *parser) createIndex(span token.Span, unique bool) (Node, error) {
	stmt := &CreateIndexStmt{NodeInfo: NodeInfo{Span: span}, Unique: unique}
	stmt.Concurrently = p.accept(token.CONCURRENTLY)
	stmt.IfNotExists = p.acceptWords("IF", "NOT", "EXISTS")
	if !p.at(token.ON) {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		stmt.Name = name
	}
	if err := p.expect(token.ON); err != nil {
		return nil, err
	}
	p.accept(token.ONLY)
	rel, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt.Relation = rel
	return stmt, nil
}

func (p *parser) createFunction(span token.Span) (Node, error) {
	stmt := &CreateFunctionStmt{NodeInfo: NodeInfo{Span: span}, BodyOffset: -1}
	stmt.Procedure = p.at(token.PROCEDURE)
	p.next()
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	if !p.at(token.LPAREN) {
		return nil, p.unexpected("(")
	}
	p.skipGroup()

	for !p.atEOF() {
		switch {
		case p.accept(token.LANGUAGE):
			tok := p.cur()
			p.next()
			if tok.Type == token.STRING {
				stmt.Language = strings.ToLower(unquoteString(tok.Literal))
			} else {
				stmt.Language = strings.ToLower(strings.Trim(tok.Literal, `"`))
			}
		case p.accept(token.AS):
			tok := p.cur()
			switch tok.Type {
			case token.DOLLAR_STRING:
				tag := tok.Literal[:strings.IndexByte(tok.Literal[1:], '$')+2]
				stmt.Body = tok.Literal[len(tag) : len(tok.Literal)-len(tag)]
				stmt.BodyOffset = tok.Pos.Offset + len(tag)
			case token.STRING:
				stmt.Body = unquoteString(tok.Literal)
				stmt.BodyOffset = tok.Pos.Offset + 1
			}
			p.next()
		case p.at(token.BEGIN) && p.peek(1).Type == token.ATOMIC:
			start := p.pos
			p.pos = len(p.toks) - 1
			stmt.Body = p.textFrom(start)
			stmt.BodyOffset = p.toks[start].Pos.Offset
			stmt.Language = "sql"
		case p.at(token.LPAREN):
			p.skipGroup()
		default:
			p.next()
		}
	}
	return stmt, nil
}

func (p *parser) createType(span token.Span) (Node, error) {
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &CreateTypeStmt{NodeInfo: NodeInfo{Span: span}, Name: name}
	if p.accept(token.AS) && p.acceptWord("ENUM") {
		stmt.Enum = true
		for _, el := range p.groupElements() {
			tok := p.toks[el[0]]
			if tok.Type == token.STRING {
				stmt.Values = append(stmt.Values, unquoteString(tok.Literal))
			}
		}
	}
	return stmt, nil
}

func (p *parser) createTrigger(span token.Span) (Node, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	stmt := &CreateTriggerStmt{NodeInfo: NodeInfo{Span: span}, Name: name}
	on := p.findTopLevel(func(i int) bool { return p.toks[i].Type == token.ON })
	if on < 0 {
		p.pos = len(p.toks) - 1
		return nil, p.unexpected("ON")
	}
	p.pos = on + 1
	rel, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt.Relation = rel
	return stmt, nil
}
