package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/cache"
	"github.com/leapstack-labs/pgcheck/pkg/lexer"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/splitter"
	"github.com/leapstack-labs/pgcheck/pkg/suppress"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// pass holds the state of one Analyze call.
type pass struct {
	w     *Workspace
	lines *token.LineIndex
	diags []lint.Diagnostic
}

// prepare computes or fetches the cached artifacts of one statement.
func (p *pass) prepare(r splitter.StatementRange) (Statement, error) {
	stmt := Statement{ID: cache.NewStatementID(r.Text), Range: r}

	ann, err := p.w.annotations.GetOrCompute(stmt.ID, func() (Annotations, error) {
		toks, err := p.w.tokens.GetOrCompute(stmt.ID, func() ([]token.Token, error) {
			toks, _ := lexer.Tokenize(r.Text)
			return toks, nil
		})
		if err != nil {
			return Annotations{}, err
		}
		return annotate(toks), nil
	})
	if err != nil {
		return stmt, fmt.Errorf("annotations: %w", err)
	}
	stmt.Annotations = ann

	res, err := p.w.asts.GetOrCompute(stmt.ID, func() (parsed, error) {
		return parse(r.Text), nil
	})
	if err != nil {
		return stmt, fmt.Errorf("parse: %w", err)
	}
	if res.err != nil {
		p.syntaxError(res.err, r.Start)
		return stmt, nil
	}
	stmt.Node = res.node
	stmt.Kind = ast.Kind(res.node)

	if fn, ok := res.node.(*ast.CreateFunctionStmt); ok {
		if err := p.body(stmt.ID, fn, r.Start); err != nil {
			return stmt, err
		}
	}
	return stmt, nil
}

// body parses the statements of a LANGUAGE sql function body. They are
// cached under child ids of the function statement.
func (p *pass) body(parent cache.StatementID, fn *ast.CreateFunctionStmt, stmtStart int) error {
	if fn.Language != "sql" || fn.BodyOffset < 0 || strings.TrimSpace(fn.Body) == "" {
		return nil
	}
	base := stmtStart + fn.BodyOffset
	for n, r := range splitter.Split(fn.Body).Ranges {
		id := parent.Child(fmt.Sprintf("body:%d", n))
		res, err := p.w.asts.GetOrCompute(id, func() (parsed, error) {
			return parse(r.Text), nil
		})
		if err != nil {
			return fmt.Errorf("function body statement %d: %w", n, err)
		}
		if res.err != nil {
			p.syntaxError(res.err, base+r.Start)
		}
	}
	return nil
}

func parse(text string) parsed {
	node, err := ast.Parse(text)
	if err != nil {
		var pe *ast.ParseError
		if !errors.As(err, &pe) {
			pe = &ast.ParseError{End: len(text), Message: err.Error()}
		}
		return parsed{err: pe}
	}
	return parsed{node: node}
}

func annotate(toks []token.Token) Annotations {
	for i := len(toks) - 1; i >= 0; i-- {
		switch t := toks[i].Type; {
		case t == token.EOF, token.IsTrivia(t):
			continue
		case t == token.SEMICOLON:
			return Annotations{EndsWithSemicolon: true}
		default:
			return Annotations{}
		}
	}
	return Annotations{}
}

func (p *pass) syntaxError(err *ast.ParseError, base int) {
	p.diags = append(p.diags, lint.Diagnostic{
		Category: lint.CategorySyntax,
		Severity: lint.SeverityError,
		Message:  err.Message,
		Pos:      p.lines.Position(base + err.Offset),
		EndPos:   p.lines.Position(base + err.End),
	})
}

// rebase moves a statement-relative diagnostic to document positions. A
// diagnostic without a range covers the whole statement.
func (p *pass) rebase(d lint.Diagnostic, r splitter.StatementRange) lint.Diagnostic {
	if !d.HasRange() {
		d.Pos = p.lines.Position(r.Start)
		d.EndPos = p.lines.Position(r.End)
	} else {
		d.Pos = p.lines.Position(r.Start + d.Pos.Offset)
		d.EndPos = p.lines.Position(r.Start + d.EndPos.Offset)
	}
	for i, a := range d.Advices {
		if a.Span.IsValid() {
			d.Advices[i].Span = p.lines.Span(r.Start+a.Span.Start.Offset, r.Start+a.Span.End.Offset)
		}
	}
	return d
}

// suppress applies the suppression comments of content and adds the
// diagnostics about the suppressions themselves.
func (p *pass) suppress(content string) []lint.Diagnostic {
	sup := suppress.Parse(content)
	out := sup.Filter(p.diags)
	out = append(out, sup.Diagnostics()...)
	out = append(out, sup.Unused(p.diags)...)
	out = append(out, sup.Disabled(p.disabled)...)
	return out
}

// disabled reports whether every rule spec selects is turned off.
// Unknown selectors are not reported here.
func (p *pass) disabled(spec suppress.Specifier) bool {
	if spec.Category != lint.DefaultCategory {
		return false
	}
	keys, err := p.w.reg.Lookup(spec.Selector())
	if err != nil || len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if p.w.plan.Enabled(key) {
			return false
		}
	}
	return true
}
