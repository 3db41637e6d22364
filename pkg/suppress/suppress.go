// Package suppress parses suppression comments and decides which
// diagnostics they silence.
//
// Three comment forms are recognised, each on a line of its own:
//
//	-- pgcheck-ignore lint/safety/banDropColumn: reason
//	-- pgcheck-ignore-all lint/safety: reason
//	-- pgcheck-ignore-start lint/safety/renamingColumn: reason
//	-- pgcheck-ignore-end lint/safety/renamingColumn
//
// A line suppression silences the next line that is not itself a
// suppression. A file suppression must come before the first statement. A
// range covers every line from its start comment to the matching end
// comment.
package suppress

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/lexer"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// Prefix starts every suppression comment.
const Prefix = "pgcheck-ignore"

// Kind is the form of a suppression.
type Kind int

// Suppression kinds.
const (
	Line Kind = iota
	File
	RangeStart
	RangeEnd
)

var kindTags = map[string]Kind{
	Prefix:            Line,
	Prefix + "-all":   File,
	Prefix + "-start": RangeStart,
	Prefix + "-end":   RangeEnd,
}

func (k Kind) String() string {
	for tag, kind := range kindTags {
		if kind == k {
			return tag
		}
	}
	return "unknown"
}

// Suppression is one parsed suppression comment.
type Suppression struct {
	Kind      Kind
	Specifier Specifier
	Reason    string
	Line      int        // 1-based line of the comment
	Span      token.Span // the comment
}

// Range is a matched start/end pair.
type Range struct {
	Start     Suppression
	StartLine int
	EndLine   int
}

// Suppressions holds the suppressions of one document.
type Suppressions struct {
	file   []Suppression
	lines  map[int]Suppression
	ranges []Range
	diags  []lint.Diagnostic
}

// Parse collects the suppression comments of src.
func Parse(src string) *Suppressions {
	p := &parser{
		s: &Suppressions{lines: make(map[int]Suppression)},
	}
	tokens, _ := lexer.Tokenize(src)

	lineHasContent := false
	seenStatement := false
	for _, tok := range tokens {
		switch tok.Type {
		case token.LINE_ENDING:
			lineHasContent = false
		case token.WHITESPACE:
		case token.COMMENT:
			c, _ := token.CommentFromToken(tok)
			if c.IsLineComment() && !lineHasContent {
				p.comment(c, seenStatement)
			}
			lineHasContent = true
		case token.EOF:
		default:
			lineHasContent = true
			seenStatement = true
		}
	}
	p.finish()
	return p.s
}

type parser struct {
	s     *Suppressions
	stack []Suppression
}

func (p *parser) comment(c token.Comment, seenStatement bool) {
	body := c.Body()
	if !strings.HasPrefix(body, Prefix) {
		return
	}
	sup, problem := parseSuppression(body)
	if problem != "" {
		p.errorAt(c.Span, problem)
		return
	}
	sup.Line = c.Span.Start.Line
	sup.Span = c.Span

	switch sup.Kind {
	case File:
		if seenStatement {
			p.errorAt(c.Span, "File suppressions should be at the top of the file, before the first statement.")
			return
		}
		p.s.file = append(p.s.file, sup)
	case Line:
		p.s.lines[sup.Line] = sup
	case RangeStart:
		p.stack = append(p.stack, sup)
	case RangeEnd:
		// The innermost open range with the same specifier.
		for i := len(p.stack) - 1; i >= 0; i-- {
			if p.stack[i].Specifier == sup.Specifier {
				start := p.stack[i]
				p.stack = slices.Delete(p.stack, i, i+1)
				p.s.ranges = append(p.s.ranges, Range{Start: start, StartLine: start.Line, EndLine: sup.Line})
				return
			}
		}
		p.errorAt(c.Span, "This end suppression does not have a matching start.")
	}
}

func (p *parser) finish() {
	for _, sup := range p.stack {
		p.errorAt(sup.Span, "This start suppression does not have a matching end.")
	}
	p.stack = nil
}

func (p *parser) errorAt(span token.Span, msg string) {
	p.s.diags = append(p.s.diags, lint.Diagnostic{
		Category: lint.CategorySuppressions,
		Severity: lint.SeverityWarning,
		Message:  msg,
		Pos:      span.Start,
		EndPos:   span.End,
	})
}

// parseSuppression parses a comment body such as
// "pgcheck-ignore lint/safety(users): reason". A non-empty problem
// describes why the comment is malformed.
func parseSuppression(body string) (sup Suppression, problem string) {
	head, reason, _ := strings.Cut(body, ":")
	fields := strings.Fields(head)

	kind, ok := kindTags[fields[0]]
	if !ok {
		return Suppression{}, fmt.Sprintf("'%s' is not a valid suppression tag.", fields[0])
	}
	if len(fields) < 2 {
		return Suppression{}, "You must specify which lints to suppress."
	}
	if len(fields) > 2 {
		return Suppression{}, fmt.Sprintf("Unexpected %q after the suppressed category. Separate the reason with a colon.", fields[2])
	}
	spec, err := ParseSpecifier(fields[1])
	if err != nil {
		return Suppression{}, fmt.Sprintf("Invalid suppression category: %v.", err)
	}
	return Suppression{Kind: kind, Specifier: spec, Reason: strings.TrimSpace(reason)}, ""
}

// Diagnostics returns problems found while parsing: malformed comments,
// unmatched range ends and misplaced file suppressions.
func (s *Suppressions) Diagnostics() []lint.Diagnostic {
	return slices.Clone(s.diags)
}

// File returns the file suppressions.
func (s *Suppressions) File() []Suppression {
	return slices.Clone(s.file)
}

// Ranges returns the matched range suppressions.
func (s *Suppressions) Ranges() []Range {
	return slices.Clone(s.ranges)
}

// Lines returns the line suppressions ordered by line.
func (s *Suppressions) Lines() []Suppression {
	out := make([]Suppression, 0, len(s.lines))
	for _, sup := range s.lines {
		out = append(out, sup)
	}
	slices.SortFunc(out, func(a, b Suppression) int { return a.Line - b.Line })
	return out
}

// IsSuppressed reports whether a diagnostic with category starting on line
// is silenced. Values in specifiers are not checked.
func (s *Suppressions) IsSuppressed(category string, line int) bool {
	return s.suppressedBy(line, func(spec Specifier) bool {
		return spec.matchesCategory(category)
	}) != nil
}

// Suppresses reports whether d is silenced. Specifiers with a value only
// match diagnostics whose message mentions the value.
func (s *Suppressions) Suppresses(d lint.Diagnostic) bool {
	return s.suppressedBy(d.Pos.Line, func(spec Specifier) bool {
		return spec.matches(d.Category, d.Message)
	}) != nil
}

// Filter returns the diagnostics that are not suppressed. Diagnostics of
// the suppressions category are never filtered.
func (s *Suppressions) Filter(diags []lint.Diagnostic) []lint.Diagnostic {
	out := make([]lint.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Category != lint.CategorySuppressions && s.Suppresses(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (s *Suppressions) suppressedBy(line int, match func(Specifier) bool) *Suppression {
	for i := range s.file {
		if match(s.file[i].Specifier) {
			return &s.file[i]
		}
	}
	for i := range s.ranges {
		r := &s.ranges[i]
		if line >= r.StartLine && line <= r.EndLine && match(r.Start.Specifier) {
			return &r.Start
		}
	}
	for l := line - 1; l > 0; l-- {
		sup, ok := s.lines[l]
		if !ok {
			break
		}
		if match(sup.Specifier) {
			return &sup
		}
	}
	return nil
}

// target returns the line a line suppression applies to: the first line
// after it that is not itself a line suppression.
func (s *Suppressions) target(line int) int {
	next := line + 1
	for {
		if _, ok := s.lines[next]; !ok {
			return next
		}
		next++
	}
}

// Unused reports line suppressions that silence none of diags. diags must
// be the diagnostics as they were before filtering.
func (s *Suppressions) Unused(diags []lint.Diagnostic) []lint.Diagnostic {
	byLine := make(map[int][]lint.Diagnostic)
	for _, d := range diags {
		byLine[d.Pos.Line] = append(byLine[d.Pos.Line], d)
	}

	var out []lint.Diagnostic
	for _, sup := range s.Lines() {
		used := slices.ContainsFunc(byLine[s.target(sup.Line)], func(d lint.Diagnostic) bool {
			return sup.Specifier.matches(d.Category, d.Message)
		})
		if used {
			continue
		}
		out = append(out, lint.Diagnostic{
			Category: lint.CategorySuppressions,
			Severity: lint.SeverityWarning,
			Message:  "This suppression has no effect.",
			Detail:   fmt.Sprintf("No %s diagnostic was reported on the next line.", sup.Specifier),
			Pos:      sup.Span.Start,
			EndPos:   sup.Span.End,
		})
	}
	return out
}

// Disabled reports suppressions of rules the configuration turns off.
// isDisabled is called with the suppression's specifier.
func (s *Suppressions) Disabled(isDisabled func(Specifier) bool) []lint.Diagnostic {
	var all []Suppression
	all = append(all, s.file...)
	all = append(all, s.Lines()...)
	for _, r := range s.ranges {
		all = append(all, r.Start)
	}

	var out []lint.Diagnostic
	for _, sup := range all {
		if sup.Specifier.Group == "" || !isDisabled(sup.Specifier) {
			continue
		}
		out = append(out, lint.Diagnostic{
			Category: lint.CategorySuppressions,
			Severity: lint.SeverityWarning,
			Message:  "This rule has been disabled via the configuration. The suppression has no effect.",
			Pos:      sup.Span.Start,
			EndPos:   sup.Span.End,
		})
	}
	return out
}
