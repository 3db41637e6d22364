package suppress

import (
	"errors"
	"fmt"
	"strings"
)

var errEmptySegment = errors.New("empty segment")

// Specifier names what a suppression silences: a category ("lint"), a
// group ("lint/safety") or a rule ("lint/safety/banDropColumn"), with an
// optional value in parentheses.
type Specifier struct {
	Category string
	Group    string
	Rule     string
	Value    string
}

// ParseSpecifier parses "category[/group[/rule]][(value)]".
func ParseSpecifier(s string) (Specifier, error) {
	var spec Specifier
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Specifier{}, fmt.Errorf("unclosed value in %q", s)
		}
		spec.Value = s[open+1 : len(s)-1]
		s = s[:open]
	}

	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return Specifier{}, fmt.Errorf("too many segments in %q", s)
	}
	for _, part := range parts {
		if part == "" {
			return Specifier{}, fmt.Errorf("%w in %q", errEmptySegment, s)
		}
		if !validSegment(part) {
			return Specifier{}, fmt.Errorf("invalid character in %q", part)
		}
	}

	spec.Category = parts[0]
	if len(parts) > 1 {
		spec.Group = parts[1]
	}
	if len(parts) > 2 {
		spec.Rule = parts[2]
	}
	return spec, nil
}

func validSegment(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// Selector returns the specifier without its value, e.g. "lint/safety".
func (s Specifier) Selector() string {
	out := s.Category
	if s.Group != "" {
		out += "/" + s.Group
	}
	if s.Rule != "" {
		out += "/" + s.Rule
	}
	return out
}

func (s Specifier) String() string {
	if s.Value == "" {
		return s.Selector()
	}
	return s.Selector() + "(" + s.Value + ")"
}

// matchesCategory reports whether the specifier is a segment prefix of
// category: "lint/safety" matches "lint/safety/banDropColumn" but not
// "lint/safetyNet".
func (s Specifier) matchesCategory(category string) bool {
	sel := s.Selector()
	if !strings.HasPrefix(category, sel) {
		return false
	}
	return len(category) == len(sel) || category[len(sel)] == '/'
}

func (s Specifier) matches(category, message string) bool {
	if !s.matchesCategory(category) {
		return false
	}
	return s.Value == "" || strings.Contains(strings.ToLower(message), strings.ToLower(s.Value))
}
