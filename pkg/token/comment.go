package token

import "strings"

// CommentKind distinguishes line vs block comments.
type CommentKind int

// Comment kinds.
const (
	LineComment  CommentKind = iota // -- comment
	BlockComment                    // /* comment */
)

// Comment represents a SQL comment with position.
type Comment struct {
	Kind CommentKind
	Text string // includes delimiters (-- or /* */)
	Span Span
}

// IsLineComment returns true if this is a line comment.
func (c *Comment) IsLineComment() bool {
	return c.Kind == LineComment
}

// Body returns the comment text without delimiters or surrounding spaces.
func (c *Comment) Body() string {
	text := c.Text
	switch c.Kind {
	case LineComment:
		text = strings.TrimPrefix(text, "--")
	case BlockComment:
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	}
	return strings.TrimSpace(text)
}

// CommentFromToken converts a COMMENT token. The second result is false for
// any other token type.
func CommentFromToken(tok Token) (Comment, bool) {
	if tok.Type != COMMENT {
		return Comment{}, false
	}
	kind := LineComment
	if strings.HasPrefix(tok.Literal, "/*") {
		kind = BlockComment
	}
	return Comment{Kind: kind, Text: tok.Literal, Span: tok.Span()}, true
}
