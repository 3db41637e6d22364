package ast

import "fmt"

// ParseError represents a parsing error with an offset into the statement.
type ParseError struct {
	Offset  int
	End     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// Common error messages
const (
	errEmptyStatement    = "empty statement"
	errUnexpectedToken   = "unexpected %s, expected %s"
	errUnexpectedEOF     = "unexpected end of statement, expected %s"
	errUnbalancedParens  = "unbalanced parentheses"
	errUnexpectedClosing = "unexpected )"
)
