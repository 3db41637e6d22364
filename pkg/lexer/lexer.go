// Package lexer tokenizes Postgres SQL into a lossless token stream.
//
// Every byte of the input belongs to exactly one token, trivia included, so
// concatenating the literals of all tokens reproduces the input. Malformed
// input (an unterminated string, comment or dollar quote) never stops the
// lexer: the offending token runs to the end of input and an Error is
// recorded.
package lexer

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// Error describes a lexical problem.
type Error struct {
	Message string
	Span    token.Span
}

func (e Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Lexer tokenizes SQL input.
type Lexer struct {
	input     string
	pos       int // current position in input
	line      int // current line number (1-based)
	lineStart int // offset of the first byte of the current line

	// Errors collected during lexing
	Errors []Error
}

// New creates a new Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// ch returns the byte at the current position, 0 at end of input.
func (l *Lexer) ch() byte {
	return l.at(l.pos)
}

func (l *Lexer) at(i int) byte {
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// peek returns the byte after the current one.
func (l *Lexer) peek() byte {
	return l.at(l.pos + 1)
}

// advance moves past the current byte, tracking line starts.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.lineStart = l.pos + 1
	}
	l.pos++
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
		Offset: l.pos,
	}
}

func (l *Lexer) errorf(start token.Position, format string, args ...any) {
	l.Errors = append(l.Errors, Error{
		Message: fmt.Sprintf(format, args...),
		Span:    token.Span{Start: start, End: l.currentPos()},
	})
}

// NextToken returns the next token. At end of input it returns EOF forever.
func (l *Lexer) NextToken() token.Token {
	start := l.currentPos()
	typ := l.scan(start)
	return token.Token{
		Type:    typ,
		Literal: l.input[start.Offset:l.pos],
		Pos:     start,
		End:     l.currentPos(),
	}
}

func (l *Lexer) scan(start token.Position) token.TokenType {
	ch := l.ch()
	switch {
	case l.pos >= len(l.input):
		return token.EOF
	case ch == ' ' || ch == '\t' || ch == '\v' || ch == '\f':
		for isSpace(l.ch()) {
			l.advance()
		}
		return token.WHITESPACE
	case ch == '\n' || ch == '\r':
		l.readLineEnding()
		return token.LINE_ENDING
	case ch == '-' && l.peek() == '-':
		for l.pos < len(l.input) && l.ch() != '\n' && l.ch() != '\r' {
			l.advance()
		}
		return token.COMMENT
	case ch == '/' && l.peek() == '*':
		l.readBlockComment(start)
		return token.COMMENT
	case ch == '\'':
		l.readString(start, false)
		return token.STRING
	case (ch == 'e' || ch == 'E') && l.peek() == '\'':
		l.advance()
		l.readString(start, true)
		return token.STRING
	case (ch == 'b' || ch == 'B' || ch == 'x' || ch == 'X' || ch == 'n' || ch == 'N') && l.peek() == '\'':
		l.advance()
		l.readString(start, false)
		return token.STRING
	case (ch == 'u' || ch == 'U') && l.peek() == '&' && l.at(l.pos+2) == '\'':
		l.advanceN(2)
		l.readString(start, false)
		return token.STRING
	case (ch == 'u' || ch == 'U') && l.peek() == '&' && l.at(l.pos+2) == '"':
		l.advanceN(2)
		l.readQuotedIdentifier(start)
		return token.QUOTED_IDENT
	case ch == '"':
		l.readQuotedIdentifier(start)
		return token.QUOTED_IDENT
	case ch == '$':
		return l.readDollar(start)
	case isDigit(ch) || (ch == '.' && isDigit(l.peek())):
		l.readNumber()
		return token.NUMBER
	case isLetter(ch):
		for isIdentChar(l.ch()) {
			l.advance()
		}
		return token.LookupIdent(l.input[start.Offset:l.pos])
	}

	l.advance()
	switch ch {
	case ';':
		return token.SEMICOLON
	case ',':
		return token.COMMA
	case '.':
		return token.DOT
	case '(':
		return token.LPAREN
	case ')':
		return token.RPAREN
	case '[':
		return token.LBRACKET
	case ']':
		return token.RBRACKET
	case '\\':
		return token.BACKSLASH
	case ':':
		if l.ch() == ':' {
			l.advance()
			return token.DCOLON
		}
		if l.ch() == '=' {
			l.advance()
			return token.OPERATOR
		}
		return token.COLON
	}

	if !isOperatorChar(ch) {
		l.errorf(start, "unexpected character %q", ch)
		return token.ILLEGAL
	}
	// Operators are maximal runs of operator characters that stop before
	// the start of a comment.
	for isOperatorChar(l.ch()) && !l.atCommentStart() {
		l.advance()
	}
	switch l.input[start.Offset:l.pos] {
	case "*":
		return token.STAR
	case "=":
		return token.EQ
	}
	return token.OPERATOR
}

func (l *Lexer) atCommentStart() bool {
	return (l.ch() == '-' && l.peek() == '-') || (l.ch() == '/' && l.peek() == '*')
}

// readLineEnding consumes consecutive line breaks. Horizontal whitespace is
// absorbed only when another line break follows it, so "\n  \n" is a single
// blank-line token while indentation stays a separate WHITESPACE token.
func (l *Lexer) readLineEnding() {
	for {
		for l.ch() == '\n' || l.ch() == '\r' {
			l.advance()
		}
		i := l.pos
		for isSpace(l.at(i)) {
			i++
		}
		if i == l.pos || (l.at(i) != '\n' && l.at(i) != '\r') {
			return
		}
		l.advanceN(i - l.pos)
	}
}

// readBlockComment consumes a possibly nested /* */ comment.
func (l *Lexer) readBlockComment(start token.Position) {
	l.advanceN(2)
	depth := 1
	for depth > 0 {
		switch {
		case l.pos >= len(l.input):
			l.errorf(start, "unterminated block comment")
			return
		case l.ch() == '/' && l.peek() == '*':
			l.advanceN(2)
			depth++
		case l.ch() == '*' && l.peek() == '/':
			l.advanceN(2)
			depth--
		default:
			l.advance()
		}
	}
}

// readString reads a single-quoted string. A doubled quote is an escaped
// quote; backslash escapes apply only to E'' strings.
func (l *Lexer) readString(start token.Position, escapes bool) {
	l.advance() // opening quote
	for {
		switch {
		case l.pos >= len(l.input):
			l.errorf(start, "unterminated string literal")
			return
		case escapes && l.ch() == '\\':
			l.advanceN(2)
		case l.ch() == '\'':
			l.advance()
			if l.ch() != '\'' {
				return
			}
			l.advance()
		default:
			l.advance()
		}
	}
}

// readQuotedIdentifier reads a "quoted identifier" with "" escapes.
func (l *Lexer) readQuotedIdentifier(start token.Position) {
	l.advance() // opening quote
	for {
		switch {
		case l.pos >= len(l.input):
			l.errorf(start, "unterminated quoted identifier")
			return
		case l.ch() == '"':
			l.advance()
			if l.ch() != '"' {
				return
			}
			l.advance()
		default:
			l.advance()
		}
	}
}

// readDollar reads a positional parameter or a dollar-quoted string.
func (l *Lexer) readDollar(start token.Position) token.TokenType {
	if isDigit(l.peek()) {
		l.advance()
		for isDigit(l.ch()) {
			l.advance()
		}
		return token.PARAM
	}

	tag, ok := l.dollarTag(l.pos)
	if !ok {
		l.advance()
		l.errorf(start, "unexpected character '$'")
		return token.ILLEGAL
	}
	l.advanceN(len(tag))
	end := strings.Index(l.input[l.pos:], tag)
	if end < 0 {
		l.advanceN(len(l.input) - l.pos)
		l.errorf(start, "unterminated dollar-quoted string")
		return token.DOLLAR_STRING
	}
	l.advanceN(end + len(tag))
	return token.DOLLAR_STRING
}

// dollarTag returns the opening tag ($$ or $name$) starting at offset i.
func (l *Lexer) dollarTag(i int) (string, bool) {
	j := i + 1
	if l.at(j) != '$' {
		if !isLetter(l.at(j)) {
			return "", false
		}
		for isLetter(l.at(j)) || isDigit(l.at(j)) {
			j++
		}
		if l.at(j) != '$' {
			return "", false
		}
	}
	return l.input[i : j+1], true
}

// readNumber reads integers, decimals and exponents.
func (l *Lexer) readNumber() {
	for isDigit(l.ch()) || l.ch() == '_' {
		l.advance()
	}
	if l.ch() == '.' && l.peek() != '.' {
		l.advance()
		for isDigit(l.ch()) || l.ch() == '_' {
			l.advance()
		}
	}
	if (l.ch() == 'e' || l.ch() == 'E') &&
		(isDigit(l.peek()) || ((l.peek() == '+' || l.peek() == '-') && isDigit(l.at(l.pos+2)))) {
		l.advanceN(2)
		for isDigit(l.ch()) {
			l.advance()
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\v' || ch == '\f'
}

// isLetter accepts any non-ASCII byte so that UTF-8 identifiers lex whole.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '$'
}

func isOperatorChar(ch byte) bool {
	return strings.IndexByte("+-*/<>=~!@#%^&|`?", ch) >= 0
}

// Tokenize is a convenience function to tokenize SQL input. The returned
// slice always ends with an EOF token.
func Tokenize(input string) ([]token.Token, []Error) {
	l := New(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, l.Errors
}

// Significant returns the tokens that are not trivia, keeping the EOF.
func Significant(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, tok := range tokens {
		if !token.IsTrivia(tok.Type) {
			out = append(out, tok)
		}
	}
	return out
}
