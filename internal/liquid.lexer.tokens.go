package internal

import "fmt"

// Position is a location in the template source.
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string.
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// TokenType identifies the kind of a lexer token.
type TokenType int

const (
	// TokenText is literal template text.
	TokenText TokenType = iota
	// TokenOutput is a {{ ... }} output expression; Value holds the expression.
	TokenOutput
	// TokenTag is a {% ... %} tag; Name holds the tag name, Value the markup.
	TokenTag
	// TokenEOF marks the end of input.
	TokenEOF
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenOutput:
		return "OUTPUT"
	case TokenTag:
		return "TAG"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical unit of a template source.
type Token struct {
	Type  TokenType
	Name  string // Tag name for TokenTag
	Value string // Text content, output expression, or tag markup
	Pos   Position
}

// String returns a string representation of the token.
func (t Token) String() string {
	if t.Type == TokenTag {
		return fmt.Sprintf("%s(%s %q @ %s)", t.Type, t.Name, t.Value, t.Pos)
	}
	return fmt.Sprintf("%s(%q @ %s)", t.Type, t.Value, t.Pos)
}

// SyntaxError reports a lexical or grammatical failure with its position.
type SyntaxError struct {
	Message string
	Detail  string
	Pos     Position
}

// NewSyntaxError creates a syntax error at the given position.
func NewSyntaxError(message, detail string, pos Position) *SyntaxError {
	return &SyntaxError{Message: message, Detail: detail, Pos: pos}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Message, e.Detail, e.Pos)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Pos)
}
