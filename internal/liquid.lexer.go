package internal

import (
	"strings"

	"go.uber.org/zap"
)

// Lexer tokenizes template source into a token stream.
// Both flavors share one lexical structure; flavor differences only
// affect expression parsing, not tokenization.
type Lexer struct {
	source string
	pos    int // Current byte position
	line   int // Current line (1-indexed)
	column int // Current column (1-indexed)
	logger *zap.Logger
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lexer{
		source: source,
		pos:    0,
		line:   1,
		column: 1,
		logger: logger,
	}
}

// Tokenize processes the source and returns a token stream.
func (l *Lexer) Tokenize() ([]Token, error) {
	l.logger.Debug(LogMsgLexerStart, zap.Int(LogFieldSource, len(l.source)))
	var tokens []Token

	for !l.isAtEnd() {
		switch {
		case l.matchStr(DelimOutputOpen):
			tok, err := l.scanOutput()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case l.matchStr(DelimTagOpen):
			tok, err := l.scanTag()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

			// Raw and comment blocks capture their content verbatim, so the
			// lexer must not tokenize it. Scan forward to the matching end tag.
			if tok.Name == TagNameRaw || tok.Name == TagNameComment {
				verbatim, err := l.scanVerbatim(tok.Name, tok.Pos)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, verbatim...)
			}

		default:
			tok := l.scanText()
			if tok.Value != "" {
				tokens = append(tokens, tok)
			}
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: l.currentPosition()})
	l.logger.Debug(LogMsgLexerEnd, zap.Int(LogFieldTokens, len(tokens)))
	return tokens, nil
}

// scanText scans literal text up to the next delimiter or end of input.
func (l *Lexer) scanText() Token {
	pos := l.currentPosition()
	start := l.pos
	for !l.isAtEnd() && !l.matchStr(DelimOutputOpen) && !l.matchStr(DelimTagOpen) {
		l.advance()
	}
	return Token{Type: TokenText, Value: l.source[start:l.pos], Pos: pos}
}

// scanOutput scans a {{ expression }} construct.
func (l *Lexer) scanOutput() (Token, error) {
	pos := l.currentPosition()
	l.advanceN(len(DelimOutputOpen))

	start := l.pos
	end := strings.Index(l.source[l.pos:], DelimOutputClose)
	if end == -1 {
		return Token{}, NewSyntaxError(ErrMsgUnterminatedOutput, "", pos)
	}
	l.advanceN(end + len(DelimOutputClose))

	expr := strings.TrimSpace(l.source[start : start+end])
	if expr == "" {
		return Token{}, NewSyntaxError(ErrMsgEmptyExpression, "", pos)
	}
	return Token{Type: TokenOutput, Value: expr, Pos: pos}, nil
}

// scanTag scans a {% name markup %} construct.
func (l *Lexer) scanTag() (Token, error) {
	pos := l.currentPosition()
	l.advanceN(len(DelimTagOpen))

	start := l.pos
	end := strings.Index(l.source[l.pos:], DelimTagClose)
	if end == -1 {
		return Token{}, NewSyntaxError(ErrMsgUnterminatedTag, "", pos)
	}
	l.advanceN(end + len(DelimTagClose))

	content := strings.TrimSpace(l.source[start : start+end])
	if content == "" {
		return Token{}, NewSyntaxError(ErrMsgEmptyTag, "", pos)
	}

	name, markup, _ := strings.Cut(content, " ")
	return Token{Type: TokenTag, Name: name, Value: strings.TrimSpace(markup), Pos: pos}, nil
}

// scanVerbatim captures everything up to {% end<name> %} as a single text
// token followed by the end tag token. Nested delimiters inside the block
// are preserved untouched.
func (l *Lexer) scanVerbatim(name string, openPos Position) ([]Token, error) {
	endName := EndTagPrefix + name
	textPos := l.currentPosition()
	start := l.pos

	for !l.isAtEnd() {
		if !l.matchStr(DelimTagOpen) {
			l.advance()
			continue
		}
		// Peek the tag without committing: only end<name> terminates the block.
		closeIdx := strings.Index(l.source[l.pos:], DelimTagClose)
		if closeIdx == -1 {
			break
		}
		inner := strings.TrimSpace(l.source[l.pos+len(DelimTagOpen) : l.pos+closeIdx])
		if inner != endName {
			l.advance()
			continue
		}

		content := l.source[start:l.pos]
		endPos := l.currentPosition()
		l.advanceN(closeIdx + len(DelimTagClose))

		tokens := make([]Token, 0, 2)
		if content != "" {
			tokens = append(tokens, Token{Type: TokenText, Value: content, Pos: textPos})
		}
		tokens = append(tokens, Token{Type: TokenTag, Name: endName, Pos: endPos})
		return tokens, nil
	}

	return nil, NewSyntaxError(ErrMsgUnterminatedRaw, name, openPos)
}

// matchStr checks whether the source at the current position starts with s.
func (l *Lexer) matchStr(s string) bool {
	return strings.HasPrefix(l.source[l.pos:], s)
}

// advance moves one byte forward, tracking line and column.
func (l *Lexer) advance() {
	if l.source[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

// advanceN moves n bytes forward.
func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && !l.isAtEnd(); i++ {
		l.advance()
	}
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) currentPosition() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.column}
}
