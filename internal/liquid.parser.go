package internal

import (
	"strings"

	"go.uber.org/zap"
)

// blockSpec describes the structure of a grammar-level block tag.
type blockSpec struct {
	end string          // closing tag name, e.g. "endif"
	aux map[string]bool // branch markers allowed inside the block
}

// blockTags is the fixed set of block constructs the grammar knows.
// Registered custom tags are always inline.
var blockTags = map[string]blockSpec{
	TagNameIf:      {end: EndTagPrefix + TagNameIf, aux: map[string]bool{TagNameElsif: true, TagNameElse: true}},
	TagNameUnless:  {end: EndTagPrefix + TagNameUnless, aux: map[string]bool{TagNameElse: true}},
	TagNameCase:    {end: EndTagPrefix + TagNameCase, aux: map[string]bool{TagNameWhen: true, TagNameElse: true}},
	TagNameFor:     {end: EndTagPrefix + TagNameFor, aux: map[string]bool{TagNameElse: true}},
	TagNameCapture: {end: EndTagPrefix + TagNameCapture},
	TagNameComment: {end: EndTagPrefix + TagNameComment},
	TagNameRaw:     {end: EndTagPrefix + TagNameRaw},
}

// IsBlockTag reports whether name opens a grammar-level block.
func IsBlockTag(name string) bool {
	_, ok := blockTags[name]
	return ok
}

// Parser builds a concrete syntax tree from a token stream.
type Parser struct {
	tokens []Token
	pos    int
	logger *zap.Logger
}

// NewParser creates a parser over the given token stream.
func NewParser(tokens []Token, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{tokens: tokens, logger: logger}
}

// Parse consumes the token stream and returns the CST root.
func (p *Parser) Parse() (*CSTNode, error) {
	p.logger.Debug(LogMsgParserStart, zap.Int(LogFieldTokens, len(p.tokens)))

	root := NewRootNode()
	if err := p.parseInto(root, ""); err != nil {
		return nil, err
	}

	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(root.Children)))
	return root, nil
}

// parseInto appends nodes to parent until the closing tag named end is
// consumed (or EOF when end is empty, i.e. at the top level).
func (p *Parser) parseInto(parent *CSTNode, end string) error {
	spec := blockTags[parent.Name]

	for {
		tok := p.next()

		switch tok.Type {
		case TokenEOF:
			if end != "" {
				return NewSyntaxError(ErrMsgUnterminatedBlock, parent.Name, parent.Pos)
			}
			return nil

		case TokenText:
			parent.Children = append(parent.Children, NewTextNode(tok.Value, tok.Pos))

		case TokenOutput:
			parent.Children = append(parent.Children, NewOutputNode(tok.Value, tok.Pos))

		case TokenTag:
			switch {
			case tok.Name == end:
				return nil

			case strings.HasPrefix(tok.Name, EndTagPrefix) && IsBlockTag(strings.TrimPrefix(tok.Name, EndTagPrefix)):
				if end == "" {
					return NewSyntaxError(ErrMsgUnexpectedEndTag, tok.Name, tok.Pos)
				}
				return NewSyntaxError(ErrMsgMismatchedEndTag, tok.Name, tok.Pos)

			case spec.aux[tok.Name]:
				// Branch markers stay flat in the block's child list; the
				// graph builder splits the children on them.
				parent.Children = append(parent.Children, NewTagNode(tok.Name, tok.Value, tok.Pos))

			case tok.Name == TagNameElse || tok.Name == TagNameElsif || tok.Name == TagNameWhen:
				return NewSyntaxError(ErrMsgOrphanBranchTag, tok.Name, tok.Pos)

			case IsBlockTag(tok.Name):
				block := NewTagNode(tok.Name, tok.Value, tok.Pos)
				if err := p.parseInto(block, blockTags[tok.Name].end); err != nil {
					return err
				}
				parent.Children = append(parent.Children, block)

			default:
				parent.Children = append(parent.Children, NewTagNode(tok.Name, tok.Value, tok.Pos))
			}
		}
	}
}

// next returns the next token, or EOF forever once exhausted.
func (p *Parser) next() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// ParseSource tokenizes and parses source in one step.
func ParseSource(source string, logger *zap.Logger) (*CSTNode, error) {
	lexer := NewLexer(source, logger)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, logger).Parse()
}
