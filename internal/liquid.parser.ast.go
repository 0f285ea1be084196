package internal

import (
	"fmt"
	"strings"
)

// CSTKind identifies the kind of a concrete-syntax-tree node.
type CSTKind int

const (
	// CSTRoot is the top-level container node.
	CSTRoot CSTKind = iota
	// CSTText is a run of literal template text.
	CSTText
	// CSTOutput is a {{ ... }} output expression.
	CSTOutput
	// CSTTag is a {% ... %} tag, inline or block.
	CSTTag
)

// CSTNode is one node of the concrete syntax tree produced by the parser.
// The tree carries raw markup only; names are resolved against the
// registries later, when the executable graph is built.
type CSTNode struct {
	Kind     CSTKind
	Name     string // Tag name for CSTTag nodes
	Markup   string // Raw argument text (tags) or expression text (outputs)
	Text     string // Literal content for CSTText nodes
	Pos      Position
	Children []*CSTNode
}

// Symbol returns the construct's symbolic name as shown in diagnostics.
func (n *CSTNode) Symbol() string {
	switch n.Kind {
	case CSTRoot:
		return SymbolRoot
	case CSTText:
		return SymbolText
	case CSTOutput:
		return SymbolOutput
	case CSTTag:
		return n.Name
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(n.Kind))
	}
}

// Literal returns the literal text the construct carries, if any.
func (n *CSTNode) Literal() string {
	switch n.Kind {
	case CSTText:
		return n.Text
	case CSTOutput, CSTTag:
		return n.Markup
	default:
		return ""
	}
}

// String returns a compact single-node representation.
func (n *CSTNode) String() string {
	var sb strings.Builder
	sb.WriteString(n.Symbol())
	if lit := n.Literal(); lit != "" {
		fmt.Fprintf(&sb, "(%q)", lit)
	}
	if len(n.Children) > 0 {
		fmt.Fprintf(&sb, "{children=%d}", len(n.Children))
	}
	return sb.String()
}

// NewRootNode creates an empty root node.
func NewRootNode() *CSTNode {
	return &CSTNode{Kind: CSTRoot, Pos: Position{Line: 1, Column: 1}}
}

// NewTextNode creates a literal text node.
func NewTextNode(text string, pos Position) *CSTNode {
	return &CSTNode{Kind: CSTText, Text: text, Pos: pos}
}

// NewOutputNode creates an output-expression node.
func NewOutputNode(expr string, pos Position) *CSTNode {
	return &CSTNode{Kind: CSTOutput, Markup: expr, Pos: pos}
}

// NewTagNode creates a tag node. Block tags receive children while the
// parser processes their body.
func NewTagNode(name, markup string, pos Position) *CSTNode {
	return &CSTNode{Kind: CSTTag, Name: name, Markup: markup, Pos: pos}
}
