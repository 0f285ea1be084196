package liquid

import (
	"regexp"
	"strings"

	"github.com/itsatony/go-liquid/internal"
)

// Tree-drawing fragments for DumpAST.
const (
	dumpIndentOpen   = "|  "
	dumpIndentClosed = "   "
	dumpMarkerMid    = "|- "
	dumpMarkerLast   = "'- "
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DumpAST renders the parsed construct tree as indented text, one node
// per line. Each line carries the node's symbol and, when it differs,
// its literal text with whitespace runs collapsed to single spaces.
// The walk is iterative and covers the whole tree, so the dump is
// usable on templates of any nesting depth.
func (t *Template) DumpAST() string {
	var sb strings.Builder
	stack := [][]*internal.CSTNode{{t.cst}}

	for len(stack) > 0 {
		siblings := stack[len(stack)-1]
		if len(siblings) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		node := siblings[0]
		stack[len(stack)-1] = siblings[1:]

		for _, level := range stack[:len(stack)-1] {
			if len(level) > 0 {
				sb.WriteString(dumpIndentOpen)
			} else {
				sb.WriteString(dumpIndentClosed)
			}
		}
		if len(stack[len(stack)-1]) > 0 {
			sb.WriteString(dumpMarkerMid)
		} else {
			sb.WriteString(dumpMarkerLast)
		}

		symbol := node.Symbol()
		sb.WriteString(symbol)
		if text := collapseWhitespace(node.Literal()); text != "" && text != symbol {
			sb.WriteString("='")
			sb.WriteString(text)
			sb.WriteString("'")
		}
		sb.WriteByte('\n')

		if len(node.Children) > 0 {
			children := make([]*internal.CSTNode, len(node.Children))
			copy(children, node.Children)
			stack = append(stack, children)
		}
	}
	return sb.String()
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
