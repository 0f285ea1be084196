package liquid

import (
	"context"

	"github.com/itsatony/go-cuserr"

	"github.com/itsatony/go-liquid/internal"
)

// Tag is the extension interface for custom tags. Tag arguments are the
// tag's markup expressions, evaluated against the current context in
// order; a tag written as {% greet user.name, "!" %} receives two args.
//
// Custom tags are inline: they own no block body. The grammar-level
// block constructs (if, for, case, ...) are fixed.
type Tag interface {
	Render(ctx context.Context, rctx *Context, args []any) (any, error)
}

// TagFunc adapts a plain function to Tag.
type TagFunc func(ctx context.Context, rctx *Context, args []any) (any, error)

// Render implements Tag.
func (f TagFunc) Render(ctx context.Context, rctx *Context, args []any) (any, error) {
	return f(ctx, rctx, args)
}

// Filter is the extension interface for custom filters. The value is
// the filter's pipeline input; args are the evaluated filter arguments.
type Filter interface {
	Apply(value any, args []any) (any, error)
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(value any, args []any) (any, error)

// Apply implements Filter.
func (f FilterFunc) Apply(value any, args []any) (any, error) {
	return f(value, args)
}

const (
	errMsgBadContextType = "evaluation context has an unexpected type"
	errMsgBlockTagCustom = "custom tags are inline and cannot serve a block tag"
)

// tagAdapter bridges the public Tag interface to the internal
// tag-handler contract: it compiles the tag's markup into argument
// expressions at build time and defers to the public handler at render
// time.
type tagAdapter struct {
	tag Tag
}

// Build implements internal.TagHandler. Block constructs carry a body
// a custom tag has no way to receive, so binding one fails the build
// rather than silently dropping the body.
func (a *tagAdapter) Build(bc *internal.BuildContext, cst *internal.CSTNode) (internal.Node, error) {
	if internal.IsBlockTag(cst.Name) {
		return nil, internal.NewSyntaxError(errMsgBlockTagCustom, cst.Name, cst.Pos)
	}
	args, err := internal.ParseExpressionList(cst.Markup, bc.FlavorName, cst.Pos)
	if err != nil {
		return nil, err
	}
	return &customTagNode{tag: a.tag, args: args}, nil
}

// customTagNode invokes a public Tag with its evaluated arguments.
type customTagNode struct {
	tag  Tag
	args []internal.Expression
}

// Evaluate implements internal.Node.
func (n *customTagNode) Evaluate(ctx context.Context, env internal.ContextAccessor) (any, error) {
	rctx, ok := env.(*Context)
	if !ok {
		return nil, cuserr.NewValidationError(ErrCodeRender, errMsgBadContextType)
	}

	args := make([]any, len(n.args))
	for i, argExpr := range n.args {
		arg, err := argExpr.Eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return n.tag.Render(ctx, rctx, args)
}

// filterAdapter bridges the public Filter interface to the internal
// filter-handler contract.
type filterAdapter struct {
	filter Filter
}

// Apply implements internal.FilterHandler.
func (a *filterAdapter) Apply(value any, args []any) (any, error) {
	return a.filter.Apply(value, args)
}
