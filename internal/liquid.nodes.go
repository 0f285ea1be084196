package internal

import (
	"context"
	"fmt"
	"strings"
)

// ContextAccessor is the evaluation environment a node graph runs
// against. The public package's Context implements it.
type ContextAccessor interface {
	// Get resolves a top-level variable, falling back to parent scopes.
	Get(key string) (any, bool)
	// Set binds a variable in the current scope.
	Set(key string, value any)
	// ChildAccessor opens a nested scope that shadows this one.
	ChildAccessor(data map[string]any) ContextAccessor
	// Cycle returns the next index for a cycle group, advancing it.
	Cycle(group string, count int) int
	// FlavorName reports the dialect in effect ("liquid" or "jekyll").
	FlavorName() string
}

// Node is one executable node of the built graph.
type Node interface {
	Evaluate(ctx context.Context, env ContextAccessor) (any, error)
}

// TagHandler compiles one tag construct into an executable node. It is
// resolved by name from the tag registry during graph building; an
// unresolved name fails the build before any evaluation happens.
type TagHandler interface {
	Build(bc *BuildContext, node *CSTNode) (Node, error)
}

// FilterHandler transforms a value during output evaluation.
type FilterHandler interface {
	Apply(value any, args []any) (any, error)
}

// TagBuildFunc adapts a plain function to TagHandler.
type TagBuildFunc func(bc *BuildContext, node *CSTNode) (Node, error)

// Build implements TagHandler.
func (f TagBuildFunc) Build(bc *BuildContext, node *CSTNode) (Node, error) {
	return f(bc, node)
}

// FilterFunc adapts a plain function to FilterHandler.
type FilterFunc func(value any, args []any) (any, error)

// Apply implements FilterHandler.
func (f FilterFunc) Apply(value any, args []any) (any, error) {
	return f(value, args)
}

// UnknownHandlerError reports a tag or filter name with no registered
// handler at graph build time.
type UnknownHandlerError struct {
	Kind string // "tag" or "filter"
	Name string
	Pos  Position
}

// Error implements the error interface.
func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown %s %q (%s)", e.Kind, e.Name, e.Pos)
}

// ---- core nodes ----

// LiteralNode emits fixed text.
type LiteralNode struct {
	Text string
}

// Evaluate returns the literal text.
func (n *LiteralNode) Evaluate(context.Context, ContextAccessor) (any, error) {
	return n.Text, nil
}

// BoundFilter is a filter call resolved to its handler at build time,
// so evaluation never re-resolves names.
type BoundFilter struct {
	Name    string
	Handler FilterHandler
	Args    []Expression
}

// OutputNode evaluates an expression, pushes it through its filter
// pipeline and emits the result.
type OutputNode struct {
	Expr    Expression
	Filters []BoundFilter
	Pos     Position
}

// Evaluate implements Node.
func (n *OutputNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	value, err := n.Expr.Eval(env)
	if err != nil {
		return nil, err
	}
	return ApplyFilters(value, n.Filters, env)
}

// ApplyFilters runs a value through a bound filter pipeline.
func ApplyFilters(value any, filters []BoundFilter, env ContextAccessor) (any, error) {
	for _, f := range filters {
		args := make([]any, len(f.Args))
		for i, argExpr := range f.Args {
			arg, err := argExpr.Eval(env)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		result, err := f.Handler.Apply(value, args)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", f.Name, err)
		}
		value = result
	}
	return value, nil
}

// SequenceNode evaluates its children in order and concatenates their
// stringified results.
type SequenceNode struct {
	Children []Node
}

// Evaluate implements Node.
func (n *SequenceNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	var sb strings.Builder
	for _, child := range n.Children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := child.Evaluate(ctx, env)
		if err != nil {
			return nil, err
		}
		sb.WriteString(Stringify(value))
	}
	return sb.String(), nil
}
