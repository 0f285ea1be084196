package internal

import (
	"go.uber.org/zap"
)

// BuildContext carries everything a graph build needs: the registry
// snapshots taken at build start, the dialect, and the partial lookup
// used by include. Registries are read-only during the build.
type BuildContext struct {
	Tags          map[string]TagHandler
	Filters       map[string]FilterHandler
	FlavorName    string
	Logger        *zap.Logger
	Partials      func(name string) (string, bool)
	MaxIterations int
	MaxDepth      int // include nesting depth limit
	depth         int
}

// NewBuildContext creates a build context with defaulted limits.
func NewBuildContext(tags map[string]TagHandler, filters map[string]FilterHandler, flavor string, logger *zap.Logger) *BuildContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuildContext{
		Tags:          tags,
		Filters:       filters,
		FlavorName:    flavor,
		Logger:        logger,
		MaxIterations: DefaultMaxIterations,
		MaxDepth:      DefaultMaxBuildDepth,
	}
}

// BuildGraph walks the CST once, depth-first, resolving every tag and
// filter name against the registry snapshots and producing the
// executable node graph. Unresolved names fail here, before any node is
// evaluated.
func BuildGraph(root *CSTNode, bc *BuildContext) (Node, error) {
	bc.Logger.Debug(LogMsgBuildStart, zap.Int(LogFieldNodes, len(root.Children)))

	graph, err := bc.BuildNodes(root.Children)
	if err != nil {
		return nil, err
	}

	bc.Logger.Debug(LogMsgBuildEnd)
	return graph, nil
}

// BuildNodes builds a sequence node from a CST child list. Tag handlers
// use it to build their block bodies.
func (bc *BuildContext) BuildNodes(children []*CSTNode) (Node, error) {
	seq := &SequenceNode{Children: make([]Node, 0, len(children))}
	for _, child := range children {
		node, err := bc.buildNode(child)
		if err != nil {
			return nil, err
		}
		seq.Children = append(seq.Children, node)
	}
	return seq, nil
}

// buildNode maps one CST construct to its executable node. The mapping
// is total over the construct set; an unknown kind is a build failure,
// never a silent fallthrough.
func (bc *BuildContext) buildNode(cst *CSTNode) (Node, error) {
	switch cst.Kind {
	case CSTText:
		return &LiteralNode{Text: cst.Text}, nil

	case CSTOutput:
		return bc.buildOutput(cst)

	case CSTTag:
		handler, ok := bc.Tags[cst.Name]
		if !ok {
			return nil, &UnknownHandlerError{Kind: HandlerKindTag, Name: cst.Name, Pos: cst.Pos}
		}
		return handler.Build(bc, cst)

	default:
		return nil, NewSyntaxError(ErrMsgUnknownConstruct, cst.Symbol(), cst.Pos)
	}
}

// buildOutput parses the output expression and binds its filter chain.
func (bc *BuildContext) buildOutput(cst *CSTNode) (Node, error) {
	filtered, err := ParseFilteredExpression(cst.Markup, bc.FlavorName, cst.Pos)
	if err != nil {
		return nil, err
	}
	bound, err := bc.BindFilters(filtered.Filters)
	if err != nil {
		return nil, err
	}
	return &OutputNode{Expr: filtered.Expr, Filters: bound, Pos: cst.Pos}, nil
}

// BindFilters resolves each filter call against the filter snapshot.
func (bc *BuildContext) BindFilters(calls []FilterCall) ([]BoundFilter, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	bound := make([]BoundFilter, 0, len(calls))
	for _, call := range calls {
		handler, ok := bc.Filters[call.Name]
		if !ok {
			return nil, &UnknownHandlerError{Kind: HandlerKindFilter, Name: call.Name, Pos: call.Pos}
		}
		bound = append(bound, BoundFilter{Name: call.Name, Handler: handler, Args: call.Args})
	}
	return bound, nil
}

// BuildPartial parses and builds an included partial's source within
// this build, one nesting level deeper.
func (bc *BuildContext) BuildPartial(source string, pos Position) (Node, error) {
	if bc.depth+1 > bc.MaxDepth {
		return nil, NewSyntaxError(ErrMsgIncludeDepth, "", pos)
	}
	cst, err := ParseSource(source, bc.Logger)
	if err != nil {
		return nil, err
	}
	child := *bc
	child.depth++
	return BuildGraph(cst, &child)
}
