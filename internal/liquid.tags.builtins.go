package internal

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RegisterBuiltinTags seeds a tag registry with the standard tag set.
// All of them can be overridden by a later registration under the same
// name.
func RegisterBuiltinTags(reg *Registry[TagHandler]) {
	reg.Register(TagNameAssign, TagBuildFunc(buildAssignTag))
	reg.Register(TagNameCapture, TagBuildFunc(buildCaptureTag))
	reg.Register(TagNameCase, TagBuildFunc(buildCaseTag))
	reg.Register(TagNameComment, TagBuildFunc(buildCommentTag))
	reg.Register(TagNameCycle, TagBuildFunc(buildCycleTag))
	reg.Register(TagNameFor, TagBuildFunc(buildForTag))
	reg.Register(TagNameIf, TagBuildFunc(buildIfTag))
	reg.Register(TagNameInclude, TagBuildFunc(buildIncludeTag))
	reg.Register(TagNameRaw, TagBuildFunc(buildRawTag))
	reg.Register(TagNameUnless, TagBuildFunc(buildUnlessTag))
}

// branchSegment is one branch of a block split on its marker tags.
type branchSegment struct {
	marker *CSTNode // nil for the leading segment
	nodes  []*CSTNode
}

// splitBranches partitions a block's children on marker tag names.
func splitBranches(children []*CSTNode, markers map[string]bool) []branchSegment {
	segments := []branchSegment{{}}
	for _, child := range children {
		if child.Kind == CSTTag && markers[child.Name] {
			segments = append(segments, branchSegment{marker: child})
			continue
		}
		last := &segments[len(segments)-1]
		last.nodes = append(last.nodes, child)
	}
	return segments
}

// ---- assign ----

type assignNode struct {
	name    string
	expr    Expression
	filters []BoundFilter
}

func (n *assignNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	value, err := n.expr.Eval(env)
	if err != nil {
		return nil, err
	}
	value, err = ApplyFilters(value, n.filters, env)
	if err != nil {
		return nil, err
	}
	env.Set(n.name, value)
	return nil, nil
}

func buildAssignTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	name, rest, found := strings.Cut(cst.Markup, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return nil, NewSyntaxError(ErrMsgBadAssignMarkup, cst.Markup, cst.Pos)
	}
	filtered, err := ParseFilteredExpression(strings.TrimSpace(rest), bc.FlavorName, cst.Pos)
	if err != nil {
		return nil, err
	}
	bound, err := bc.BindFilters(filtered.Filters)
	if err != nil {
		return nil, err
	}
	return &assignNode{name: name, expr: filtered.Expr, filters: bound}, nil
}

// ---- capture ----

type captureNode struct {
	name string
	body Node
}

func (n *captureNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	value, err := n.body.Evaluate(ctx, env)
	if err != nil {
		return nil, err
	}
	env.Set(n.name, Stringify(value))
	return nil, nil
}

func buildCaptureTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	name := strings.TrimSpace(cst.Markup)
	if name == "" || strings.ContainsAny(name, " \t") {
		return nil, NewSyntaxError(ErrMsgBadCaptureMarkup, cst.Markup, cst.Pos)
	}
	body, err := bc.BuildNodes(cst.Children)
	if err != nil {
		return nil, err
	}
	return &captureNode{name: name, body: body}, nil
}

// ---- comment / raw ----

func buildCommentTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	// Content is discarded; the block only exists in the CST.
	return &LiteralNode{}, nil
}

func buildRawTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	var sb strings.Builder
	for _, child := range cst.Children {
		sb.WriteString(child.Text)
	}
	return &LiteralNode{Text: sb.String()}, nil
}

// ---- if / unless ----

type conditionalBranch struct {
	cond Expression // nil for else
	body Node
}

type ifNode struct {
	branches []conditionalBranch
}

func (n *ifNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	for _, branch := range n.branches {
		if branch.cond == nil {
			return branch.body.Evaluate(ctx, env)
		}
		result, err := branch.cond.Eval(env)
		if err != nil {
			return nil, err
		}
		if Truthy(result) {
			return branch.body.Evaluate(ctx, env)
		}
	}
	return nil, nil
}

// negatedExpr inverts a condition, backing the unless tag.
type negatedExpr struct {
	inner Expression
}

func (e negatedExpr) Eval(env ContextAccessor) (any, error) {
	value, err := e.inner.Eval(env)
	if err != nil {
		return nil, err
	}
	return !Truthy(value), nil
}

func buildConditional(bc *BuildContext, cst *CSTNode, negate bool) (Node, error) {
	markers := map[string]bool{TagNameElsif: true, TagNameElse: true}
	node := &ifNode{}

	for i, seg := range splitBranches(cst.Children, markers) {
		body, err := bc.BuildNodes(seg.nodes)
		if err != nil {
			return nil, err
		}

		branch := conditionalBranch{body: body}
		switch {
		case i == 0:
			cond, err := ParseExpression(cst.Markup, bc.FlavorName, cst.Pos)
			if err != nil {
				return nil, err
			}
			if negate {
				cond = negatedExpr{inner: cond}
			}
			branch.cond = cond
		case seg.marker.Name == TagNameElsif:
			cond, err := ParseExpression(seg.marker.Markup, bc.FlavorName, seg.marker.Pos)
			if err != nil {
				return nil, err
			}
			branch.cond = cond
		}
		node.branches = append(node.branches, branch)
	}
	return node, nil
}

func buildIfTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	return buildConditional(bc, cst, false)
}

func buildUnlessTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	return buildConditional(bc, cst, true)
}

// ---- case ----

type caseBranch struct {
	values []Expression // nil for else
	body   Node
}

type caseNode struct {
	subject  Expression
	branches []caseBranch
}

func (n *caseNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	subject, err := n.subject.Eval(env)
	if err != nil {
		return nil, err
	}
	for _, branch := range n.branches {
		if branch.values == nil {
			return branch.body.Evaluate(ctx, env)
		}
		for _, valueExpr := range branch.values {
			value, err := valueExpr.Eval(env)
			if err != nil {
				return nil, err
			}
			if Equals(subject, value) {
				return branch.body.Evaluate(ctx, env)
			}
		}
	}
	return nil, nil
}

func buildCaseTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	subject, err := ParseExpression(cst.Markup, bc.FlavorName, cst.Pos)
	if err != nil {
		return nil, err
	}
	node := &caseNode{subject: subject}

	markers := map[string]bool{TagNameWhen: true, TagNameElse: true}
	for i, seg := range splitBranches(cst.Children, markers) {
		if i == 0 {
			// Text between "case" and the first "when" is insignificant.
			continue
		}
		body, err := bc.BuildNodes(seg.nodes)
		if err != nil {
			return nil, err
		}
		branch := caseBranch{body: body}
		if seg.marker.Name == TagNameWhen {
			values, err := ParseExpressionList(seg.marker.Markup, bc.FlavorName, seg.marker.Pos)
			if err != nil {
				return nil, err
			}
			branch.values = values
		}
		node.branches = append(node.branches, branch)
	}
	return node, nil
}

// ---- for ----

type forNode struct {
	itemVar  string
	source   Expression
	limit    Expression // nil when absent
	offset   Expression // nil when absent
	reversed bool
	maxIter  int
	body     Node
	elseBody Node // nil when absent
}

func (n *forNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	collection, err := n.source.Eval(env)
	if err != nil {
		return nil, err
	}
	items, err := iterableItems(collection)
	if err != nil {
		return nil, err
	}

	if n.offset != nil {
		offset, err := evalIntOption(n.offset, env)
		if err != nil {
			return nil, err
		}
		if offset >= int64(len(items)) {
			items = nil
		} else if offset > 0 {
			items = items[offset:]
		}
	}
	if n.limit != nil {
		limit, err := evalIntOption(n.limit, env)
		if err != nil {
			return nil, err
		}
		if limit < int64(len(items)) {
			items = items[:limit]
		}
	}
	if n.maxIter > 0 && len(items) > n.maxIter {
		items = items[:n.maxIter]
	}
	if n.reversed {
		reversed := make([]any, len(items))
		for i, item := range items {
			reversed[len(items)-1-i] = item
		}
		items = reversed
	}

	if len(items) == 0 {
		if n.elseBody != nil {
			return n.elseBody.Evaluate(ctx, env)
		}
		return nil, nil
	}

	var sb strings.Builder
	length := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scope := env.ChildAccessor(map[string]any{
			n.itemVar: item,
			ForloopVarName: map[string]any{
				ForloopKeyIndex:  int64(i + 1),
				ForloopKeyIndex0: int64(i),
				ForloopKeyRIndex: int64(length - i),
				ForloopKeyFirst:  i == 0,
				ForloopKeyLast:   i == length-1,
				ForloopKeyLength: int64(length),
			},
		})
		value, err := n.body.Evaluate(ctx, scope)
		if err != nil {
			return nil, err
		}
		sb.WriteString(Stringify(value))
	}
	return sb.String(), nil
}

// iterableItems normalizes a loop collection. Maps iterate as
// [key, value] pairs in key order; nil iterates as empty.
func iterableItems(collection any) ([]any, error) {
	if collection == nil {
		return nil, nil
	}
	if m, ok := collection.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = []any{k, m[k]}
		}
		return items, nil
	}
	if items, ok := sliceOf(collection); ok {
		return items, nil
	}
	return nil, fmt.Errorf("%s: %T", ErrMsgNonIterable, collection)
}

func evalIntOption(expr Expression, env ContextAccessor) (int64, error) {
	value, err := expr.Eval(env)
	if err != nil {
		return 0, err
	}
	n, ok := ToInt(value)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%s: %v", ErrMsgBadForMarkup, value)
	}
	return n, nil
}

func buildForTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	itemVar, rest, found := strings.Cut(cst.Markup, " in ")
	itemVar = strings.TrimSpace(itemVar)
	if !found || itemVar == "" {
		return nil, NewSyntaxError(ErrMsgBadForMarkup, cst.Markup, cst.Pos)
	}

	parser, err := newExprParser(strings.TrimSpace(rest), bc.FlavorName, cst.Pos)
	if err != nil {
		return nil, err
	}
	source, err := parser.parseOr()
	if err != nil {
		return nil, err
	}

	node := &forNode{itemVar: itemVar, source: source, maxIter: bc.MaxIterations}
	for !parser.atEnd() {
		word, ok := parser.matchIdent("reversed", "limit", "offset")
		if !ok {
			return nil, parser.errorHere()
		}
		if word == "reversed" {
			node.reversed = true
			continue
		}
		if _, ok := parser.matchOp(":"); !ok {
			return nil, parser.errorHere()
		}
		arg, err := parser.parsePrimary()
		if err != nil {
			return nil, err
		}
		if word == "limit" {
			node.limit = arg
		} else {
			node.offset = arg
		}
	}

	segments := splitBranches(cst.Children, map[string]bool{TagNameElse: true})
	node.body, err = bc.BuildNodes(segments[0].nodes)
	if err != nil {
		return nil, err
	}
	if len(segments) > 1 {
		node.elseBody, err = bc.BuildNodes(segments[1].nodes)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// ---- cycle ----

type cycleNode struct {
	group  string
	values []Expression
}

func (n *cycleNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	index := env.Cycle(n.group, len(n.values))
	return n.values[index].Eval(env)
}

func buildCycleTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	markup := cst.Markup
	group := markup

	// An optional "name:" prefix scopes the cycle group explicitly. A
	// colon inside a quoted value must not be mistaken for it.
	if name, rest, found := strings.Cut(markup, ":"); found && isCycleGroupName(strings.TrimSpace(name)) {
		group = strings.Trim(strings.TrimSpace(name), `'"`)
		markup = rest
	}

	values, err := ParseExpressionList(strings.TrimSpace(markup), bc.FlavorName, cst.Pos)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, NewSyntaxError(ErrMsgCycleNoValues, "", cst.Pos)
	}
	return &cycleNode{group: group, values: values}, nil
}

// isCycleGroupName reports whether the text before a colon is a group
// name: a bare identifier or a complete quoted string.
func isCycleGroupName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '\'' || name[0] == '"' {
		return len(name) > 1 && name[len(name)-1] == name[0]
	}
	for i := 0; i < len(name); i++ {
		if !isIdentPart(name[i], true) {
			return false
		}
	}
	return true
}

// ---- include ----

type includeNode struct {
	body   Node
	params map[string]Expression
}

func (n *includeNode) Evaluate(ctx context.Context, env ContextAccessor) (any, error) {
	data := make(map[string]any, len(n.params))
	for name, expr := range n.params {
		value, err := expr.Eval(env)
		if err != nil {
			return nil, err
		}
		data[name] = value
	}
	return n.body.Evaluate(ctx, env.ChildAccessor(data))
}

func buildIncludeTag(bc *BuildContext, cst *CSTNode) (Node, error) {
	namePart, paramPart, _ := strings.Cut(cst.Markup, ",")
	namePart = strings.TrimSpace(namePart)
	if namePart == "" {
		return nil, NewSyntaxError(ErrMsgBadIncludeMarkup, cst.Markup, cst.Pos)
	}

	name := namePart
	if quoted := len(namePart) > 1 &&
		(namePart[0] == '\'' || namePart[0] == '"') &&
		namePart[len(namePart)-1] == namePart[0]; quoted {
		name = namePart[1 : len(namePart)-1]
	} else if bc.FlavorName != FlavorJekyll {
		// Only the jekyll flavor accepts bare partial names.
		return nil, NewSyntaxError(ErrMsgBareIncludeName, namePart, cst.Pos)
	}

	if bc.Partials == nil {
		return nil, NewSyntaxError(ErrMsgPartialNotFound, name, cst.Pos)
	}
	source, ok := bc.Partials(name)
	if !ok {
		return nil, NewSyntaxError(ErrMsgPartialNotFound, name, cst.Pos)
	}
	body, err := bc.BuildPartial(source, cst.Pos)
	if err != nil {
		return nil, err
	}

	node := &includeNode{body: body, params: make(map[string]Expression)}
	if strings.TrimSpace(paramPart) != "" {
		parser, err := newExprParser(paramPart, bc.FlavorName, cst.Pos)
		if err != nil {
			return nil, err
		}
		for !parser.atEnd() {
			key := parser.peek()
			if key.kind != exprTokIdent {
				return nil, parser.errorHere()
			}
			parser.next()
			if _, ok := parser.matchOp(":"); !ok {
				return nil, parser.errorHere()
			}
			value, err := parser.parseOr()
			if err != nil {
				return nil, err
			}
			node.params[key.text] = value
			if _, ok := parser.matchOp(","); !ok {
				break
			}
		}
		if !parser.atEnd() {
			return nil, parser.errorHere()
		}
	}
	return node, nil
}
