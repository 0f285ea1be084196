package internal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Expression is a parsed value expression, evaluated against a context.
type Expression interface {
	Eval(env ContextAccessor) (any, error)
}

// FilterCall is one filter invocation in a filtered expression.
type FilterCall struct {
	Name string
	Args []Expression
	Pos  Position
}

// FilteredExpr is an expression followed by a pipeline of filter calls,
// as written in output statements and assign tags.
type FilteredExpr struct {
	Expr    Expression
	Filters []FilterCall
}

// emptyType is the sentinel for Liquid's `empty` keyword.
type emptyType struct{}

// EmptyValue compares equal to empty strings, slices and maps.
var EmptyValue = emptyType{}

// ---- expression AST ----

type literalExpr struct {
	value any
}

func (e literalExpr) Eval(ContextAccessor) (any, error) {
	return e.value, nil
}

// pathSegment is one step of a variable path: a fixed key or a bracketed
// index expression.
type pathSegment struct {
	key   string
	index Expression // nil unless this is a [..] segment
}

type pathExpr struct {
	root     string
	segments []pathSegment
}

func (e pathExpr) Eval(env ContextAccessor) (any, error) {
	current, ok := env.Get(e.root)
	if !ok {
		// Unresolved variables render as absent values, matching the
		// language's lenient lookup semantics.
		return nil, nil
	}
	for _, seg := range e.segments {
		var key any = seg.key
		if seg.index != nil {
			val, err := seg.index.Eval(env)
			if err != nil {
				return nil, err
			}
			key = val
		}
		current = traverse(current, key)
	}
	return current, nil
}

type binaryExpr struct {
	op    string
	left  Expression
	right Expression
}

func (e binaryExpr) Eval(env ContextAccessor) (any, error) {
	left, err := e.left.Eval(env)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case "and":
		if !Truthy(left) {
			return false, nil
		}
		right, err := e.right.Eval(env)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	case "or":
		if Truthy(left) {
			return true, nil
		}
		right, err := e.right.Eval(env)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	}

	right, err := e.right.Eval(env)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case "==":
		return Equals(left, right), nil
	case "!=":
		return !Equals(left, right), nil
	case "contains":
		return Contains(left, right), nil
	case "<", "<=", ">", ">=":
		cmp, err := Compare(left, right)
		if err != nil {
			return nil, err
		}
		switch e.op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	default:
		return nil, fmt.Errorf("%s: %q", ErrMsgUnexpectedToken, e.op)
	}
}

type rangeExpr struct {
	from Expression
	to   Expression
}

func (e rangeExpr) Eval(env ContextAccessor) (any, error) {
	fromVal, err := e.from.Eval(env)
	if err != nil {
		return nil, err
	}
	toVal, err := e.to.Eval(env)
	if err != nil {
		return nil, err
	}
	from, ok1 := ToInt(fromVal)
	to, ok2 := ToInt(toVal)
	if !ok1 || !ok2 || to < from {
		return []any{}, nil
	}
	result := make([]any, 0, to-from+1)
	for i := from; i <= to; i++ {
		result = append(result, i)
	}
	return result, nil
}

// ---- scanner ----

type exprTokKind int

const (
	exprTokEOF exprTokKind = iota
	exprTokIdent
	exprTokNumber
	exprTokString
	exprTokOp
)

type exprToken struct {
	kind exprTokKind
	text string
	pos  int
}

type exprScanner struct {
	src    string
	pos    int
	jekyll bool
	base   Position // position of the expression within the template
}

func (s *exprScanner) errorAt(msg, detail string, pos int) error {
	p := s.base
	p.Offset += pos
	// Walk the markup up to pos so columns reset after embedded newlines.
	for i := 0; i < pos && i < len(s.src); i++ {
		if s.src[i] == '\n' {
			p.Line++
			p.Column = 1
		} else {
			p.Column++
		}
	}
	return NewSyntaxError(msg, detail, p)
}

func (s *exprScanner) scan() ([]exprToken, error) {
	var toks []exprToken
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++

		case c == '\'' || c == '"':
			start := s.pos
			s.pos++
			for s.pos < len(s.src) && s.src[s.pos] != c {
				s.pos++
			}
			if s.pos >= len(s.src) {
				return nil, s.errorAt(ErrMsgUnterminatedString, "", start)
			}
			toks = append(toks, exprToken{exprTokString, s.src[start+1 : s.pos], start})
			s.pos++

		case isDigit(c) || (c == '-' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])):
			start := s.pos
			s.pos++
			for s.pos < len(s.src) && (isDigit(s.src[s.pos]) ||
				(s.src[s.pos] == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]) && !strings.Contains(s.src[start:s.pos], "."))) {
				s.pos++
			}
			toks = append(toks, exprToken{exprTokNumber, s.src[start:s.pos], start})

		case isIdentStart(c):
			start := s.pos
			s.pos++
			for s.pos < len(s.src) && isIdentPart(s.src[s.pos], s.jekyll) {
				s.pos++
			}
			toks = append(toks, exprToken{exprTokIdent, s.src[start:s.pos], start})

		default:
			start := s.pos
			two := ""
			if s.pos+1 < len(s.src) {
				two = s.src[s.pos : s.pos+2]
			}
			switch {
			case two == "==" || two == "!=" || two == "<=" || two == ">=" || two == "..":
				toks = append(toks, exprToken{exprTokOp, two, start})
				s.pos += 2
			case strings.ContainsRune("<>|:,.[]()=", rune(c)):
				toks = append(toks, exprToken{exprTokOp, string(c), start})
				s.pos++
			default:
				return nil, s.errorAt(ErrMsgUnexpectedToken, string(c), start)
			}
		}
	}
	toks = append(toks, exprToken{exprTokEOF, "", len(s.src)})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte, jekyll bool) bool {
	// The jekyll flavor additionally allows hyphens in identifiers.
	return isIdentStart(c) || isDigit(c) || (jekyll && c == '-')
}

// ---- parser ----

type exprParser struct {
	toks    []exprToken
	pos     int
	scanner *exprScanner
}

// newExprParser scans src and prepares a parser over its tokens.
func newExprParser(src, flavor string, base Position) (*exprParser, error) {
	scanner := &exprScanner{src: src, jekyll: flavor == FlavorJekyll, base: base}
	toks, err := scanner.scan()
	if err != nil {
		return nil, err
	}
	return &exprParser{toks: toks, scanner: scanner}, nil
}

func (p *exprParser) peek() exprToken { return p.toks[p.pos] }
func (p *exprParser) next() exprToken { t := p.toks[p.pos]; p.pos++; return t }
func (p *exprParser) atEnd() bool     { return p.peek().kind == exprTokEOF }

func (p *exprParser) errorHere() error {
	t := p.peek()
	return p.scanner.errorAt(ErrMsgUnexpectedToken, t.text, t.pos)
}

func (p *exprParser) matchOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != exprTokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *exprParser) matchIdent(words ...string) (string, bool) {
	t := p.peek()
	if t.kind != exprTokIdent {
		return "", false
	}
	for _, w := range words {
		if t.text == w {
			p.pos++
			return w, true
		}
	}
	return "", false
}

func (p *exprParser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchIdent("or"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: "or", left: left, right: right}
	}
}

func (p *exprParser) parseAnd() (Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchIdent("and"); !ok {
			return left, nil
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: "and", left: left, right: right}
	}
}

func (p *exprParser) parseComparison() (Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if op, ok := p.matchOp("==", "!=", "<=", ">=", "<", ">"); ok {
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return binaryExpr{op: op, left: left, right: right}, nil
	}
	if _, ok := p.matchIdent("contains"); ok {
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return binaryExpr{op: "contains", left: left, right: right}, nil
	}
	return left, nil
}

func (p *exprParser) parsePrimary() (Expression, error) {
	t := p.peek()

	switch t.kind {
	case exprTokNumber:
		p.next()
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, p.scanner.errorAt(ErrMsgUnexpectedToken, t.text, t.pos)
			}
			return literalExpr{f}, nil
		}
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.scanner.errorAt(ErrMsgUnexpectedToken, t.text, t.pos)
		}
		return literalExpr{i}, nil

	case exprTokString:
		p.next()
		return literalExpr{t.text}, nil

	case exprTokIdent:
		switch t.text {
		case "true":
			p.next()
			return literalExpr{true}, nil
		case "false":
			p.next()
			return literalExpr{false}, nil
		case "nil", "null":
			p.next()
			return literalExpr{nil}, nil
		case "empty":
			p.next()
			return literalExpr{EmptyValue}, nil
		}
		return p.parsePath()

	case exprTokOp:
		if t.text == "(" {
			return p.parseRange()
		}
	}
	return nil, p.errorHere()
}

// parseRange parses a (from..to) range literal.
func (p *exprParser) parseRange() (Expression, error) {
	p.next() // consume "("
	from, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.matchOp(".."); !ok {
		return nil, p.errorHere()
	}
	to, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.matchOp(")"); !ok {
		return nil, p.errorHere()
	}
	return rangeExpr{from: from, to: to}, nil
}

func (p *exprParser) parsePath() (Expression, error) {
	root := p.next()
	expr := pathExpr{root: root.text}

	for {
		if _, ok := p.matchOp("."); ok {
			seg := p.peek()
			if seg.kind != exprTokIdent {
				return nil, p.errorHere()
			}
			p.next()
			expr.segments = append(expr.segments, pathSegment{key: seg.text})
			continue
		}
		if _, ok := p.matchOp("["); ok {
			index, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			if _, ok := p.matchOp("]"); !ok {
				return nil, p.scanner.errorAt(ErrMsgUnterminatedIndex, "", p.peek().pos)
			}
			expr.segments = append(expr.segments, pathSegment{index: index})
			continue
		}
		return expr, nil
	}
}

// parseFilters parses a trailing "| name: arg, arg | name2" pipeline.
func (p *exprParser) parseFilters() ([]FilterCall, error) {
	var filters []FilterCall
	for {
		if _, ok := p.matchOp("|"); !ok {
			return filters, nil
		}
		name := p.peek()
		if name.kind != exprTokIdent {
			return nil, p.scanner.errorAt(ErrMsgEmptyFilterName, "", name.pos)
		}
		p.next()

		call := FilterCall{Name: name.text, Pos: p.scanner.base}
		if _, ok := p.matchOp(":"); ok {
			for {
				arg, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, arg)
				if _, ok := p.matchOp(","); !ok {
					break
				}
			}
		}
		filters = append(filters, call)
	}
}

// ---- entry points ----

// ParseExpression parses a single value expression.
func ParseExpression(src, flavor string, base Position) (Expression, error) {
	p, err := newExprParser(src, flavor, base)
	if err != nil {
		return nil, err
	}
	if p.atEnd() {
		return nil, NewSyntaxError(ErrMsgEmptyExpression, "", base)
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorHere()
	}
	return expr, nil
}

// ParseFilteredExpression parses an expression with an optional filter
// pipeline, as written in {{ ... }} outputs and assign tags.
func ParseFilteredExpression(src, flavor string, base Position) (*FilteredExpr, error) {
	p, err := newExprParser(src, flavor, base)
	if err != nil {
		return nil, err
	}
	if p.atEnd() {
		return nil, NewSyntaxError(ErrMsgEmptyExpression, "", base)
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	filters, err := p.parseFilters()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorHere()
	}
	return &FilteredExpr{Expr: expr, Filters: filters}, nil
}

// ParseExpressionList parses a comma-separated list of expressions.
func ParseExpressionList(src, flavor string, base Position) ([]Expression, error) {
	p, err := newExprParser(src, flavor, base)
	if err != nil {
		return nil, err
	}
	if p.atEnd() {
		return nil, nil
	}
	var exprs []Expression
	for {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if _, ok := p.matchOp(","); !ok {
			break
		}
	}
	if !p.atEnd() {
		return nil, p.errorHere()
	}
	return exprs, nil
}

// ---- value helpers ----

// traverse resolves one lookup step into a composite value. Failed
// lookups yield nil, matching the language's lenient semantics.
func traverse(value any, key any) any {
	if value == nil {
		return nil
	}

	if name, ok := key.(string); ok {
		switch v := value.(type) {
		case map[string]any:
			if val, ok := v[name]; ok {
				return val
			}
		case map[string]string:
			if val, ok := v[name]; ok {
				return val
			}
		}
		// size/first/last work on strings and collections
		switch name {
		case "size":
			if n, ok := lengthOf(value); ok {
				return int64(n)
			}
		case "first":
			if items, ok := sliceOf(value); ok && len(items) > 0 {
				return items[0]
			}
		case "last":
			if items, ok := sliceOf(value); ok && len(items) > 0 {
				return items[len(items)-1]
			}
		}
		// Generic map lookup for typed maps
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Map {
			mv := rv.MapIndex(reflect.ValueOf(name))
			if mv.IsValid() {
				return mv.Interface()
			}
		}
		return nil
	}

	if idx, ok := ToInt(key); ok {
		items, ok := sliceOf(value)
		if !ok {
			return nil
		}
		if idx < 0 {
			idx += int64(len(items))
		}
		if idx < 0 || idx >= int64(len(items)) {
			return nil
		}
		return items[idx]
	}
	return nil
}

// sliceOf normalizes any slice or array value into []any.
func sliceOf(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// lengthOf returns the element or byte count of a composite value.
func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return len(v), true
	case map[string]any:
		return len(v), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Truthy implements the language's truth rules: only nil and false are
// falsy; empty strings and zero are truthy.
func Truthy(value any) bool {
	if value == nil {
		return false
	}
	if b, ok := value.(bool); ok {
		return b
	}
	return true
}

// Equals compares two values with numeric coercion and support for the
// empty sentinel.
func Equals(a, b any) bool {
	if _, ok := a.(emptyType); ok {
		return isEmpty(b)
	}
	if _, ok := b.(emptyType); ok {
		return isEmpty(a)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := ToNumber(a); ok {
		if nb, ok := ToNumber(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func isEmpty(value any) bool {
	if value == nil {
		return false
	}
	n, ok := lengthOf(value)
	return ok && n == 0
}

// Compare orders two numbers or two strings. Anything else is an error.
func Compare(a, b any) (int, error) {
	if na, ok := ToNumber(a); ok {
		if nb, ok := ToNumber(b); ok {
			switch {
			case na < nb:
				return -1, nil
			case na > nb:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("%s: %T and %T", ErrMsgNotComparable, a, b)
}

// Contains implements the contains operator for strings and collections.
func Contains(container, item any) bool {
	switch v := container.(type) {
	case string:
		return strings.Contains(v, Stringify(item))
	}
	if items, ok := sliceOf(container); ok {
		for _, elem := range items {
			if Equals(elem, item) {
				return true
			}
		}
	}
	return false
}

// ToNumber coerces numeric values (and numeric strings) to float64.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt coerces integral values to int64.
func ToInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
		return 0, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Stringify renders a value as output text. Nil renders as the empty
// string, never as a literal "nil".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case emptyType:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		var sb strings.Builder
		for _, elem := range v {
			sb.WriteString(Stringify(elem))
		}
		return sb.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
