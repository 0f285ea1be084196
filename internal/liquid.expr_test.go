package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEnv is a minimal ContextAccessor for evaluating expressions and
// nodes in tests.
type stubEnv struct {
	data   map[string]any
	parent *stubEnv
	cycles map[string]int
	flavor string
}

func newStubEnv(data map[string]any) *stubEnv {
	if data == nil {
		data = make(map[string]any)
	}
	return &stubEnv{data: data, cycles: make(map[string]int), flavor: FlavorLiquid}
}

func (s *stubEnv) Get(key string) (any, bool) {
	if value, ok := s.data[key]; ok {
		return value, true
	}
	if s.parent != nil {
		return s.parent.Get(key)
	}
	return nil, false
}

func (s *stubEnv) Set(key string, value any) {
	s.data[key] = value
}

func (s *stubEnv) ChildAccessor(data map[string]any) ContextAccessor {
	return &stubEnv{data: data, parent: s, cycles: s.cycles, flavor: s.flavor}
}

func (s *stubEnv) Cycle(group string, count int) int {
	if count <= 0 {
		return 0
	}
	index := s.cycles[group] % count
	s.cycles[group] = index + 1
	return index
}

func (s *stubEnv) FlavorName() string {
	return s.flavor
}

func evalExpr(t *testing.T, src string, data map[string]any) any {
	t.Helper()
	expr, err := ParseExpression(src, FlavorLiquid, Position{})
	require.NoError(t, err)
	value, err := expr.Eval(newStubEnv(data))
	require.NoError(t, err)
	return value
}

func TestParseExpression_Literals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{name: "integer", input: "42", expected: int64(42)},
		{name: "negative integer", input: "-3", expected: int64(-3)},
		{name: "float", input: "3.5", expected: 3.5},
		{name: "single quoted string", input: "'hello'", expected: "hello"},
		{name: "double quoted string", input: `"world"`, expected: "world"},
		{name: "true", input: "true", expected: true},
		{name: "false", input: "false", expected: false},
		{name: "nil", input: "nil", expected: nil},
		{name: "null", input: "null", expected: nil},
		{name: "empty sentinel", input: "empty", expected: EmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evalExpr(t, tt.input, nil))
		})
	}
}

func TestParseExpression_Paths(t *testing.T) {
	data := map[string]any{
		"name": "Alice",
		"user": map[string]any{
			"address": map[string]any{"city": "Berlin"},
		},
		"items": []any{"a", "b", "c"},
		"idx":   int64(1),
	}

	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{name: "root variable", input: "name", expected: "Alice"},
		{name: "nested key", input: "user.address.city", expected: "Berlin"},
		{name: "index literal", input: "items[0]", expected: "a"},
		{name: "index variable", input: "items[idx]", expected: "b"},
		{name: "negative index", input: "items[-1]", expected: "c"},
		{name: "size special", input: "items.size", expected: int64(3)},
		{name: "first special", input: "items.first", expected: "a"},
		{name: "last special", input: "items.last", expected: "c"},
		{name: "string size", input: "name.size", expected: int64(5)},
		{name: "unresolved root", input: "missing", expected: nil},
		{name: "unresolved key", input: "user.missing", expected: nil},
		{name: "index out of range", input: "items[9]", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evalExpr(t, tt.input, data))
		})
	}
}

func TestParseExpression_Comparisons(t *testing.T) {
	data := map[string]any{"a": int64(1), "b": int64(2), "s": "hello"}

	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{name: "less than", input: "a < b", expected: true},
		{name: "greater than", input: "a > b", expected: false},
		{name: "equal numeric coercion", input: "a == 1.0", expected: true},
		{name: "not equal", input: "a != b", expected: true},
		{name: "string equality", input: "s == 'hello'", expected: true},
		{name: "contains string", input: "s contains 'ell'", expected: true},
		{name: "and short circuit", input: "false and missing < 1", expected: false},
		{name: "or short circuit", input: "true or missing < 1", expected: true},
		{name: "and both true", input: "a < b and s == 'hello'", expected: true},
		{name: "nil equals nil", input: "missing == nil", expected: true},
		{name: "empty equals empty string", input: "'' == empty", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evalExpr(t, tt.input, data))
		})
	}
}

func TestParseExpression_Range(t *testing.T) {
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, evalExpr(t, "(1..3)", nil))
	assert.Equal(t, []any{}, evalExpr(t, "(3..1)", nil))

	data := map[string]any{"n": int64(2)}
	assert.Equal(t, []any{int64(2), int64(3)}, evalExpr(t, "(n..3)", data))
}

func TestParseExpression_JekyllIdentifiers(t *testing.T) {
	expr, err := ParseExpression("my-var", FlavorJekyll, Position{})
	require.NoError(t, err)

	env := newStubEnv(map[string]any{"my-var": "ok"})
	value, err := expr.Eval(env)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)

	// The liquid flavor rejects hyphens in identifiers.
	_, err = ParseExpression("my-var", FlavorLiquid, Position{})
	require.Error(t, err)
}

func TestParseExpression_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "unterminated string", input: "'open"},
		{name: "trailing token", input: "1 2"},
		{name: "unknown operator", input: "1 + 2"},
		{name: "unterminated index", input: "items[0"},
		{name: "unterminated range", input: "(1..3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpression(tt.input, FlavorLiquid, Position{})
			require.Error(t, err)
		})
	}
}

func TestParseExpression_ErrorPositionAfterNewline(t *testing.T) {
	base := Position{Offset: 12, Line: 1, Column: 10}
	_, err := ParseExpression("a\n  @", FlavorLiquid, base)
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, Position{Offset: 16, Line: 2, Column: 3}, syntaxErr.Pos)
}

func TestParseFilteredExpression(t *testing.T) {
	filtered, err := ParseFilteredExpression("name | append: '!', '?' | upcase", FlavorLiquid, Position{})
	require.NoError(t, err)

	require.Len(t, filtered.Filters, 2)
	assert.Equal(t, "append", filtered.Filters[0].Name)
	assert.Len(t, filtered.Filters[0].Args, 2)
	assert.Equal(t, "upcase", filtered.Filters[1].Name)
	assert.Empty(t, filtered.Filters[1].Args)
}

func TestParseFilteredExpression_MissingName(t *testing.T) {
	_, err := ParseFilteredExpression("name |", FlavorLiquid, Position{})
	require.Error(t, err)
}

func TestParseExpressionList(t *testing.T) {
	exprs, err := ParseExpressionList("1, 'a', name", FlavorLiquid, Position{})
	require.NoError(t, err)
	assert.Len(t, exprs, 3)

	exprs, err = ParseExpressionList("", FlavorLiquid, Position{})
	require.NoError(t, err)
	assert.Nil(t, exprs)

	_, err = ParseExpressionList("1,", FlavorLiquid, Position{})
	require.Error(t, err)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(""))
	assert.True(t, Truthy(int64(0)))
	assert.True(t, Truthy([]any{}))
}

func TestEquals(t *testing.T) {
	assert.True(t, Equals(int64(1), 1.0))
	assert.True(t, Equals("a", "a"))
	assert.True(t, Equals(nil, nil))
	assert.False(t, Equals(nil, "a"))
	assert.True(t, Equals(EmptyValue, ""))
	assert.True(t, Equals(EmptyValue, []any{}))
	assert.False(t, Equals(EmptyValue, "x"))
	assert.True(t, Equals([]any{int64(1)}, []any{int64(1)}))
}

func TestCompare(t *testing.T) {
	cmp, err := Compare(int64(1), 2.0)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	cmp, err = Compare("b", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	_, err = Compare([]any{}, int64(1))
	require.Error(t, err)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("hello", "ell"))
	assert.True(t, Contains([]any{int64(1), int64(2)}, int64(2)))
	assert.False(t, Contains([]any{int64(1)}, int64(3)))
	assert.False(t, Contains(int64(5), int64(5)))
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "nil", input: nil, expected: ""},
		{name: "string", input: "x", expected: "x"},
		{name: "bool", input: true, expected: "true"},
		{name: "int64", input: int64(7), expected: "7"},
		{name: "float trims zeros", input: 2.5, expected: "2.5"},
		{name: "float integral", input: 2.0, expected: "2"},
		{name: "slice concatenates", input: []any{"a", int64(1)}, expected: "a1"},
		{name: "empty sentinel", input: EmptyValue, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.input))
		})
	}
}
