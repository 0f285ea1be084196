package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testBuildContext returns a build context seeded with the builtin tag
// and filter sets.
func testBuildContext(t *testing.T, flavor string) *BuildContext {
	t.Helper()
	tags := NewRegistry[TagHandler](HandlerKindTag, nil)
	RegisterBuiltinTags(tags)
	filters := NewRegistry[FilterHandler](HandlerKindFilter, nil)
	RegisterBuiltinFilters(filters)
	return NewBuildContext(tags.Snapshot(), filters.Snapshot(), flavor, zap.NewNop())
}

func buildTestGraph(t *testing.T, source string) Node {
	t.Helper()
	root, err := ParseSource(source, zap.NewNop())
	require.NoError(t, err)
	graph, err := BuildGraph(root, testBuildContext(t, FlavorLiquid))
	require.NoError(t, err)
	return graph
}

func renderTestGraph(t *testing.T, source string, data map[string]any) string {
	t.Helper()
	graph := buildTestGraph(t, source)
	value, err := graph.Evaluate(context.Background(), newStubEnv(data))
	require.NoError(t, err)
	return Stringify(value)
}

func TestBuildGraph_TextAndOutput(t *testing.T) {
	result := renderTestGraph(t, "Hello {{ name }}!", map[string]any{"name": "World"})
	assert.Equal(t, "Hello World!", result)
}

func TestBuildGraph_OutputWithFilters(t *testing.T) {
	result := renderTestGraph(t, "{{ name | upcase | append: '!' }}", map[string]any{"name": "go"})
	assert.Equal(t, "GO!", result)
}

func TestBuildGraph_UnknownTagFailsBeforeEvaluation(t *testing.T) {
	root, err := ParseSource("{% nosuchtag %}", zap.NewNop())
	require.NoError(t, err)

	_, err = BuildGraph(root, testBuildContext(t, FlavorLiquid))
	require.Error(t, err)

	var unknown *UnknownHandlerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, HandlerKindTag, unknown.Kind)
	assert.Equal(t, "nosuchtag", unknown.Name)
}

func TestBuildGraph_UnknownFilterFailsBeforeEvaluation(t *testing.T) {
	root, err := ParseSource("{{ name | nosuchfilter }}", zap.NewNop())
	require.NoError(t, err)

	_, err = BuildGraph(root, testBuildContext(t, FlavorLiquid))
	require.Error(t, err)

	var unknown *UnknownHandlerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, HandlerKindFilter, unknown.Kind)
	assert.Equal(t, "nosuchfilter", unknown.Name)
}

func TestBuildGraph_UnknownNameInsideBlock(t *testing.T) {
	root, err := ParseSource("{% if true %}{{ x | bogus }}{% endif %}", zap.NewNop())
	require.NoError(t, err)

	_, err = BuildGraph(root, testBuildContext(t, FlavorLiquid))
	require.Error(t, err)
}

func TestBuildContext_BuildPartialDepthLimit(t *testing.T) {
	bc := testBuildContext(t, FlavorLiquid)
	bc.MaxDepth = 1
	bc.Partials = func(name string) (string, bool) {
		// Every partial includes itself, so the depth cap must stop it.
		return "{% include 'self' %}", true
	}

	_, err := bc.BuildPartial("{% include 'self' %}", Position{})
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, ErrMsgIncludeDepth, syntaxErr.Message)
}

func TestSequenceNode_StopsOnCanceledContext(t *testing.T) {
	graph := buildTestGraph(t, "a{{ name }}b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := graph.Evaluate(ctx, newStubEnv(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
