package liquid

import (
	"context"
	"errors"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, source string) *Template {
	t.Helper()
	tmpl, err := MustNew().Parse(source)
	require.NoError(t, err)
	return tmpl
}

func TestTemplate_Render_HelloWorld(t *testing.T) {
	tmpl := mustParse(t, "Hello {{ name }}!")

	result, err := tmpl.Render(context.Background(), map[string]any{"name": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", result)
}

func TestTemplate_Render_EmptySource(t *testing.T) {
	tmpl := mustParse(t, "")

	result, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", result)
}

func TestTemplate_Render_UnresolvedVariableIsEmpty(t *testing.T) {
	tmpl := mustParse(t, "[{{ missing }}]")

	result, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", result)
}

func TestTemplate_Render_IsRepeatable(t *testing.T) {
	tmpl := mustParse(t, "{% assign x = n %}{{ x }}")

	for i := 0; i < 3; i++ {
		result, err := tmpl.Render(context.Background(), map[string]any{"n": int64(7)})
		require.NoError(t, err)
		assert.Equal(t, "7", result)
	}
}

func TestTemplate_Render_DoesNotMutateCallerMap(t *testing.T) {
	tmpl := mustParse(t, "{% assign greeting = 'hi' %}{{ greeting }}")
	vars := map[string]any{"existing": "value"}

	_, err := tmpl.Render(context.Background(), vars)
	require.NoError(t, err)

	_, leaked := vars["greeting"]
	assert.False(t, leaked)
}

func TestTemplate_RenderPayload(t *testing.T) {
	tmpl := mustParse(t, "Hello {{ name }}, you have {{ count }} items")

	result, err := tmpl.RenderPayload(context.Background(), []byte(`{"name": "Bob", "count": 3}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob, you have 3 items", result)
}

func TestTemplate_RenderPayload_Malformed(t *testing.T) {
	tmpl := mustParse(t, "{{ x }}")

	_, err := tmpl.RenderPayload(context.Background(), []byte(`{"broken`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgMalformedInput)
}

func TestTemplate_RenderKeyValues(t *testing.T) {
	tmpl := mustParse(t, "{{ a }}-{{ b }}")

	result, err := tmpl.RenderKeyValues(context.Background(), "a", "1", "b", "2")
	require.NoError(t, err)
	assert.Equal(t, "1-2", result)
}

func TestTemplate_Render_BlocksAndFilters(t *testing.T) {
	source := "{% for user in users %}{% if user.admin %}*{% endif %}{{ user.name | capitalize }};{% endfor %}"
	tmpl := mustParse(t, source)

	vars := map[string]any{
		"users": []any{
			map[string]any{"name": "alice", "admin": true},
			map[string]any{"name": "bob", "admin": false},
		},
	}
	result, err := tmpl.Render(context.Background(), vars)
	require.NoError(t, err)
	assert.Equal(t, "*Alice;Bob;", result)
}

func TestTemplate_Render_CustomTag(t *testing.T) {
	tmpl := mustParse(t, "{% shout greeting, '!' %}")
	tmpl.WithTag("shout", TagFunc(func(ctx context.Context, rctx *Context, args []any) (any, error) {
		assert.Len(t, args, 2)
		return "HEY" + args[1].(string), nil
	}))

	result, err := tmpl.Render(context.Background(), map[string]any{"greeting": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "HEY!", result)
}

func TestTemplate_Render_CustomTagSeesContext(t *testing.T) {
	tmpl := mustParse(t, "{% remember %}{{ stored }}")
	tmpl.WithTag("remember", TagFunc(func(ctx context.Context, rctx *Context, args []any) (any, error) {
		rctx.Set("stored", "kept")
		return nil, nil
	}))

	result, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "kept", result)
}

func TestTemplate_Render_CustomFilter(t *testing.T) {
	tmpl := mustParse(t, "{{ word | reverse }}")
	tmpl.WithFilter("reverse", FilterFunc(func(value any, args []any) (any, error) {
		s := []rune(value.(string))
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
		return string(s), nil
	}))

	result, err := tmpl.Render(context.Background(), map[string]any{"word": "live"})
	require.NoError(t, err)
	assert.Equal(t, "evil", result)
}

func TestTemplate_Render_LastRegistrationWins(t *testing.T) {
	tmpl := mustParse(t, "{% stamp %}")
	tmpl.WithTag("stamp", TagFunc(func(context.Context, *Context, []any) (any, error) {
		return "A", nil
	}))
	tmpl.WithTag("stamp", TagFunc(func(context.Context, *Context, []any) (any, error) {
		return "B", nil
	}))

	result, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "B", result)
}

func TestTemplate_Render_BuiltinsCanBeOverridden(t *testing.T) {
	tmpl := mustParse(t, "{{ x | upcase }}")
	tmpl.WithFilter("upcase", FilterFunc(func(value any, args []any) (any, error) {
		return "overridden", nil
	}))

	result, err := tmpl.Render(context.Background(), map[string]any{"x": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "overridden", result)
}

func TestTemplate_Render_RegistrationAppliesToNextRender(t *testing.T) {
	tmpl := mustParse(t, "{% marker %}")
	tmpl.WithTag("marker", TagFunc(func(context.Context, *Context, []any) (any, error) {
		return "v1", nil
	}))

	result, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", result)

	tmpl.WithTag("marker", TagFunc(func(context.Context, *Context, []any) (any, error) {
		return "v2", nil
	}))
	result, err = tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", result)
}

func TestTemplate_Render_UnknownTagFailsBuild(t *testing.T) {
	tmpl := mustParse(t, "{% mystery %}")

	_, err := tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgUnknownTag)

	var customErr *cuserr.CustomError
	require.True(t, errors.As(err, &customErr))
	name, ok := customErr.GetMetadata(MetaKeyName)
	assert.True(t, ok)
	assert.Equal(t, "mystery", name)
}

func TestTemplate_Render_UnknownFilterFailsBuild(t *testing.T) {
	tmpl := mustParse(t, "{{ x | mystery }}")

	_, err := tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgUnknownFilter)
}

func TestTemplate_Render_TagErrorIsWrapped(t *testing.T) {
	tagErr := errors.New("boom")
	tmpl := mustParse(t, "{% fail %}")
	tmpl.WithTag("fail", TagFunc(func(context.Context, *Context, []any) (any, error) {
		return nil, tagErr
	}))

	_, err := tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgEvalFailed)
	assert.True(t, errors.Is(err, tagErr))
}

func TestTemplate_Render_NilTagResultIsEmpty(t *testing.T) {
	tmpl := mustParse(t, "a{% silent %}b")
	tmpl.WithTag("silent", TagFunc(func(context.Context, *Context, []any) (any, error) {
		return nil, nil
	}))

	result, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", result)
}

func TestTemplate_Render_IncludePartial(t *testing.T) {
	engine := MustNew()
	engine.RegisterPartial("greeting", "hello {{ name }}")

	tmpl, err := engine.Parse("[{% include 'greeting' %}]")
	require.NoError(t, err)

	result, err := tmpl.Render(context.Background(), map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "[hello Ada]", result)
}

func TestTemplate_Render_JekyllFlavor(t *testing.T) {
	engine := MustNew(WithFlavor(FlavorJekyll))
	engine.RegisterPartial("side-bar", "nav")

	tmpl, err := engine.Parse("{{ page-title }} {% include side-bar %}")
	require.NoError(t, err)

	result, err := tmpl.Render(context.Background(), map[string]any{"page-title": "Home"})
	require.NoError(t, err)
	assert.Equal(t, "Home nav", result)
}
