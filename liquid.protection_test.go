package liquid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProtectionSettings_AreUnbounded(t *testing.T) {
	settings := DefaultProtectionSettings()
	assert.Equal(t, DefaultMaxTemplateSizeBytes, settings.MaxTemplateSizeBytes)
	assert.Equal(t, DefaultMaxRenderDuration, settings.MaxRenderDuration)
}

func TestRender_SizeLimitChecksBeforeEvaluation(t *testing.T) {
	invoked := false
	tmpl := mustParse(t, "{% probe %}") // 11 bytes
	tmpl.WithTag("probe", TagFunc(func(context.Context, *Context, []any) (any, error) {
		invoked = true
		return "ran", nil
	}))
	tmpl.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: 10,
		MaxRenderDuration:    DefaultMaxRenderDuration,
	})

	_, err := tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgSizeExceeded)
	assert.False(t, invoked)
}

func TestRender_SizeWithinLimitPasses(t *testing.T) {
	tmpl := mustParse(t, "{{ x }}")
	tmpl.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: int64(len(tmpl.Source())),
		MaxRenderDuration:    DefaultMaxRenderDuration,
	})

	result, err := tmpl.Render(context.Background(), map[string]any{"x": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRender_TimeoutAbandonsEvaluation(t *testing.T) {
	release := make(chan struct{})
	engine := MustNew()

	tmpl, err := engine.Parse("{% block %}")
	require.NoError(t, err)
	tmpl.WithTag("block", TagFunc(func(context.Context, *Context, []any) (any, error) {
		<-release
		return "late", nil
	}))
	tmpl.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: DefaultMaxTemplateSizeBytes,
		MaxRenderDuration:    30 * time.Millisecond,
	})

	start := time.Now()
	_, err = tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int64(1), engine.AbandonedEvaluations())

	// The abandoned evaluation finishes in the background and the
	// counter drops back down.
	close(release)
	require.Eventually(t, func() bool {
		return engine.AbandonedEvaluations() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRender_TimeoutCancelsCooperativeHandlers(t *testing.T) {
	engine := MustNew()

	tmpl, err := engine.Parse("{% wait %}")
	require.NoError(t, err)
	tmpl.WithTag("wait", TagFunc(func(ctx context.Context, rctx *Context, args []any) (any, error) {
		// A cooperative handler: blocks only until cancellation.
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	tmpl.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: DefaultMaxTemplateSizeBytes,
		MaxRenderDuration:    20 * time.Millisecond,
	})

	_, err = tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgTimeout)

	// The deadline cancels the evaluation context, so the handler
	// unblocks on its own and the abandoned count drains without help.
	require.Eventually(t, func() bool {
		return engine.AbandonedEvaluations() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRender_TimeoutStopsBuiltinLoop(t *testing.T) {
	engine := MustNew()

	tmpl, err := engine.Parse("{% for i in (1..10000) %}{% slow %}{% endfor %}")
	require.NoError(t, err)
	tmpl.WithTag("slow", TagFunc(func(ctx context.Context, rctx *Context, args []any) (any, error) {
		time.Sleep(time.Millisecond)
		return "", nil
	}))
	tmpl.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: DefaultMaxTemplateSizeBytes,
		MaxRenderDuration:    20 * time.Millisecond,
	})

	_, err = tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgTimeout)

	// The loop polls the canceled context between iterations and bails
	// out long before its 10000 iterations complete.
	require.Eventually(t, func() bool {
		return engine.AbandonedEvaluations() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRender_AbandonedCapFailsFast(t *testing.T) {
	release := make(chan struct{})
	engine := MustNew(WithMaxAbandonedEvaluations(0))

	blocked, err := engine.Parse("{% block %}")
	require.NoError(t, err)
	blocked.WithTag("block", TagFunc(func(context.Context, *Context, []any) (any, error) {
		<-release
		return nil, nil
	}))
	blocked.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: DefaultMaxTemplateSizeBytes,
		MaxRenderDuration:    20 * time.Millisecond,
	})

	_, err = blocked.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgTimeout)
	require.Equal(t, int64(1), engine.AbandonedEvaluations())

	// With one abandoned evaluation outstanding and a cap of zero, new
	// renders fail before starting any work.
	simple, err := engine.Parse("hello")
	require.NoError(t, err)
	_, err = simple.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgAbandonedLimit)

	close(release)
	require.Eventually(t, func() bool {
		return engine.AbandonedEvaluations() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Renders succeed again once the backlog drains.
	result, err := simple.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestRender_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tmpl := mustParse(t, "{% block %}")
	tmpl.WithTag("block", TagFunc(func(context.Context, *Context, []any) (any, error) {
		<-release
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tmpl.Render(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgRenderCanceled)
}

func TestRender_PanicInHandlerIsRecovered(t *testing.T) {
	tmpl := mustParse(t, "{% explode %}")
	tmpl.WithTag("explode", TagFunc(func(context.Context, *Context, []any) (any, error) {
		panic("kaboom")
	}))

	_, err := tmpl.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgEvalPanic)
}

func TestRender_CompletedResultWinsOverDeadline(t *testing.T) {
	tmpl := mustParse(t, "{{ x }}")
	tmpl.WithProtectionSettings(ProtectionSettings{
		MaxTemplateSizeBytes: DefaultMaxTemplateSizeBytes,
		MaxRenderDuration:    5 * time.Second,
	})

	result, err := tmpl.Render(context.Background(), map[string]any{"x": "fast"})
	require.NoError(t, err)
	assert.Equal(t, "fast", result)
}
