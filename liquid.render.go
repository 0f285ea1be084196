package liquid

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/itsatony/go-liquid/internal"
)

// Render evaluates the template against a native variable environment
// and returns the rendered text. The environment is deep-copied before
// evaluation, so concurrent caller-side mutation never reaches the
// render. A nil map renders with an empty environment.
//
// Every render runs the full pipeline: size guard, registry snapshot,
// graph build, variable bind, bounded evaluation, stringify. Registry
// changes made after the build starts do not affect it.
func (t *Template) Render(ctx context.Context, vars map[string]any) (string, error) {
	return t.render(ctx, BindMap(vars))
}

// RenderPayload evaluates the template against a structured-text
// variable payload (JSON or YAML mapping document).
func (t *Template) RenderPayload(ctx context.Context, payload []byte) (string, error) {
	env, err := BindPayload(payload)
	if err != nil {
		return "", err
	}
	return t.render(ctx, env)
}

// RenderKeyValues evaluates the template against a flat, alternating
// key/value argument list. Keys must be strings.
func (t *Template) RenderKeyValues(ctx context.Context, pairs ...any) (string, error) {
	env, err := BindKeyValues(pairs...)
	if err != nil {
		return "", err
	}
	return t.render(ctx, env)
}

// render is the single pipeline behind all Render variants.
func (t *Template) render(ctx context.Context, env map[string]any) (string, error) {
	start := time.Now()
	t.logger.Debug(LogMsgRenderStart,
		zap.String(LogFieldFlavor, t.flavor.String()),
		zap.Int64(LogFieldSource, t.sourceSize),
	)

	if err := t.protection.checkSize(t.sourceSize); err != nil {
		t.logger.Debug(LogMsgRenderFailed, zap.Error(err))
		return "", err
	}

	graph, err := t.buildGraph()
	if err != nil {
		t.logger.Debug(LogMsgRenderFailed, zap.Error(err))
		return "", err
	}

	rctx := NewContextWithFlavor(env, t.flavor)
	value, err := boundedEvaluate(ctx, graph, rctx, t.protection, t.engine, t.logger)
	if err != nil {
		t.logger.Debug(LogMsgRenderFailed, zap.Error(err))
		return "", err
	}

	output := internal.Stringify(value)
	t.logger.Debug(LogMsgRenderEnd,
		zap.Int(LogFieldOutput, len(output)),
		zap.Duration(LogFieldDuration, time.Since(start)),
	)
	return output, nil
}

// buildGraph snapshots both registries and builds a fresh node graph
// for this render. Unresolved tag and filter names fail here, before
// any node is evaluated.
func (t *Template) buildGraph() (internal.Node, error) {
	bc := internal.NewBuildContext(t.tags.Snapshot(), t.filters.Snapshot(), t.flavor.String(), t.logger)
	bc.Partials = t.engine.Partial

	graph, err := internal.BuildGraph(t.cst, bc)
	if err != nil {
		return nil, buildFailure(err)
	}
	return graph, nil
}

// buildFailure converts internal build errors into their typed public
// counterparts.
func buildFailure(err error) error {
	var unknown *internal.UnknownHandlerError
	if errors.As(err, &unknown) {
		if unknown.Kind == internal.HandlerKindTag {
			return NewUnknownTagError(unknown.Name, positionOf(unknown.Pos))
		}
		return NewUnknownFilterError(unknown.Name, positionOf(unknown.Pos))
	}
	return NewBuildError(err)
}
