package liquid

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/itsatony/go-liquid/internal"
)

// ProtectionSettings bounds a render call: a maximum source size in
// bytes, checked before any build work, and a maximum wall-clock
// evaluation duration. An immutable value object; replace it wholesale
// via Template.WithProtectionSettings.
type ProtectionSettings struct {
	MaxTemplateSizeBytes int64
	MaxRenderDuration    time.Duration
}

// DefaultProtectionSettings returns settings with both limits
// effectively unbounded.
func DefaultProtectionSettings() ProtectionSettings {
	return ProtectionSettings{
		MaxTemplateSizeBytes: DefaultMaxTemplateSizeBytes,
		MaxRenderDuration:    DefaultMaxRenderDuration,
	}
}

// checkSize is the pre-build size guard.
func (ps ProtectionSettings) checkSize(size int64) error {
	if size > ps.MaxTemplateSizeBytes {
		return NewSizeExceededError(size, ps.MaxTemplateSizeBytes)
	}
	return nil
}

// Evaluation outcome states for the abandonment handshake.
const (
	evalRunning int32 = iota
	evalAbandoned
	evalDelivered
)

// evalResult carries one bounded evaluation's outcome.
type evalResult struct {
	value any
	err   error
}

// boundedEvaluate races the graph evaluation against the configured
// deadline. Abandonment is cooperative where it can be: the evaluation
// runs under a derived context that is canceled when the caller gives
// up, so built-in nodes and handlers that poll ctx.Done() stop
// promptly. Handlers are not required to poll, so true preemption is
// not attempted: on timeout the caller gets a timeout error
// immediately while a non-cooperative evaluation keeps running in the
// background until it finishes on its own. The engine counts those
// abandoned goroutines and fails new renders fast while the cap is
// exceeded.
func boundedEvaluate(ctx context.Context, graph internal.Node, rctx *Context, settings ProtectionSettings, engine *Engine, logger *zap.Logger) (any, error) {
	if engine.abandoned.Load() > engine.config.maxAbandoned {
		return nil, NewAbandonedLimitError(engine.config.maxAbandoned)
	}

	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var state atomic.Int32
	results := make(chan evalResult, 1)

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				finishEvaluation(&state, results, engine, logger,
					evalResult{err: NewEvalPanicError(recovered)})
			}
		}()

		value, err := graph.Evaluate(evalCtx, rctx)
		if err != nil {
			err = NewEvalError(err)
		}
		finishEvaluation(&state, results, engine, logger, evalResult{value: value, err: err})
	}()

	timer := time.NewTimer(settings.MaxRenderDuration)
	defer timer.Stop()

	select {
	case result := <-results:
		return result.value, result.err

	case <-ctx.Done():
		return abandonEvaluation(&state, results, engine, logger, NewRenderCanceledError(ctx.Err()))

	case <-timer.C:
		return abandonEvaluation(&state, results, engine, logger, NewTimeoutError(settings.MaxRenderDuration))
	}
}

// finishEvaluation publishes an evaluation outcome. If the waiter
// already gave up, the outcome is discarded and the abandoned count
// drops back down.
func finishEvaluation(state *atomic.Int32, results chan<- evalResult, engine *Engine, logger *zap.Logger, result evalResult) {
	if state.CompareAndSwap(evalRunning, evalDelivered) {
		results <- result
		return
	}
	remaining := engine.abandoned.Add(-1)
	logger.Debug(LogMsgAbandonedFinished, zap.Int64(LogFieldAbandoned, remaining))
}

// abandonEvaluation marks the in-flight evaluation as abandoned. If the
// evaluation won the race and already delivered, its result is used
// instead of the deadline error.
func abandonEvaluation(state *atomic.Int32, results <-chan evalResult, engine *Engine, logger *zap.Logger, deadlineErr error) (any, error) {
	if state.CompareAndSwap(evalRunning, evalAbandoned) {
		outstanding := engine.abandoned.Add(1)
		logger.Warn(LogMsgEvaluationAbandoned, zap.Int64(LogFieldAbandoned, outstanding))
		return nil, deadlineErr
	}
	result := <-results
	return result.value, result.err
}
