package liquid

import (
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/itsatony/go-liquid/internal"
)

// Engine is the entry point of the templating system. It carries the
// default flavor and protection limits for new templates, the partial
// sources available to include tags, and the shared cap on abandoned
// evaluations.
type Engine struct {
	config    *engineConfig
	logger    *zap.Logger
	partials  map[string]string
	partialMu sync.RWMutex
	abandoned atomic.Int64
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	if !config.flavor.Valid() {
		return nil, NewBadFlavorError(config.flavor)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgEngineCreated, zap.String(LogFieldFlavor, config.flavor.String()))

	return &Engine{
		config:   config,
		logger:   logger,
		partials: make(map[string]string),
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Parse parses template source under the engine's default flavor.
func (e *Engine) Parse(source string) (*Template, error) {
	return e.ParseWithFlavor(source, e.config.flavor)
}

// ParseWithFlavor parses template source under an explicit flavor. The
// returned Template is bound to that flavor for its lifetime.
func (e *Engine) ParseWithFlavor(source string, flavor Flavor) (*Template, error) {
	if !flavor.Valid() {
		return nil, NewBadFlavorError(flavor)
	}

	cst, err := internal.ParseSource(source, e.logger)
	if err != nil {
		return nil, parseFailure(err)
	}

	e.logger.Debug(LogMsgTemplateParsed,
		zap.String(LogFieldFlavor, flavor.String()),
		zap.Int(LogFieldSource, len(source)),
	)
	return newTemplate(source, cst, flavor, e), nil
}

// ParseFile reads and parses a template file under the engine's
// default flavor.
func (e *Engine) ParseFile(path string) (*Template, error) {
	return e.ParseFileWithFlavor(path, e.config.flavor)
}

// ParseFileWithFlavor reads and parses a template file under an
// explicit flavor.
func (e *Engine) ParseFileWithFlavor(path string, flavor Flavor) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewSourceReadError(path, err)
	}
	return e.ParseWithFlavor(string(data), flavor)
}

// RegisterPartial registers named template source for inclusion via the
// include tag. A later registration for the same name replaces the
// earlier one.
func (e *Engine) RegisterPartial(name, source string) {
	e.partialMu.Lock()
	e.partials[name] = source
	e.partialMu.Unlock()

	e.logger.Debug(LogMsgPartialRegistered, zap.String(LogFieldPartial, name))
}

// Partial retrieves a registered partial's source by name.
func (e *Engine) Partial(name string) (string, bool) {
	e.partialMu.RLock()
	defer e.partialMu.RUnlock()

	source, ok := e.partials[name]
	return source, ok
}

// HasPartial checks whether a partial is registered under name.
func (e *Engine) HasPartial(name string) bool {
	_, ok := e.Partial(name)
	return ok
}

// ListPartials returns all registered partial names in sorted order.
func (e *Engine) ListPartials() []string {
	e.partialMu.RLock()
	defer e.partialMu.RUnlock()

	names := make([]string, 0, len(e.partials))
	for name := range e.partials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AbandonedEvaluations reports how many timed-out evaluations are still
// running in the background.
func (e *Engine) AbandonedEvaluations() int64 {
	return e.abandoned.Load()
}

// parseFailure converts an internal syntax error into a typed parse error.
func parseFailure(err error) error {
	if syntaxErr, ok := err.(*internal.SyntaxError); ok {
		return NewParseError(ErrMsgParseFailed, positionOf(syntaxErr.Pos), err)
	}
	return NewParseError(ErrMsgParseFailed, Position{}, err)
}

// defaultEngine backs the package-level parse entry points.
var defaultEngine = sync.OnceValue(func() *Engine {
	return MustNew()
})

// Parse parses template source with a default engine and the default
// flavor.
func Parse(source string) (*Template, error) {
	return defaultEngine().Parse(source)
}

// ParseWithFlavor parses template source with a default engine and an
// explicit flavor.
func ParseWithFlavor(source string, flavor Flavor) (*Template, error) {
	return defaultEngine().ParseWithFlavor(source, flavor)
}

// ParseFile reads and parses a template file with a default engine.
func ParseFile(path string) (*Template, error) {
	return defaultEngine().ParseFile(path)
}
