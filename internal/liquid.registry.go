package internal

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry is a name-keyed handler registry with last-wins semantics:
// registering a name that already exists replaces the earlier handler.
// It is safe for concurrent reads; mutation is expected to happen at
// configuration time, before renders that should observe it.
type Registry[H any] struct {
	kind     string // "tag" or "filter", for logging only
	handlers map[string]H
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry creates an empty registry for the given handler kind.
func NewRegistry[H any](kind string, logger *zap.Logger) *Registry[H] {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgRegistryCreated, zap.String(LogFieldKind, kind))
	return &Registry[H]{
		kind:     kind,
		handlers: make(map[string]H),
		logger:   logger,
	}
}

// Register inserts or replaces the handler for name. The last
// registration for a name wins.
func (r *Registry[H]) Register(name string, handler H) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		r.logger.Debug(LogMsgHandlerReplaced,
			zap.String(LogFieldKind, r.kind),
			zap.String(LogFieldName, name),
		)
	} else {
		r.logger.Debug(LogMsgHandlerRegistered,
			zap.String(LogFieldKind, r.kind),
			zap.String(LogFieldName, name),
		)
	}
	r.handlers[name] = handler
}

// Resolve retrieves the handler for name.
func (r *Registry[H]) Resolve(name string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[name]
	return handler, ok
}

// Has checks whether a handler is registered for name.
func (r *Registry[H]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.handlers[name]
	return ok
}

// List returns all registered names in sorted order.
func (r *Registry[H]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered handlers.
func (r *Registry[H]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}

// Snapshot returns a copy of the current name-to-handler mapping. Each
// graph build works from a snapshot so an in-flight render never
// observes a torn registry state.
func (r *Registry[H]) Snapshot() map[string]H {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]H, len(r.handlers))
	for name, handler := range r.handlers {
		snapshot[name] = handler
	}
	return snapshot
}
