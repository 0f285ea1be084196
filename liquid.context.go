package liquid

import (
	"sync"

	"github.com/itsatony/go-liquid/internal"
)

// Context carries the variable environment for one render call. It
// supports hierarchical scoping: block constructs (for, include) open
// child scopes that shadow the parent without mutating it.
//
// A Context belongs to a single render invocation and is never shared
// across renders.
type Context struct {
	data   map[string]any
	parent *Context
	mu     sync.RWMutex
	flavor Flavor
	cycles *cycleState
}

// cycleState tracks per-render cycle tag positions, shared by all
// scopes of one render.
type cycleState struct {
	mu      sync.Mutex
	indexes map[string]int
}

// NewContext creates a root context with the given data. If data is
// nil, an empty environment is used.
func NewContext(data map[string]any) *Context {
	if data == nil {
		data = make(map[string]any)
	}
	return &Context{
		data:   data,
		flavor: FlavorLiquid,
		cycles: &cycleState{indexes: make(map[string]int)},
	}
}

// NewContextWithFlavor creates a root context bound to a flavor.
func NewContextWithFlavor(data map[string]any, flavor Flavor) *Context {
	ctx := NewContext(data)
	ctx.flavor = flavor
	return ctx
}

// Get resolves a top-level variable, falling back to parent scopes.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	value, ok := c.data[key]
	c.mu.RUnlock()

	if ok {
		return value, true
	}
	if c.parent != nil {
		return c.parent.Get(key)
	}
	return nil, false
}

// GetDefault resolves a variable with a fallback default.
func (c *Context) GetDefault(key string, defaultVal any) any {
	if value, ok := c.Get(key); ok {
		return value
	}
	return defaultVal
}

// Has checks whether a variable exists in this scope chain.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set binds a variable in the current scope.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = value
}

// Child creates a child scope with additional data. The child inherits
// from this scope and can shadow its values.
func (c *Context) Child(data map[string]any) *Context {
	if data == nil {
		data = make(map[string]any)
	}
	return &Context{
		data:   data,
		parent: c,
		flavor: c.flavor,
		cycles: c.cycles,
	}
}

// ChildAccessor implements internal.ContextAccessor.
func (c *Context) ChildAccessor(data map[string]any) internal.ContextAccessor {
	return c.Child(data)
}

// Cycle returns the next index for a cycle group, advancing the group's
// position. Implements internal.ContextAccessor.
func (c *Context) Cycle(group string, count int) int {
	if count <= 0 {
		return 0
	}
	c.cycles.mu.Lock()
	defer c.cycles.mu.Unlock()

	index := c.cycles.indexes[group] % count
	c.cycles.indexes[group] = index + 1
	return index
}

// Flavor returns the dialect this render runs under.
func (c *Context) Flavor() Flavor {
	return c.flavor
}

// FlavorName implements internal.ContextAccessor.
func (c *Context) FlavorName() string {
	return string(c.flavor)
}

// Parent returns the parent scope, or nil for a root context.
func (c *Context) Parent() *Context {
	return c.parent
}

// Data returns a copy of this scope's direct data (not including
// parent scopes).
func (c *Context) Data() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]any, len(c.data))
	for k, v := range c.data {
		result[k] = v
	}
	return result
}
