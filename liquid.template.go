package liquid

import (
	"go.uber.org/zap"

	"github.com/itsatony/go-liquid/internal"
)

// Template is an immutable parse result bound to one flavor. Its
// registries and protection settings are mutable facets intended for
// single-owner, configuration-time mutation: changes apply to renders
// whose graph build starts afterwards, never retroactively to a build
// already in flight.
type Template struct {
	source     string
	sourceSize int64
	flavor     Flavor
	cst        *internal.CSTNode
	tags       *internal.Registry[internal.TagHandler]
	filters    *internal.Registry[internal.FilterHandler]
	protection ProtectionSettings
	engine     *Engine
	logger     *zap.Logger
}

// newTemplate creates a template with registries seeded with the
// built-in tag and filter sets.
func newTemplate(source string, cst *internal.CSTNode, flavor Flavor, engine *Engine) *Template {
	tags := internal.NewRegistry[internal.TagHandler](internal.HandlerKindTag, engine.logger)
	internal.RegisterBuiltinTags(tags)

	filters := internal.NewRegistry[internal.FilterHandler](internal.HandlerKindFilter, engine.logger)
	internal.RegisterBuiltinFilters(filters)

	return &Template{
		source:     source,
		sourceSize: int64(len(source)),
		flavor:     flavor,
		cst:        cst,
		tags:       tags,
		filters:    filters,
		protection: engine.config.protection,
		engine:     engine,
		logger:     engine.logger,
	}
}

// WithTag registers a custom tag handler under name, replacing any
// earlier handler for that name (built-ins included). Custom tags are
// inline; registering one under a grammar-level block name (if, for,
// case, ...) makes any use of that block fail the graph build. Returns
// the same Template for chaining.
func (t *Template) WithTag(name string, tag Tag) *Template {
	t.tags.Register(name, &tagAdapter{tag: tag})
	return t
}

// WithFilter registers a custom filter handler under name, replacing
// any earlier handler for that name (built-ins included). Returns the
// same Template for chaining.
func (t *Template) WithFilter(name string, filter Filter) *Template {
	t.filters.Register(name, &filterAdapter{filter: filter})
	return t
}

// WithProtectionSettings replaces the active protection limits
// wholesale. Returns the same Template for chaining.
func (t *Template) WithProtectionSettings(settings ProtectionSettings) *Template {
	t.protection = settings
	return t
}

// ProtectionSettings returns the active protection limits.
func (t *Template) ProtectionSettings() ProtectionSettings {
	return t.protection
}

// Source returns the original template source.
func (t *Template) Source() string {
	return t.source
}

// SourceSize returns the source byte length captured at parse time. The
// size guard checks this value on every render.
func (t *Template) SourceSize() int64 {
	return t.sourceSize
}

// Flavor returns the flavor the template was parsed under.
func (t *Template) Flavor() Flavor {
	return t.flavor
}

// Tags returns the names of all registered tag handlers, sorted.
func (t *Template) Tags() []string {
	return t.tags.List()
}

// Filters returns the names of all registered filter handlers, sorted.
func (t *Template) Filters() []string {
	return t.filters.List()
}
