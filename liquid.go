// Package liquid is a Liquid template engine with an extensible tag and
// filter catalogue and built-in resource protection.
//
// Templates use the familiar double-brace syntax:
//
//	Hello {{ name }}!
//
// # Basic Usage
//
// Parse a template once and render it with different variable bindings:
//
//	tmpl, err := liquid.Parse("Hello {{ name }}!")
//	if err != nil {
//	    // malformed source
//	}
//	out, err := tmpl.Render(ctx, map[string]any{"name": "World"})
//	// out: "Hello World!"
//
// # Flavors
//
// Two dialects of the language are supported, selected at parse time:
// FlavorLiquid (the default) and FlavorJekyll. The jekyll flavor allows
// hyphens in identifiers and bare partial names in include tags:
//
//	tmpl, err := liquid.ParseWithFlavor(source, liquid.FlavorJekyll)
//
// # Variable Input
//
// Render accepts a native map. Two further shapes are supported:
// a structured payload (JSON or YAML document) and a flat key/value
// argument list:
//
//	out, err := tmpl.RenderPayload(ctx, []byte(`{"name": "World"}`))
//	out, err := tmpl.RenderKeyValues(ctx, "name", "World", "count", 3)
//
// # Custom Tags and Filters
//
// Extend a template by registering handlers under a name. A later
// registration for the same name replaces the earlier one:
//
//	tmpl.WithFilter("shout", liquid.FilterFunc(func(v any, args []any) (any, error) {
//	    return strings.ToUpper(fmt.Sprint(v)) + "!", nil
//	}))
//
// # Protection
//
// Each template carries protection settings bounding the source size in
// bytes and the render wall-clock time:
//
//	tmpl.WithProtectionSettings(liquid.ProtectionSettings{
//	    MaxTemplateSizeBytes: 1 << 20,
//	    MaxRenderDuration:    5 * time.Second,
//	})
//
// The render deadline is enforced by abandoning the evaluation, not by
// preempting it: a handler that never returns keeps its goroutine until
// it finishes on its own. The engine caps the number of concurrently
// outstanding abandoned evaluations and fails fast beyond the cap.
//
// # Diagnostics
//
// DumpAST returns an indented textual view of the parsed tree:
//
//	fmt.Println(tmpl.DumpAST())
package liquid
