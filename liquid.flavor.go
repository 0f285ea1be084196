package liquid

import "github.com/itsatony/go-liquid/internal"

// Flavor selects the dialect of the templating language at parse time.
type Flavor string

const (
	// FlavorLiquid is the standard dialect and the default.
	FlavorLiquid Flavor = Flavor(internal.FlavorLiquid)
	// FlavorJekyll relaxes identifier and include syntax the way the
	// jekyll dialect does: hyphens are allowed in identifiers and
	// include tags accept bare partial names.
	FlavorJekyll Flavor = Flavor(internal.FlavorJekyll)
)

// Valid reports whether f is a known flavor.
func (f Flavor) Valid() bool {
	return f == FlavorLiquid || f == FlavorJekyll
}

// String returns the flavor name.
func (f Flavor) String() string {
	return string(f)
}
