package liquid

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	flavor       Flavor
	protection   ProtectionSettings
	maxAbandoned int64
	logger       *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		flavor:       FlavorLiquid,
		protection:   DefaultProtectionSettings(),
		maxAbandoned: DefaultMaxAbandonedEvaluations,
		logger:       nil,
	}
}

// WithFlavor sets the default flavor for templates parsed by the engine.
// Default: FlavorLiquid
func WithFlavor(flavor Flavor) Option {
	return func(c *engineConfig) {
		c.flavor = flavor
	}
}

// WithProtectionSettings sets the protection limits new templates start
// with. Individual templates can replace them later.
func WithProtectionSettings(settings ProtectionSettings) Option {
	return func(c *engineConfig) {
		c.protection = settings
	}
}

// WithMaxAbandonedEvaluations caps the number of timed-out render
// goroutines that may still be running before further renders fail
// fast. The cap gates starting renders: while more than limit
// abandoned evaluations are outstanding, new renders are refused.
// With a limit of 0 a single outstanding abandoned evaluation blocks
// new renders until it finishes.
// Default: 64
func WithMaxAbandonedEvaluations(limit int64) Option {
	return func(c *engineConfig) {
		c.maxAbandoned = limit
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
