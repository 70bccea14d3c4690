package texreg

// Option configures a Registry or Renderer during creation.
// Use functional options to customize behavior.
//
// Example:
//
//	// Default: silent leak handling
//	reg := texreg.NewRegistry(engine, queue)
//
//	// Debug builds: warn about handles that reach the finalizer
//	reg := texreg.NewRegistry(engine, queue, texreg.WithLeakWarnings(true))
type Option func(*options)

// options holds optional configuration shared by Registry and Renderer.
type options struct {
	leakWarnings bool
	label        string
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		leakWarnings: false,
		label:        "",
	}
}

// WithLeakWarnings controls the debug leak detector. When enabled, a
// handle cleaned up by the finalizer instead of an explicit Release
// logs a warning with the texture id, and Close warns about every
// still-live handle it has to reclaim.
//
// The safety net itself runs regardless; the option only controls
// reporting.
func WithLeakWarnings(enabled bool) Option {
	return func(o *options) {
		o.leakWarnings = enabled
	}
}

// WithLabel attaches a name to the registry for log attribution.
// Useful when a process runs several registries against different
// engines.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
