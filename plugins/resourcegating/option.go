package resourcegating

import "github.com/bft-labs/opskit/pkg/opskit"

// WithResourceGating returns an opskit Option that enables resource gating.
// When enabled, the plugin raises the pipeline threshold while the buffer
// or the goroutine count is above its limit.
//
// Usage:
//
//	svc, err := opskit.New(cfg,
//	    resourcegating.WithResourceGating(resourcegating.Config{
//	        BufferThreshold: 0.5,
//	        GatedLevel:      logpipe.LevelError,
//	    }),
//	)
func WithResourceGating(cfg Config) opskit.Option {
	plugin := New(cfg)
	return opskit.WithPlugin(plugin)
}

// WithDefaultResourceGating returns an opskit Option that enables resource
// gating with default settings (buffer threshold 0.75, gated level warning).
//
// Usage:
//
//	svc, err := opskit.New(cfg, resourcegating.WithDefaultResourceGating())
func WithDefaultResourceGating() opskit.Option {
	return WithResourceGating(DefaultConfig())
}
