package configwatcher

import "github.com/bft-labs/opskit/pkg/opskit"

// WithConfigWatcher returns an opskit Option that enables config file watching.
// When enabled, the plugin monitors cfg.Path and applies its [log] level to
// the service pipeline.
//
// Usage:
//
//	svc, err := opskit.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/api/opskit.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) opskit.Option {
	plugin := New(cfg)
	return opskit.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns an opskit Option that watches path with
// default settings (retry every 5s, debounce 100ms).
//
// Usage:
//
//	svc, err := opskit.New(cfg, configwatcher.WithDefaultConfigWatcher("/etc/api/opskit.toml"))
func WithDefaultConfigWatcher(path string) opskit.Option {
	cfg := DefaultConfig()
	cfg.Path = path
	return WithConfigWatcher(cfg)
}
