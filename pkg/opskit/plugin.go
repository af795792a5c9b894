package opskit

import (
	"context"

	"github.com/bft-labs/opskit/pkg/lifecycle"
	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
)

// Plugin extends a Service. Plugins are initialized in registration order
// during Start and shut down in reverse order during Stop.
type Plugin interface {
	// Name returns a unique identifier used in logs.
	Name() string

	// Initialize is called while the service is starting. A non-nil error
	// aborts Start and moves the service to the failed state.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called while the service is stopping. Errors are logged
	// and do not prevent other plugins from shutting down.
	Shutdown(ctx context.Context) error
}

// PluginConfig gives plugins access to the service they extend.
type PluginConfig struct {
	ServiceName string
	Pipeline    *logpipe.Pipeline
	Lifecycle   *lifecycle.Machine
	Logger      log.Logger
}

// BasePlugin is an embeddable no-op Plugin.
type BasePlugin struct {
	name string
}

// NewBasePlugin returns a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin name.
func (b BasePlugin) Name() string { return b.name }

// Initialize does nothing.
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(ctx context.Context) error { return nil }
