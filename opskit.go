// Package opskit runs a service lifecycle and an asynchronous log pipeline.
//
// Example usage:
//
//	cfg := opskit.DefaultConfig()
//	cfg.Name = "api"
//	cfg.Level = "info"
//	if err := opskit.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is a convenience around the embeddable runtime in pkg/opskit; use that
// package directly to query state or write records while the service runs.
package opskit

import (
	"context"

	service "github.com/bft-labs/opskit/pkg/opskit"
)

// Config holds the configuration of a service.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = service.Config

// Option configures a service created by Run.
type Option = service.Option

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return service.DefaultConfig()
}

// Run starts a service with the given configuration and blocks until ctx is
// cancelled, then stops it, flushing buffered records unless
// cfg.DiscardOnClose is set.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	svc, err := service.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return svc.Stop()
}
