package opskit

import (
	"fmt"
	"time"

	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/ring"
)

// Default configuration values.
const (
	DefaultName            = "opskit"
	DefaultRingExponent    = 10
	DefaultDrainInterval   = 100 * time.Millisecond
	DefaultDrainBatch      = 256
	DefaultShutdownTimeout = 30 * time.Second
)

// Config configures a Service.
type Config struct {
	// Name identifies the service and its log pipeline.
	Name string

	// RingExponent sizes the log ring to 1<<RingExponent records.
	// Zero selects DefaultRingExponent.
	RingExponent uint8

	// Level is the initial log threshold, e.g. "notice" or "debug".
	Level string

	// FullPolicy is "drop" (default) or "block".
	FullPolicy string

	// DiscardOnClose drops buffered records at shutdown instead of flushing them.
	DiscardOnClose bool

	// DrainInterval is the base wait between drains. While the ring stays
	// empty the wait grows up to eight times this value.
	DrainInterval time.Duration

	// DrainBatch bounds the records handed to the driver per drain.
	DrainBatch int

	// ShutdownTimeout bounds how long Stop waits for the drain worker.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.RingExponent == 0 {
		c.RingExponent = DefaultRingExponent
	}
	if c.Level == "" {
		c.Level = logpipe.DefaultLevel.String()
	}
	if c.FullPolicy == "" {
		c.FullPolicy = logpipe.PolicyDrop.String()
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = DefaultDrainInterval
	}
	if c.DrainBatch <= 0 {
		c.DrainBatch = DefaultDrainBatch
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.RingExponent > ring.MaxExponent {
		return fmt.Errorf("%w: ring exponent %d exceeds %d", ErrInvalidConfig, c.RingExponent, ring.MaxExponent)
	}
	if _, err := logpipe.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := logpipe.ParseFullPolicy(c.FullPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("%w: drain interval must be positive", ErrInvalidConfig)
	}
	if c.DrainBatch <= 0 {
		return fmt.Errorf("%w: drain batch must be positive", ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// pipelineOptions converts the validated config into pipeline options.
func (c *Config) pipelineOptions() []logpipe.Option {
	level, _ := logpipe.ParseLevel(c.Level)
	policy, _ := logpipe.ParseFullPolicy(c.FullPolicy)
	return []logpipe.Option{
		logpipe.WithLevel(level),
		logpipe.WithFullPolicy(policy),
		logpipe.WithFlushOnClose(!c.DiscardOnClose),
	}
}
