package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/opskit"
	"github.com/bft-labs/opskit/pkg/ring"
)

// Supported driver names.
const (
	DriverConsole = "console"
	DriverSyslog  = "syslog"
	DriverDiscard = "discard"
)

// DefaultMetricsAddr is where the daemon serves /metrics unless overridden.
const DefaultMetricsAddr = "127.0.0.1:9464"

// Config holds CLI configuration for opskitd.
type Config struct {
	Name        string
	Environment string

	Level          string
	FullPolicy     string
	RingExponent   int
	DiscardOnClose bool

	DrainInterval   time.Duration
	DrainBatch      int
	ShutdownTimeout time.Duration

	Driver        string
	Threshold     string
	NoColor       bool
	SyslogNetwork string
	SyslogAddr    string
	SyslogTag     string

	MetricsAddr       string
	HeartbeatInterval time.Duration
	WatchConfig       bool
	GateLogs          bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:              opskit.DefaultName,
		Level:             logpipe.DefaultLevel.String(),
		FullPolicy:        logpipe.PolicyDrop.String(),
		RingExponent:      opskit.DefaultRingExponent,
		DrainInterval:     opskit.DefaultDrainInterval,
		DrainBatch:        opskit.DefaultDrainBatch,
		ShutdownTimeout:   opskit.DefaultShutdownTimeout,
		Driver:            DriverConsole,
		Threshold:         logpipe.LevelWarning.String(),
		MetricsAddr:       DefaultMetricsAddr,
		HeartbeatInterval: 10 * time.Second,
		WatchConfig:       true,
		GateLogs:          true,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.RingExponent < 0 || c.RingExponent > ring.MaxExponent {
		return fmt.Errorf("ring exponent must be between 0 and %d", ring.MaxExponent)
	}
	if _, err := logpipe.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	if _, err := logpipe.ParseFullPolicy(c.FullPolicy); err != nil {
		return fmt.Errorf("full policy: %w", err)
	}

	switch c.Driver {
	case "":
		c.Driver = DriverConsole
	case DriverConsole, DriverSyslog, DriverDiscard:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.Driver == DriverConsole {
		if _, err := logpipe.ParseLevel(c.Threshold); err != nil {
			return fmt.Errorf("threshold: %w", err)
		}
	}
	if c.Driver == DriverSyslog && c.SyslogTag == "" {
		c.SyslogTag = c.Name
	}

	if c.DrainInterval <= 0 {
		return fmt.Errorf("drain interval must be positive")
	}
	if c.DrainBatch <= 0 {
		return fmt.Errorf("drain batch must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("heartbeat interval must not be negative")
	}

	return nil
}

// ServiceConfig converts a validated Config into an opskit.Config.
func (c *Config) ServiceConfig() opskit.Config {
	return opskit.Config{
		Name:            c.Name,
		RingExponent:    uint8(c.RingExponent),
		Level:           c.Level,
		FullPolicy:      c.FullPolicy,
		DiscardOnClose:  c.DiscardOnClose,
		DrainInterval:   c.DrainInterval,
		DrainBatch:      c.DrainBatch,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
