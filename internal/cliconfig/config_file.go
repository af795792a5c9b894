package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// The [log] table is also read by the config watcher, so editing its level
// takes effect without a restart.
type FileConfig struct {
	Name              string `toml:"name"`
	Environment       string `toml:"environment"`
	MetricsAddr       string `toml:"metrics_addr"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	WatchConfig       *bool  `toml:"watch_config"`
	GateLogs          *bool  `toml:"gate_logs"`

	Log struct {
		Level           string `toml:"level"`
		FullPolicy      string `toml:"full_policy"`
		RingExponent    int    `toml:"ring_exponent"`
		DiscardOnClose  *bool  `toml:"discard_on_close"`
		DrainInterval   string `toml:"drain_interval"`
		DrainBatch      int    `toml:"drain_batch"`
		ShutdownTimeout string `toml:"shutdown_timeout"`
	} `toml:"log"`

	Driver struct {
		Name          string `toml:"name"`
		Threshold     string `toml:"threshold"`
		NoColor       *bool  `toml:"no_color"`
		SyslogNetwork string `toml:"syslog_network"`
		SyslogAddr    string `toml:"syslog_addr"`
		SyslogTag     string `toml:"syslog_tag"`
	} `toml:"driver"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.opskit/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".opskit", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("environment", fc.Environment, &cfg.Environment)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("gate-logs", fc.GateLogs, &cfg.GateLogs)
	if err := s.setDuration("heartbeat", fc.HeartbeatInterval, &cfg.HeartbeatInterval); err != nil {
		return err
	}

	s.setString("level", fc.Log.Level, &cfg.Level)
	s.setString("full-policy", fc.Log.FullPolicy, &cfg.FullPolicy)
	s.setInt("ring-exponent", fc.Log.RingExponent, &cfg.RingExponent)
	s.setBool("discard-on-close", fc.Log.DiscardOnClose, &cfg.DiscardOnClose)
	s.setInt("drain-batch", fc.Log.DrainBatch, &cfg.DrainBatch)
	if err := s.setDuration("drain-interval", fc.Log.DrainInterval, &cfg.DrainInterval); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.Log.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setString("driver", fc.Driver.Name, &cfg.Driver)
	s.setString("threshold", fc.Driver.Threshold, &cfg.Threshold)
	s.setBool("no-color", fc.Driver.NoColor, &cfg.NoColor)
	s.setString("syslog-network", fc.Driver.SyslogNetwork, &cfg.SyslogNetwork)
	s.setString("syslog-addr", fc.Driver.SyslogAddr, &cfg.SyslogAddr)
	s.setString("syslog-tag", fc.Driver.SyslogTag, &cfg.SyslogTag)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
