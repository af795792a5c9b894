package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "OPSKIT_"

// ApplyEnvConfig applies configuration from environment variables (OPSKIT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", getenv("NAME"), &cfg.Name)
	s.setString("environment", getenv("ENVIRONMENT"), &cfg.Environment)
	s.setString("metrics-addr", getenv("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("level", getenv("LEVEL"), &cfg.Level)
	s.setString("full-policy", getenv("FULL_POLICY"), &cfg.FullPolicy)
	s.setString("driver", getenv("DRIVER"), &cfg.Driver)
	s.setString("threshold", getenv("THRESHOLD"), &cfg.Threshold)
	s.setString("syslog-network", getenv("SYSLOG_NETWORK"), &cfg.SyslogNetwork)
	s.setString("syslog-addr", getenv("SYSLOG_ADDR"), &cfg.SyslogAddr)
	s.setString("syslog-tag", getenv("SYSLOG_TAG"), &cfg.SyslogTag)

	if err := s.setDuration("drain-interval", getenv("DRAIN_INTERVAL"), &cfg.DrainInterval); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", getenv("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("heartbeat", getenv("HEARTBEAT_INTERVAL"), &cfg.HeartbeatInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("ring-exponent", getenv("RING_EXPONENT"), &cfg.RingExponent); err != nil {
		return err
	}
	if err := s.setIntFromString("drain-batch", getenv("DRAIN_BATCH"), &cfg.DrainBatch); err != nil {
		return err
	}

	s.setBoolFromString("discard-on-close", getenv("DISCARD_ON_CLOSE"), &cfg.DiscardOnClose)
	s.setBoolFromString("no-color", getenv("NO_COLOR"), &cfg.NoColor)
	s.setBoolFromString("watch-config", getenv("WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("gate-logs", getenv("GATE_LOGS"), &cfg.GateLogs)

	return nil
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}
