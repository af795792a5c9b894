package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"OPSKIT_NAME":             "env-svc",
				"OPSKIT_LEVEL":            "debug",
				"OPSKIT_DRAIN_INTERVAL":   "1s",
				"OPSKIT_RING_EXPONENT":    "8",
				"OPSKIT_DISCARD_ON_CLOSE": "true",
				"OPSKIT_DRIVER":           "discard",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Name:           "env-svc",
				Level:          "debug",
				DrainInterval:  time.Second,
				RingExponent:   8,
				DiscardOnClose: true,
				Driver:         "discard",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"OPSKIT_NAME":  "env-svc",
				"OPSKIT_LEVEL": "debug",
			},
			changed:  map[string]bool{"name": true},
			initial:  Config{Name: "flag-svc"},
			expected: Config{Name: "flag-svc", Level: "debug"},
		},
		{
			name: "watch config can be switched off",
			envVars: map[string]string{
				"OPSKIT_WATCH_CONFIG": "false",
			},
			changed:  map[string]bool{},
			initial:  Config{WatchConfig: true},
			expected: Config{WatchConfig: false},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"OPSKIT_SHUTDOWN_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"OPSKIT_DRAIN_BATCH": "not-a-number",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	var fileConf FileConfig
	fileConf.Name = "file-svc"
	fileConf.Log.Level = "info"
	fileConf.Log.DiscardOnClose = &trueVal

	t.Setenv("OPSKIT_NAME", "env-svc")
	t.Setenv("OPSKIT_LEVEL", "debug")
	t.Setenv("OPSKIT_SYSLOG_TAG", "env-tag")

	changed := map[string]bool{
		"name": true,
	}

	cfg := Config{
		Name: "cli-svc",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Name != "cli-svc" {
		t.Errorf("Name = %v, want cli-svc (CLI should win)", cfg.Name)
	}
	if cfg.Level != "debug" {
		t.Errorf("Level = %v, want debug (env should override file)", cfg.Level)
	}
	if cfg.SyslogTag != "env-tag" {
		t.Errorf("SyslogTag = %v, want env-tag (env should set)", cfg.SyslogTag)
	}
	if !cfg.DiscardOnClose {
		t.Errorf("DiscardOnClose = %v, want true (file should set)", cfg.DiscardOnClose)
	}
}
