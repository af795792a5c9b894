package main

import (
	"fmt"

	"github.com/bft-labs/opskit/internal/cliconfig"
	"github.com/bft-labs/opskit/pkg/label"
	"github.com/bft-labs/opskit/pkg/logpipe"
)

// buildDriver returns the driver selected by cfg.Driver. cfg must be validated.
func buildDriver(cfg cliconfig.Config) (logpipe.Driver, error) {
	switch cfg.Driver {
	case cliconfig.DriverDiscard:
		return logpipe.NewDiscard(), nil
	case cliconfig.DriverSyslog:
		return newSyslogDriver(cfg)
	case cliconfig.DriverConsole, "":
		threshold, err := logpipe.ParseLevel(cfg.Threshold)
		if err != nil {
			return nil, fmt.Errorf("threshold: %w", err)
		}
		labels, err := label.Process(cfg.Name, cfg.Environment)
		if err != nil {
			return nil, fmt.Errorf("process labels: %w", err)
		}
		return logpipe.NewConsole(logpipe.ConsoleConfig{
			Threshold: threshold,
			NoColor:   cfg.NoColor,
			Labels:    labels,
		}), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
