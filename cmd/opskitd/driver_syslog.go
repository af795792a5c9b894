//go:build !windows && !plan9

package main

import (
	"github.com/bft-labs/opskit/internal/cliconfig"
	"github.com/bft-labs/opskit/pkg/logpipe"
)

func newSyslogDriver(cfg cliconfig.Config) (logpipe.Driver, error) {
	return logpipe.NewSyslog(logpipe.SyslogConfig{
		Network: cfg.SyslogNetwork,
		Addr:    cfg.SyslogAddr,
		Tag:     cfg.SyslogTag,
	}), nil
}
