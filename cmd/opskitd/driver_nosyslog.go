//go:build windows || plan9

package main

import (
	"fmt"
	"runtime"

	"github.com/bft-labs/opskit/internal/cliconfig"
	"github.com/bft-labs/opskit/pkg/logpipe"
)

func newSyslogDriver(cliconfig.Config) (logpipe.Driver, error) {
	return nil, fmt.Errorf("syslog driver is not supported on %s", runtime.GOOS)
}
