package logpipe

import (
	"sync/atomic"

	"github.com/bft-labs/opskit/pkg/errs"
)

// Factory builds a fresh, unopened driver.
type Factory func() (Driver, error)

var defaultFactory atomic.Pointer[Factory]

func init() {
	ResetDefaultFactory()
}

func consoleFactory() (Driver, error) {
	return NewConsole(DefaultConsoleConfig()), nil
}

// SetDefaultFactory replaces the factory used by New when no driver is given.
// Pipelines that already exist keep their driver.
func SetDefaultFactory(f Factory) error {
	if f == nil {
		return errs.Invalid("nil driver factory")
	}
	defaultFactory.Store(&f)
	return nil
}

// ResetDefaultFactory restores the console factory with a warning threshold.
func ResetDefaultFactory() {
	f := Factory(consoleFactory)
	defaultFactory.Store(&f)
}

// DefaultDriver builds a driver with the current default factory.
func DefaultDriver() (Driver, error) {
	f := *defaultFactory.Load()
	d, err := f()
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.Invalid("default driver factory returned nil")
	}
	return d, nil
}
