package opskit

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/opskit/pkg/health"
	"github.com/bft-labs/opskit/pkg/lifecycle"
	"github.com/bft-labs/opskit/pkg/listener"
	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
)

// Option configures optional behavior of a Service.
type Option func(*options)

type namedObserver struct {
	name     string
	observer listener.Observer[lifecycle.Event]
}

type options struct {
	logger     log.Logger
	driver     logpipe.Driver
	plugins    []Plugin
	observers  []namedObserver
	registerer prometheus.Registerer
	checks     []*health.Check
	clock      lifecycle.Clock
}

func defaultOptions() options {
	return options{
		logger: log.NoopLogger{},
	}
}

// WithLogger sets the logger for the service's own diagnostics.
// If not provided, a no-op logger is used.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithDriver sets the driver of the service's log pipeline.
// If not provided, the logpipe default factory builds one.
func WithDriver(d logpipe.Driver) Option {
	return func(o *options) {
		o.driver = d
	}
}

// WithPlugin registers a plugin to be initialized when the service starts.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

// WithObserver registers a lifecycle observer at construction time, so it
// sees every transition from starting onwards.
func WithObserver(name string, obs listener.Observer[lifecycle.Event]) Option {
	return func(o *options) {
		o.observers = append(o.observers, namedObserver{name: name, observer: obs})
	}
}

// WithRegisterer registers the pipeline and lifecycle collectors with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithHealthCheck adds a check polled by Service.Health. The check is
// disabled until the service is running and again once it stops.
func WithHealthCheck(c *health.Check) Option {
	return func(o *options) {
		o.checks = append(o.checks, c)
	}
}

// WithClock sets the clock used for lifecycle epochs.
func WithClock(c lifecycle.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}
