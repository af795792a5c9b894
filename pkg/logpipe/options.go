package logpipe

import (
	"strings"
	"time"

	"github.com/bft-labs/opskit/pkg/errs"
	"github.com/bft-labs/opskit/pkg/log"
)

// FullPolicy decides what Log does when the ring is full.
type FullPolicy int

const (
	// PolicyDrop rejects the record with ErrFull and counts it as dropped.
	PolicyDrop FullPolicy = iota
	// PolicyBlock yields until a slot frees or the pipeline closes.
	PolicyBlock
)

func (p FullPolicy) String() string {
	switch p {
	case PolicyDrop:
		return "drop"
	case PolicyBlock:
		return "block"
	default:
		return "unknown"
	}
}

// ParseFullPolicy parses "drop" or "block".
func ParseFullPolicy(s string) (FullPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop", "":
		return PolicyDrop, nil
	case "block":
		return PolicyBlock, nil
	}
	return 0, errs.Invalid("unknown full policy " + s)
}

type options struct {
	level        Level
	policy       FullPolicy
	onDrop       func(*Record)
	flushOnClose bool
	logger       log.Logger
	now          func() time.Time
}

func defaultOptions() options {
	return options{
		level:        DefaultLevel,
		policy:       PolicyDrop,
		flushOnClose: true,
		logger:       log.NoopLogger{},
		now:          time.Now,
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithLevel sets the initial threshold. The default is DefaultLevel.
func WithLevel(l Level) Option {
	return func(o *options) {
		o.level = l
	}
}

// WithFullPolicy sets the behavior of Log on a full ring. The default is PolicyDrop.
//
// PolicyBlock must not be used by code running on the draining goroutine, such
// as a driver or observer that logs through the pipeline it is drained by: a
// full ring then never frees a slot and the call spins until Close.
func WithFullPolicy(p FullPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithDropHandler sets a callback invoked on the producer goroutine for each
// record rejected by a full ring. It must not retain the record.
func WithDropHandler(fn func(*Record)) Option {
	return func(o *options) {
		o.onDrop = fn
	}
}

// WithFlushOnClose controls whether Close delivers buffered records to the
// driver (true, the default) or discards them.
func WithFlushOnClose(flush bool) Option {
	return func(o *options) {
		o.flushOnClose = flush
	}
}

// WithLogger sets the logger for the pipeline's own diagnostics.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(l)
	}
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
