package health

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bft-labs/opskit/pkg/errs"
	"github.com/bft-labs/opskit/pkg/lifecycle"
	"github.com/bft-labs/opskit/pkg/listener"
)

// Status is the outcome of a health check.
type Status int

const (
	// StatusUnknown means the check could not determine health.
	StatusUnknown Status = iota
	// StatusOK means healthy.
	StatusOK
	// StatusWarning means approaching an unhealthy level.
	StatusWarning
	// StatusCritical means unhealthy; action must be taken immediately.
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "invalid"
	}
}

// rank orders statuses from healthiest to worst.
// Worse reports whether s is more severe than o. Unknown ranks between ok
// and warning.
func (s Status) Worse(o Status) bool { return s.rank() > o.rank() }

func (s Status) rank() int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarning:
		return 2
	case StatusCritical:
		return 3
	default:
		return 1
	}
}

// Func implements a check.
type Func func(ctx context.Context) (Status, error)

// Check is a named, toggleable health check. It is safe for concurrent use.
type Check struct {
	name        string
	description string
	fn          Func
	enabled     atomic.Bool
}

// Option configures a Check.
type Option func(*Check)

// Disabled creates the check in the disabled state.
func Disabled() Option {
	return func(c *Check) {
		c.enabled.Store(false)
	}
}

// New creates an enabled check.
func New(name, description string, fn Func, opts ...Option) (*Check, error) {
	if name == "" {
		return nil, errs.Invalid("empty health check name")
	}
	if fn == nil {
		return nil, errs.Invalid("nil health check func")
	}

	c := &Check{name: name, description: description, fn: fn}
	c.enabled.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the check name.
func (c *Check) Name() string { return c.name }

// Description returns the check description.
func (c *Check) Description() string { return c.description }

// Enable turns the check on.
func (c *Check) Enable() { c.enabled.Store(true) }

// Disable turns the check off.
func (c *Check) Disable() { c.enabled.Store(false) }

// Enabled reports whether Poll will run the check.
func (c *Check) Enabled() bool { return c.enabled.Load() }

// Poll runs the check. A disabled check fails with errs.ErrAgain without
// running.
func (c *Check) Poll(ctx context.Context) (Status, error) {
	if !c.Enabled() {
		return StatusUnknown, fmt.Errorf("health check %q: %w", c.name, errs.Again("disabled"))
	}

	st, err := c.fn(ctx)
	if err != nil {
		return StatusUnknown, fmt.Errorf("health check %q: %w", c.name, err)
	}
	if st < StatusUnknown || st > StatusCritical {
		return StatusUnknown, fmt.Errorf("health check %q: %w", c.name, errs.Invalid("invalid status"))
	}
	return st, nil
}

// Result is the outcome of one check in PollAll.
type Result struct {
	Name   string
	Status Status
	Err    error
}

// PollAll polls every enabled check and returns the worst status among them.
// Disabled checks are reported with their error but do not affect the
// aggregate. With no enabled check the aggregate is StatusUnknown.
func PollAll(ctx context.Context, checks ...*Check) (Status, []Result) {
	results := make([]Result, 0, len(checks))
	worst := StatusUnknown
	polled := 0

	for _, c := range checks {
		st, err := c.Poll(ctx)
		results = append(results, Result{Name: c.name, Status: st, Err: err})
		if errors.Is(err, errs.ErrAgain) {
			continue
		}
		if polled == 0 || st.rank() > worst.rank() {
			worst = st
		}
		polled++
	}
	return worst, results
}

// FollowLifecycle returns an observer that enables c once the component is
// running and disables it when the component stops or fails.
func FollowLifecycle(c *Check) listener.Observer[lifecycle.Event] {
	return listener.ObserverFunc[lifecycle.Event](func(ev lifecycle.Event) error {
		switch ev.State {
		case lifecycle.StateRunning:
			c.Enable()
		case lifecycle.StateStopping, lifecycle.StateTerminated, lifecycle.StateFailed:
			c.Disable()
		}
		return nil
	})
}
