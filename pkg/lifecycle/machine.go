package lifecycle

import (
	"sync/atomic"
	"time"

	"github.com/bft-labs/opskit/pkg/errs"
	"github.com/bft-labs/opskit/pkg/listener"
	"github.com/bft-labs/opskit/pkg/log"
)

// snapshot is immutable once published. State and epochs change together
// through a single pointer swap, so a reader never sees a state without its epoch.
type snapshot struct {
	state  State
	epochs [stateCount]int64 // UnixNano, 0 until reached
}

// Machine is a lock-free lifecycle state machine with per-state epochs.
type Machine struct {
	current   atomic.Pointer[snapshot]
	observers *listener.Registry[Event]
	clock     Clock
	logger    log.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used by New and TransitionNow.
func WithClock(c Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger used to record transitions.
func WithLogger(l log.Logger) Option {
	return func(m *Machine) {
		m.logger = log.OrNoop(l)
	}
}

// New creates a machine in StateNew with its epoch set to the current time.
// It fails with errs.ErrFault if the clock reading is not positive.
func New(opts ...Option) (*Machine, error) {
	m := &Machine{
		observers: listener.New[Event](),
		clock:     realClock{},
		logger:    log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}

	now := m.clock.Now().UnixNano()
	if now <= 0 {
		return nil, errs.Fault("clock read failed")
	}

	s := &snapshot{state: StateNew}
	s.epochs[StateNew] = now
	m.current.Store(s)
	return m, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current.Load().state
}

// Epoch returns when s was first reached, or the zero time if it has not been.
func (m *Machine) Epoch(s State) time.Time {
	t, _ := m.EpochOK(s)
	return t
}

// EpochOK is Epoch with a validity flag; ok is false only for an undefined state.
func (m *Machine) EpochOK(s State) (t time.Time, ok bool) {
	if !s.Valid() {
		return time.Time{}, false
	}
	snap := m.current.Load()
	if s > snap.state {
		return time.Time{}, true
	}
	ns := snap.epochs[s]
	if ns == 0 {
		return time.Time{}, true
	}
	return time.Unix(0, ns), true
}

// Transition moves the machine to state to, recording at as its epoch.
//
// Re-entering the current state succeeds without mutation or notification.
// An invalid transition fails with errs.ErrInvalid and changes nothing.
// After a commit, observers are notified synchronously; their failure is
// returned but the transition is not rolled back.
func (m *Machine) Transition(to State, at time.Time) error {
	epoch := at.UnixNano()
	if epoch <= 0 {
		return errs.Invalid("epoch must be positive")
	}
	if !to.Valid() {
		return errs.Invalid("unknown state")
	}

	var from State
	for {
		cur := m.current.Load()
		from = cur.state
		if !validTransition(from, to) {
			return errs.Invalid("state machine advanced")
		}
		if from == to {
			return nil
		}

		next := *cur
		next.state = to
		next.epochs[to] = epoch
		if m.current.CompareAndSwap(cur, &next) {
			break
		}
	}

	m.logger.Info("state transition",
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.Time("epoch", at),
	)

	return m.observers.Notify(Event{State: to, Epoch: time.Unix(0, epoch)})
}

// TransitionNow is Transition at the current clock time.
func (m *Machine) TransitionNow(to State) error {
	now := m.clock.Now()
	if now.UnixNano() <= 0 {
		return errs.Fault("clock read failed")
	}
	return m.Transition(to, now)
}

// Register adds an observer notified after each committed transition.
func (m *Machine) Register(name string, o listener.Observer[Event]) (*listener.Handle, error) {
	return m.observers.Register(name, o)
}

// RegisterFunc adds fn as a transition observer.
func (m *Machine) RegisterFunc(name string, fn func(Event) error) (*listener.Handle, error) {
	return m.observers.RegisterFunc(name, fn)
}

// Unregister removes and releases an observer.
func (m *Machine) Unregister(h *listener.Handle) bool {
	return m.observers.Unregister(h)
}

// Close releases every observer. The state remains readable.
func (m *Machine) Close() error {
	return m.observers.Close()
}

// IsTerminal reports whether the machine reached StateTerminated or StateFailed.
func (m *Machine) IsTerminal() bool {
	s := m.State()
	return s == StateTerminated || s == StateFailed
}

// CanStart returns true while the machine has not left StateNew.
func (m *Machine) CanStart() bool {
	return m.State() == StateNew
}

// CanStop returns true if a transition to StateStopping is valid.
func (m *Machine) CanStop() bool {
	return m.State() == StateRunning
}
