package lifecycle

import "time"

// State represents the operational phase of a component.
// Ordinals matter: transitions are validated against adjacency and epochs of
// states ahead of the current one read as unreached.
type State int32

const (
	// StateNew is inactive, doing minimal work.
	StateNew State = iota
	// StateStarting is transitioning to StateRunning.
	StateStarting
	// StateRunning is operational.
	StateRunning
	// StateStopping is transitioning to StateTerminated.
	StateStopping
	// StateTerminated completed execution normally.
	StateTerminated
	// StateFailed encountered a problem; it cannot be started nor stopped.
	StateFailed

	stateCount
)

var stateLabels = [stateCount]string{
	StateNew:        "new",
	StateStarting:   "starting",
	StateRunning:    "running",
	StateStopping:   "stopping",
	StateTerminated: "terminated",
	StateFailed:     "failed",
}

// String returns a human-readable representation of the state.
func (s State) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stateLabels[s]
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	return s >= StateNew && s < stateCount
}

// States returns every state in ordinal order.
func States() []State {
	return []State{StateNew, StateStarting, StateRunning, StateStopping, StateTerminated, StateFailed}
}

// Event is delivered to observers after a committed transition.
type Event struct {
	State State
	Epoch time.Time
}

// Clock supplies wall-clock time. A non-positive reading is a clock failure.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// validTransition implements the adjacency table: every state may be
// re-entered, each forward step comes only from its predecessor, and
// StateFailed is reachable from anywhere.
func validTransition(from, to State) bool {
	switch to {
	case StateNew:
		return from == StateNew
	case StateStarting:
		return from == StateNew || from == StateStarting
	case StateRunning:
		return from == StateStarting || from == StateRunning
	case StateStopping:
		return from == StateRunning || from == StateStopping
	case StateTerminated:
		return from == StateStopping || from == StateTerminated
	case StateFailed:
		return true
	default:
		return false
	}
}
