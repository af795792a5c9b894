package lifecycle

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/opskit/pkg/errs"
)

// fixedClock returns a preset time; a zero value simulates a clock failure.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// mockObserver tracks transition events for testing.
type mockObserver struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *mockObserver) Observe(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockObserver) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event{}, m.events...)
}

func at(sec int) time.Time { return time.Unix(int64(sec), 0) }

// forceState publishes s with every epoch up to s populated.
func forceState(m *Machine, s State) {
	snap := &snapshot{state: s}
	for i := StateNew; i <= s; i++ {
		snap.epochs[i] = at(int(i) + 1).UnixNano()
	}
	m.current.Store(snap)
}

func newMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNew(t *testing.T) {
	clock := &fixedClock{now: at(42)}
	m, err := New(WithClock(clock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if m.State() != StateNew {
		t.Errorf("initial state = %v, want new", m.State())
	}
	if got := m.Epoch(StateNew); !got.Equal(at(42)) {
		t.Errorf("Epoch(new) = %v, want %v", got, at(42))
	}
	for _, s := range States()[1:] {
		if !m.Epoch(s).IsZero() {
			t.Errorf("Epoch(%v) = %v, want zero", s, m.Epoch(s))
		}
	}
}

func TestNew_ClockFault(t *testing.T) {
	_, err := New(WithClock(&fixedClock{}))
	if !errors.Is(err, errs.ErrFault) {
		t.Fatalf("New() error = %v, want ErrFault", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateNew, "new"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{StateTerminated, "terminated"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
		{State(-1), "unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestMachine_Transition_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"new to starting", StateNew, StateStarting},
		{"new to failed", StateNew, StateFailed},
		{"starting to running", StateStarting, StateRunning},
		{"starting to failed", StateStarting, StateFailed},
		{"running to stopping", StateRunning, StateStopping},
		{"running to failed", StateRunning, StateFailed},
		{"stopping to terminated", StateStopping, StateTerminated},
		{"stopping to failed", StateStopping, StateFailed},
		{"terminated to failed", StateTerminated, StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t)
			forceState(m, tt.from)

			if err := m.Transition(tt.to, at(100)); err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if m.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", m.State(), tt.to)
			}
			if got := m.Epoch(tt.to); !got.Equal(at(100)) {
				t.Errorf("Epoch(%v) = %v, want %v", tt.to, got, at(100))
			}
		})
	}
}

func TestMachine_Transition_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"new to running", StateNew, StateRunning},
		{"new to stopping", StateNew, StateStopping},
		{"new to terminated", StateNew, StateTerminated},
		{"starting to new", StateStarting, StateNew},
		{"starting to stopping", StateStarting, StateStopping},
		{"running to starting", StateRunning, StateStarting},
		{"running to terminated", StateRunning, StateTerminated},
		{"stopping to running", StateStopping, StateRunning},
		{"terminated to new", StateTerminated, StateNew},
		{"failed to starting", StateFailed, StateStarting},
		{"failed to terminated", StateFailed, StateTerminated},
		{"unknown target", StateNew, State(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t)
			forceState(m, tt.from)
			before := *m.current.Load()

			err := m.Transition(tt.to, at(100))

			if !errors.Is(err, errs.ErrInvalid) {
				t.Errorf("Transition() error = %v, want ErrInvalid", err)
			}
			if after := *m.current.Load(); after != before {
				t.Errorf("machine mutated on invalid transition: %+v -> %+v", before, after)
			}
		})
	}
}

func TestMachine_Transition_NonPositiveEpoch(t *testing.T) {
	m := newMachine(t)

	err := m.Transition(StateStarting, time.Unix(-1, 0))
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("Transition() error = %v, want ErrInvalid", err)
	}
	if m.State() != StateNew {
		t.Errorf("state = %v, want new", m.State())
	}

	if err := m.Transition(StateStarting, time.Unix(0, 0)); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("Transition(epoch 0) error = %v, want ErrInvalid", err)
	}
}

func TestMachine_TransitionMatrix(t *testing.T) {
	m := newMachine(t)

	for i := StateStarting; i <= StateFailed; i++ {
		if err := m.Transition(i, at(int(i))); err != nil {
			t.Fatalf("Transition(%v) error = %v", i, err)
		}
		if m.State() != i {
			t.Fatalf("State() = %v, want %v", m.State(), i)
		}
		if got := m.Epoch(i); !got.Equal(at(int(i))) {
			t.Errorf("Epoch(%v) = %v, want %v", i, got, at(int(i)))
		}

		// no way back
		for j := StateNew; j < i; j++ {
			if err := m.TransitionNow(j); !errors.Is(err, errs.ErrInvalid) {
				t.Errorf("TransitionNow(%v) from %v error = %v, want ErrInvalid", j, i, err)
			}
		}
	}
}

func TestMachine_SelfTransitionIsNoop(t *testing.T) {
	m := newMachine(t)
	obs := &mockObserver{}
	if _, err := m.Register("obs", obs); err != nil {
		t.Fatal(err)
	}

	newEpoch := m.Epoch(StateNew)
	if err := m.Transition(StateNew, at(500)); err != nil {
		t.Fatalf("Transition(new) error = %v", err)
	}
	if !m.Epoch(StateNew).Equal(newEpoch) {
		t.Errorf("re-entering new moved its epoch")
	}

	if err := m.Transition(StateStarting, at(10)); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(StateStarting, at(20)); err != nil {
		t.Fatal(err)
	}
	if got := m.Epoch(StateStarting); !got.Equal(at(10)) {
		t.Errorf("Epoch(starting) = %v, want %v", got, at(10))
	}

	if err := m.Transition(StateFailed, at(30)); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(StateFailed, at(40)); err != nil {
		t.Fatal(err)
	}
	if got := m.Epoch(StateFailed); !got.Equal(at(30)) {
		t.Errorf("Epoch(failed) = %v, want %v", got, at(30))
	}

	if got := len(obs.Events()); got != 2 {
		t.Errorf("got %d events, want 2 (no-ops are silent)", got)
	}
}

func TestMachine_Transition_EmitsEvents(t *testing.T) {
	m := newMachine(t)
	obs := &mockObserver{}
	if _, err := m.Register("obs", obs); err != nil {
		t.Fatal(err)
	}

	_ = m.Transition(StateStarting, at(1))
	_ = m.Transition(StateRunning, at(2))

	events := obs.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].State != StateStarting || !events[0].Epoch.Equal(at(1)) {
		t.Errorf("event 0 = %+v, want starting@1", events[0])
	}
	if events[1].State != StateRunning || !events[1].Epoch.Equal(at(2)) {
		t.Errorf("event 1 = %+v, want running@2", events[1])
	}
}

func TestMachine_ObserverFailureKeepsCommit(t *testing.T) {
	m := newMachine(t)
	boom := errors.New("boom")
	if _, err := m.Register("failing", &mockObserver{err: boom}); err != nil {
		t.Fatal(err)
	}

	err := m.Transition(StateStarting, at(5))
	if !errors.Is(err, boom) {
		t.Fatalf("Transition() error = %v, want %v", err, boom)
	}
	if m.State() != StateStarting {
		t.Errorf("state = %v, want starting (no rollback)", m.State())
	}
}

func TestMachine_Unregister(t *testing.T) {
	m := newMachine(t)
	obs := &mockObserver{}
	h, err := m.Register("obs", obs)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Unregister(h) {
		t.Fatal("Unregister() = false")
	}
	_ = m.Transition(StateStarting, at(1))
	if len(obs.Events()) != 0 {
		t.Error("unregistered observer was notified")
	}
}

func TestMachine_TransitionNow_ClockFault(t *testing.T) {
	clock := &fixedClock{now: at(1)}
	m, err := New(WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}

	clock.Set(time.Time{})
	if err := m.TransitionNow(StateStarting); !errors.Is(err, errs.ErrFault) {
		t.Fatalf("TransitionNow() error = %v, want ErrFault", err)
	}

	clock.Set(at(9))
	if err := m.TransitionNow(StateStarting); err != nil {
		t.Fatalf("TransitionNow() error = %v", err)
	}
	if got := m.Epoch(StateStarting); !got.Equal(at(9)) {
		t.Errorf("Epoch(starting) = %v, want %v", got, at(9))
	}
}

func TestMachine_EpochOK(t *testing.T) {
	m := newMachine(t)
	if _, ok := m.EpochOK(State(42)); ok {
		t.Error("EpochOK(invalid) ok = true")
	}
	if ts, ok := m.EpochOK(StateRunning); !ok || !ts.IsZero() {
		t.Errorf("EpochOK(running) = %v, %v; want zero, true", ts, ok)
	}
}

func TestMachine_Predicates(t *testing.T) {
	tests := []struct {
		state    State
		canStart bool
		canStop  bool
		terminal bool
	}{
		{StateNew, true, false, false},
		{StateStarting, false, false, false},
		{StateRunning, false, true, false},
		{StateStopping, false, false, false},
		{StateTerminated, false, false, true},
		{StateFailed, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			m := newMachine(t)
			forceState(m, tt.state)

			if got := m.CanStart(); got != tt.canStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.canStart)
			}
			if got := m.CanStop(); got != tt.canStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.canStop)
			}
			if got := m.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

// Four workers race to advance the machine to their own state; each retries
// until its predecessor has been committed.
func TestMachine_ConcurrentTransitions(t *testing.T) {
	m := newMachine(t)

	var ready atomic.Bool
	var wg sync.WaitGroup
	for s := StateStarting; s <= StateTerminated; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !ready.Load() {
				runtime.Gosched()
			}
			for m.Transition(s, at(int(s))) != nil {
				runtime.Gosched()
			}
		}()
	}
	ready.Store(true)
	wg.Wait()

	if m.State() != StateTerminated {
		t.Fatalf("State() = %v, want terminated", m.State())
	}
	for s := StateStarting; s <= StateTerminated; s++ {
		if got := m.Epoch(s); !got.Equal(at(int(s))) {
			t.Errorf("Epoch(%v) = %v, want %v", s, got, at(int(s)))
		}
	}
}

func TestMachine_ReadersNeverSeeMissingEpoch(t *testing.T) {
	m := newMachine(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := m.State()
				if m.Epoch(s).IsZero() {
					t.Errorf("state %v observed without epoch", s)
					return
				}
				if m.State() < s {
					t.Errorf("state moved backwards from %v", s)
					return
				}
			}
		}()
	}

	for s := StateStarting; s <= StateTerminated; s++ {
		if err := m.Transition(s, at(int(s))); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
}
