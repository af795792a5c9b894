// Package lifecycle provides a lock-free state machine for component lifecycles.
//
// A [Machine] tracks the operational phase of a long-running component and
// remembers when each phase was first reached. Transitions are committed with
// a compare-and-swap, so readers never block and never observe a state
// without its epoch. Observers registered on the machine are notified
// synchronously after each committed transition.
//
// # Usage
//
//	m, err := lifecycle.New(lifecycle.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	m.RegisterFunc("audit", func(ev lifecycle.Event) error {
//	    fmt.Printf("%s at %s\n", ev.State, ev.Epoch)
//	    return nil
//	})
//
//	if err := m.TransitionNow(lifecycle.StateStarting); err != nil {
//	    return err
//	}
//
// # State Machine
//
//	NEW → STARTING → RUNNING → STOPPING → TERMINATED
//	 └───────┴──────────┴─────────┴─────→ FAILED
//
// Every state may be re-entered as a no-op. Any other transition fails with
// errs.ErrInvalid and leaves the machine untouched.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
