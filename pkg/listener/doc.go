// Package listener provides a thread-safe observer registry with fan-out notification.
//
// A [Registry] holds named observers for one event type. Registration and
// removal take an exclusive lock; notifications take a shared lock, so several
// goroutines may notify concurrently while structural changes wait.
//
// # Usage
//
//	reg := listener.New[lifecycle.Event]()
//	h, err := reg.RegisterFunc("audit", func(ev lifecycle.Event) error {
//	    fmt.Println(ev.State, ev.Epoch)
//	    return nil
//	})
//	...
//	err = reg.Notify(event) // first observer failure, others still ran
//	reg.Unregister(h)
//
// # Ownership
//
// An observer that implements io.Closer is owned by the registry once passed
// to Register: it is closed on Unregister, on Close, and when registration
// itself fails.
//
// Observers must not register or unregister on the same registry from inside
// their callback; doing so deadlocks.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package listener
