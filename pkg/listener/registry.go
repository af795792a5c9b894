package listener

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/bft-labs/opskit/pkg/errs"
)

// Observer receives events from a Registry.
type Observer[E any] interface {
	Observe(event E) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[E any] func(event E) error

// Observe calls f(event).
func (f ObserverFunc[E]) Observe(event E) error { return f(event) }

// Handle identifies a registration.
type Handle struct {
	name string
}

// Name returns the diagnostic name given at registration.
func (h *Handle) Name() string { return h.name }

type entry[E any] struct {
	handle   *Handle
	observer Observer[E]
}

// Registry is a concurrent fan-out list of observers.
type Registry[E any] struct {
	mu      sync.RWMutex
	entries []entry[E]
	closed  bool
}

// New creates an empty registry.
func New[E any]() *Registry[E] {
	return &Registry[E]{}
}

// Register adds an observer. Names are diagnostic and need not be unique.
func (r *Registry[E]) Register(name string, o Observer[E]) (*Handle, error) {
	if o == nil {
		return nil, errs.Invalid("nil observer")
	}

	h := &Handle{name: name}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		release(o)
		return nil, errs.Invalid("registry closed")
	}
	r.entries = append(r.entries, entry[E]{handle: h, observer: o})
	r.mu.Unlock()

	return h, nil
}

// RegisterFunc registers fn as an observer.
func (r *Registry[E]) RegisterFunc(name string, fn func(E) error) (*Handle, error) {
	if fn == nil {
		return nil, errs.Invalid("nil observer")
	}
	return r.Register(name, ObserverFunc[E](fn))
}

// Unregister removes and releases the observer behind h.
// It reports false if h is not registered.
func (r *Registry[E]) Unregister(h *Handle) bool {
	if h == nil {
		return false
	}

	r.mu.Lock()
	i := slices.IndexFunc(r.entries, func(e entry[E]) bool { return e.handle == h })
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	o := r.entries[i].observer
	r.entries = slices.Delete(r.entries, i, i+1)
	r.mu.Unlock()

	release(o)
	return true
}

// Notify delivers event to every observer. A failing observer does not stop
// the pass; the first failure is returned once all observers have run.
func (r *Registry[E]) Notify(event E) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first error
	for _, e := range r.entries {
		if err := e.observer.Observe(event); err != nil && first == nil {
			first = fmt.Errorf("observer %q: %w", e.handle.name, err)
		}
	}
	return first
}

// Len returns the number of registered observers.
func (r *Registry[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns observer names in registration order.
func (r *Registry[E]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.handle.name
	}
	return names
}

// Close releases every observer. Later registrations fail.
func (r *Registry[E]) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.closed = true
	r.mu.Unlock()

	var errList []error
	for _, e := range entries {
		if err := release(e.observer); err != nil {
			errList = append(errList, fmt.Errorf("close observer %q: %w", e.handle.name, err))
		}
	}
	return errors.Join(errList...)
}

func release(o any) error {
	if c, ok := o.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
