package logpipe

import (
	"sync/atomic"

	"github.com/bft-labs/opskit/pkg/errs"
)

type tallyCounters [levelCount]atomic.Uint64

// Tally counts records per level. Counts read as zero before Open and after Close.
type Tally struct {
	counters atomic.Pointer[tallyCounters]
}

// NewTally returns a counting driver.
func NewTally() *Tally { return &Tally{} }

// Open allocates the counters.
func (t *Tally) Open() error {
	t.counters.Store(new(tallyCounters))
	return nil
}

// Process increments the counter of rec.Level.
func (t *Tally) Process(rec *Record) error {
	c := t.counters.Load()
	if c == nil {
		return errs.Invalid("tally driver not open")
	}
	if !rec.Level.Valid() {
		return errs.Invalid("unknown log level")
	}
	c[rec.Level].Add(1)
	return nil
}

// Close releases the counters.
func (t *Tally) Close() error {
	t.counters.Store(nil)
	return nil
}

// Count returns the number of records seen at l.
func (t *Tally) Count(l Level) uint64 {
	c := t.counters.Load()
	if c == nil || !l.Valid() {
		return 0
	}
	return c[l].Load()
}

// Counts returns every counter indexed by level.
func (t *Tally) Counts() [levelCount]uint64 {
	var out [levelCount]uint64
	if c := t.counters.Load(); c != nil {
		for i := range c {
			out[i] = c[i].Load()
		}
	}
	return out
}

// Total returns the sum of all counters.
func (t *Tally) Total() uint64 {
	var sum uint64
	for _, n := range t.Counts() {
		sum += n
	}
	return sum
}
