package ring

import (
	"sync/atomic"

	"github.com/bft-labs/opskit/pkg/errs"
)

// MaxExponent bounds the capacity of a Ring to 1<<MaxExponent slots.
const MaxExponent = 16

const cacheLine = 64

type cell[T any] struct {
	seq atomic.Uint64
	val T
}

// Ring is a fixed-capacity MPMC queue. The zero value is not usable; call New.
type Ring[T any] struct {
	_     [cacheLine]byte
	head  atomic.Uint64 // next enqueue position
	_     [cacheLine - 8]byte
	tail  atomic.Uint64 // next dequeue position
	_     [cacheLine - 8]byte
	mask  uint64
	cells []cell[T]
}

// New allocates a ring with 1<<exponent slots.
// It fails with errs.ErrInvalid if exponent exceeds MaxExponent.
func New[T any](exponent uint8) (*Ring[T], error) {
	if exponent > MaxExponent {
		return nil, errs.Invalid("ring exponent too large")
	}

	size := uint64(1) << exponent
	r := &Ring[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].seq.Store(uint64(i))
	}
	return r, nil
}

// TryEnqueue appends v, returning false without waiting if the ring is full.
func (r *Ring[T]) TryEnqueue(v T) bool {
	pos := r.head.Load()
	for {
		c := &r.cells[pos&r.mask]
		seq := c.seq.Load()

		switch diff := int64(seq - pos); {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				c.val = v
				c.seq.Store(pos + 1)
				return true
			}
			pos = r.head.Load()
		case diff < 0:
			return false
		default:
			// another producer claimed this slot
			pos = r.head.Load()
		}
	}
}

// TryDequeue removes the oldest item, returning false without waiting if the
// ring is empty.
func (r *Ring[T]) TryDequeue() (T, bool) {
	var zero T

	pos := r.tail.Load()
	for {
		c := &r.cells[pos&r.mask]
		seq := c.seq.Load()

		switch diff := int64(seq - (pos + 1)); {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				v := c.val
				c.val = zero
				c.seq.Store(pos + r.mask + 1)
				return v, true
			}
			pos = r.tail.Load()
		case diff < 0:
			return zero, false
		default:
			pos = r.tail.Load()
		}
	}
}

// Len returns an approximate count of buffered items. It is exact when no
// enqueue or dequeue is in flight.
func (r *Ring[T]) Len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	if head < tail {
		return 0
	}
	n := head - tail
	if n > r.mask+1 {
		n = r.mask + 1
	}
	return int(n)
}

// Cap returns the number of slots.
func (r *Ring[T]) Cap() int {
	return int(r.mask + 1)
}
