package opskit

import (
	"context"
	"math/rand"
	"time"
)

// backoff implements exponential backoff with jitter. It paces the drain
// worker: every idle drain doubles the wait up to max.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// next returns the current wait with ±20% jitter and grows it for next time.
func (b *backoff) next() time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// wait sleeps for the next interval. It returns false if ctx is done first.
func (b *backoff) wait(ctx context.Context) bool {
	t := time.NewTimer(b.next())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *backoff) reset() {
	b.current = b.initial
}
