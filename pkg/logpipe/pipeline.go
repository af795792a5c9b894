package logpipe

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/opskit/pkg/errs"
	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/ring"
)

// Pipeline errors.
var (
	// ErrFull is returned by Log when the ring has no free slot.
	ErrFull = errs.Again("log buffer full")

	// ErrClosed is returned by Log and Drain after Close.
	ErrClosed = errs.Invalid("pipeline closed")
)

// Pipeline is an asynchronous logger. Producers format records into a bounded
// lock-free ring; a consumer drains them to the Driver.
type Pipeline struct {
	name   string
	ring   *ring.Ring[Record]
	driver Driver

	level    atomic.Int32
	enabled  atomic.Bool
	inflight atomic.Int64

	policy       FullPolicy
	onDrop       func(*Record)
	flushOnClose bool
	logger       log.Logger
	now          func() time.Time
	pid          int

	drainMu sync.Mutex
	scratch Record
	closed  bool

	closeOnce sync.Once
	closeErr  error

	enqueued  atomic.Uint64
	dropped   atomic.Uint64
	drained   atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64
}

// New creates a pipeline with a ring of 1<<exponent records.
//
// A nil driver is replaced by DefaultDriver. The driver is opened before New
// returns; if opening fails the driver is closed and the error returned.
func New(name string, exponent uint8, driver Driver, opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.level.Valid() {
		return nil, fmt.Errorf("logpipe %q: %w", name, errs.Invalid("unknown log level"))
	}

	r, err := ring.New[Record](exponent)
	if err != nil {
		return nil, fmt.Errorf("logpipe %q: %w", name, err)
	}

	if driver == nil {
		if driver, err = DefaultDriver(); err != nil {
			return nil, fmt.Errorf("logpipe %q: %w", name, err)
		}
	}
	if err := driver.Open(); err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("logpipe %q: open driver: %w", name, err)
	}

	p := &Pipeline{
		name:         name,
		ring:         r,
		driver:       driver,
		policy:       o.policy,
		onDrop:       o.onDrop,
		flushOnClose: o.flushOnClose,
		logger:       o.logger.With(log.String("pipeline", name)),
		now:          o.now,
		pid:          os.Getpid(),
	}
	p.level.Store(int32(o.level))
	p.enabled.Store(true)
	return p, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Level returns the current threshold.
func (p *Pipeline) Level() Level {
	return Level(p.level.Load())
}

// SetLevel changes the threshold for subsequent Log calls.
func (p *Pipeline) SetLevel(l Level) error {
	if !l.Valid() {
		return errs.Invalid("unknown log level")
	}
	p.level.Store(int32(l))
	return nil
}

// Enabled reports whether the pipeline accepts records at l.
func (p *Pipeline) Enabled(l Level) bool {
	return l <= p.Level()
}

// Log formats and enqueues a record.
//
// Records less severe than the threshold are dropped silently and return nil.
// A full ring returns ErrFull under PolicyDrop.
func (p *Pipeline) Log(level Level, origin Origin, format string, args ...any) error {
	if level > p.Level() {
		return nil
	}
	return p.enqueue(level, origin, format, args)
}

func (p *Pipeline) logf(level Level, format string, args []any) error {
	if level > p.Level() {
		return nil
	}
	return p.enqueue(level, caller(2), format, args)
}

func (p *Pipeline) enqueue(level Level, origin Origin, format string, args []any) error {
	if !level.Valid() {
		return errs.Invalid("unknown log level")
	}

	p.inflight.Add(1)
	defer p.inflight.Add(-1)
	if !p.enabled.Load() {
		return ErrClosed
	}

	rec := Record{
		Time:   p.now(),
		Level:  level,
		Logger: p.name,
		Origin: origin,
		PID:    p.pid,
		TID:    gettid(),
	}
	rec.SetMessage(format, args...)

	for !p.ring.TryEnqueue(rec) {
		if p.policy != PolicyBlock {
			p.dropped.Add(1)
			if p.onDrop != nil {
				p.onDrop(&rec)
			}
			return ErrFull
		}
		if !p.enabled.Load() {
			return ErrClosed
		}
		runtime.Gosched()
	}
	p.enqueued.Add(1)
	return nil
}

// Emergencyf logs at LevelEmergency with the caller as origin.
func (p *Pipeline) Emergencyf(format string, args ...any) error {
	return p.logf(LevelEmergency, format, args)
}

// Alertf logs at LevelAlert with the caller as origin.
func (p *Pipeline) Alertf(format string, args ...any) error {
	return p.logf(LevelAlert, format, args)
}

// Criticalf logs at LevelCritical with the caller as origin.
func (p *Pipeline) Criticalf(format string, args ...any) error {
	return p.logf(LevelCritical, format, args)
}

// Errorf logs at LevelError with the caller as origin.
func (p *Pipeline) Errorf(format string, args ...any) error {
	return p.logf(LevelError, format, args)
}

// Warningf logs at LevelWarning with the caller as origin.
func (p *Pipeline) Warningf(format string, args ...any) error {
	return p.logf(LevelWarning, format, args)
}

// Noticef logs at LevelNotice with the caller as origin.
func (p *Pipeline) Noticef(format string, args ...any) error {
	return p.logf(LevelNotice, format, args)
}

// Infof logs at LevelInfo with the caller as origin.
func (p *Pipeline) Infof(format string, args ...any) error {
	return p.logf(LevelInfo, format, args)
}

// Debugf logs at LevelDebug with the caller as origin.
func (p *Pipeline) Debugf(format string, args ...any) error {
	return p.logf(LevelDebug, format, args)
}

// Drain hands up to limit buffered records to the driver; limit <= 0 drains
// until the ring is empty. A driver failure does not stop the batch: the count
// includes failed records and the first failure is returned.
func (p *Pipeline) Drain(limit int) (int, error) {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}
	return p.drainLocked(limit)
}

func (p *Pipeline) drainLocked(limit int) (int, error) {
	var (
		n     int
		first error
	)
	for limit <= 0 || n < limit {
		rec, ok := p.ring.TryDequeue()
		if !ok {
			break
		}
		p.scratch = rec
		n++
		if err := p.driver.Process(&p.scratch); err != nil {
			p.failed.Add(1)
			if first == nil {
				first = err
			}
		}
	}
	p.drained.Add(uint64(n))

	if first != nil {
		p.logger.Warn("driver failed to process records",
			log.Int("drained", n),
			log.Err(first),
		)
		return n, fmt.Errorf("logpipe %q: drain: %w", p.name, first)
	}
	return n, nil
}

// Buffered returns the approximate number of records waiting to be drained.
func (p *Pipeline) Buffered() int {
	return p.ring.Len()
}

// Close stops accepting records, flushes or discards what is buffered, and
// closes the driver. Calling Close more than once returns the first result.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close(p.flushOnClose)
	})
	return p.closeErr
}

// Abort is Close without the flush: buffered records are discarded regardless
// of WithFlushOnClose. Close and Abort share one result; whichever runs first
// decides whether the ring is flushed.
//
// Abort still waits for a Drain in progress to return.
func (p *Pipeline) Abort() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close(false)
	})
	return p.closeErr
}

func (p *Pipeline) close(flush bool) error {
	p.enabled.Store(false)
	for p.inflight.Load() != 0 {
		runtime.Gosched()
	}

	p.drainMu.Lock()
	defer p.drainMu.Unlock()

	var flushErr error
	if flush {
		var n int
		n, flushErr = p.drainLocked(0)
		p.logger.Debug("pipeline flushed", log.Int("records", n))
	} else {
		n := 0
		for {
			if _, ok := p.ring.TryDequeue(); !ok {
				break
			}
			n++
		}
		p.discarded.Add(uint64(n))
		if n > 0 {
			p.logger.Warn("pipeline discarded buffered records", log.Int("records", n))
		}
	}
	p.closed = true

	if err := p.driver.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("logpipe %q: close driver: %w", p.name, err))
	}
	return flushErr
}

// Stats is a point-in-time view of pipeline counters. Records filtered by
// level are not counted.
type Stats struct {
	Name      string
	Level     Level
	Enqueued  uint64
	Dropped   uint64
	Drained   uint64
	Failed    uint64
	Discarded uint64
	Buffered  int
	Capacity  int
	Closed    bool
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Name:      p.name,
		Level:     p.Level(),
		Enqueued:  p.enqueued.Load(),
		Dropped:   p.dropped.Load(),
		Drained:   p.drained.Load(),
		Failed:    p.failed.Load(),
		Discarded: p.discarded.Load(),
		Buffered:  p.ring.Len(),
		Capacity:  p.ring.Cap(),
		Closed:    !p.enabled.Load(),
	}
}
