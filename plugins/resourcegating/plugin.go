// Package resourcegating sheds verbose log records while an opskit service
// is under pressure. When the pipeline buffer fills up or the process runs
// too many goroutines, the pipeline threshold is raised to a gated level and
// restored once the pressure is gone.
package resourcegating

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/opskit"
)

// sample is a point-in-time view of the resources the gate watches.
type sample struct {
	bufferRatio float64
	goroutines  int
}

// Plugin implements resource gating functionality.
// It samples buffer occupancy and goroutine count on an interval and gates
// the pipeline level while either exceeds its threshold.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	bufferThreshold float64
	goroutineLimit  int
	gatedLevel      logpipe.Level
	interval        time.Duration

	// Runtime state
	pipeline *logpipe.Pipeline
	logger   log.Logger
	sampler  func() sample
	gated    bool
	saved    logpipe.Level
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// BufferThreshold is the buffer occupancy fraction (0.0-1.0) above which
	// logging is gated.
	// Default: 0.75
	BufferThreshold float64

	// GoroutinesPerCPU bounds the goroutine count, as a multiple of
	// runtime.NumCPU, above which logging is gated.
	// Default: 100
	GoroutinesPerCPU int

	// GatedLevel is the threshold applied while gated. Levels already at or
	// above this severity are left alone.
	// Default: warning
	GatedLevel logpipe.Level

	// Interval is the delay between samples.
	// Default: 1 second
	Interval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferThreshold:  0.75,
		GoroutinesPerCPU: 100,
		GatedLevel:       logpipe.LevelWarning,
		Interval:         time.Second,
	}
}

// New creates a new resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.BufferThreshold <= 0 || cfg.BufferThreshold > 1 {
		cfg.BufferThreshold = def.BufferThreshold
	}
	if cfg.GoroutinesPerCPU <= 0 {
		cfg.GoroutinesPerCPU = def.GoroutinesPerCPU
	}
	if !cfg.GatedLevel.Valid() || cfg.GatedLevel == logpipe.LevelEmergency {
		cfg.GatedLevel = def.GatedLevel
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}

	p := &Plugin{
		bufferThreshold: cfg.BufferThreshold,
		goroutineLimit:  cfg.GoroutinesPerCPU * runtime.NumCPU(),
		gatedLevel:      cfg.GatedLevel,
		interval:        cfg.Interval,
		logger:          log.NewNoopLogger(),
	}
	p.sampler = p.sampleRuntime
	return p
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize starts sampling the service pipeline.
func (p *Plugin) Initialize(ctx context.Context, cfg opskit.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pipeline = cfg.Pipeline
	p.logger = log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	if p.pipeline == nil {
		p.logger.Warn("resource gating disabled: no pipeline configured")
		return nil
	}

	gateCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(gateCtx)

	p.logger.Info("resource gating plugin initialized",
		log.Stringer("gated_level", p.gatedLevel),
		log.Duration("interval", p.interval),
	)
	return nil
}

// Shutdown stops sampling and restores the level if it is gated.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gated {
		p.release()
	}
	return nil
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evaluate()
		}
	}
}

// evaluate takes one sample and gates or releases the pipeline.
func (p *Plugin) evaluate() {
	s := p.sampler()

	p.mu.Lock()
	defer p.mu.Unlock()

	pressure := s.bufferRatio >= p.bufferThreshold || s.goroutines > p.goroutineLimit
	switch {
	case pressure && !p.gated:
		p.gate(s)
	case !pressure && p.gated:
		p.release()
	}
}

// gate raises the pipeline threshold. Caller holds p.mu.
func (p *Plugin) gate(s sample) {
	p.saved = p.pipeline.Level()
	p.gated = true
	if p.saved <= p.gatedLevel {
		return
	}
	_ = p.pipeline.SetLevel(p.gatedLevel)
	p.logger.Warn("resource gate: shedding verbose records",
		log.Any("buffer_ratio", s.bufferRatio),
		log.Int("goroutines", s.goroutines),
		log.Stringer("from", p.saved),
		log.Stringer("to", p.gatedLevel),
	)
}

// release restores the saved threshold unless someone else changed the
// level while gated. Caller holds p.mu.
func (p *Plugin) release() {
	p.gated = false
	if p.saved <= p.gatedLevel || p.pipeline.Level() != p.gatedLevel {
		return
	}
	_ = p.pipeline.SetLevel(p.saved)
	p.logger.Info("resource gate: pressure cleared",
		log.Stringer("level", p.saved),
	)
}

func (p *Plugin) sampleRuntime() sample {
	st := p.pipeline.Stats()
	var ratio float64
	if st.Capacity > 0 {
		ratio = float64(st.Buffered) / float64(st.Capacity)
	}
	return sample{bufferRatio: ratio, goroutines: runtime.NumGoroutine()}
}

// ResourcesOK reports whether the last evaluation found no pressure.
func (p *Plugin) ResourcesOK() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.gated
}

// Ensure Plugin implements opskit.Plugin.
var _ opskit.Plugin = (*Plugin)(nil)
