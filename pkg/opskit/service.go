package opskit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/opskit/pkg/health"
	"github.com/bft-labs/opskit/pkg/lifecycle"
	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
)

// abortGrace is how long Stop waits for a pipeline to close after the drain
// worker missed ShutdownTimeout.
const abortGrace = 100 * time.Millisecond

// Service ties a lifecycle machine to an asynchronous log pipeline and the
// worker that drains it. Use New to create one, then Start and Stop.
type Service struct {
	config     Config
	machine    *lifecycle.Machine
	pipeline   *logpipe.Pipeline
	logger     log.Logger
	plugins    []Plugin
	checks     []*health.Check
	collectors []prometheus.Collector
	registerer prometheus.Registerer

	mu        sync.Mutex
	cancel    context.CancelFunc
	workers   sync.WaitGroup
	started   []Plugin
	abandoned atomic.Bool
}

// New creates a Service in the new state.
// Returns an error if configuration is invalid or the pipeline driver fails to open.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(log.String("service", cfg.Name))

	machineOpts := []lifecycle.Option{lifecycle.WithLogger(logger)}
	if o.clock != nil {
		machineOpts = append(machineOpts, lifecycle.WithClock(o.clock))
	}
	machine, err := lifecycle.New(machineOpts...)
	if err != nil {
		return nil, fmt.Errorf("create lifecycle: %w", err)
	}

	for _, c := range o.checks {
		c.Disable()
		if _, err := machine.Register("health:"+c.Name(), health.FollowLifecycle(c)); err != nil {
			_ = machine.Close()
			return nil, err
		}
	}
	for _, no := range o.observers {
		if _, err := machine.Register(no.name, no.observer); err != nil {
			_ = machine.Close()
			return nil, err
		}
	}

	pipeOpts := append(cfg.pipelineOptions(), logpipe.WithLogger(logger))
	pipeline, err := logpipe.New(cfg.Name, cfg.RingExponent, o.driver, pipeOpts...)
	if err != nil {
		_ = machine.Close()
		return nil, err
	}

	s := &Service{
		config:     cfg,
		machine:    machine,
		pipeline:   pipeline,
		logger:     logger,
		plugins:    o.plugins,
		checks:     o.checks,
		registerer: o.registerer,
	}

	if err := s.registerMetrics(); err != nil {
		_ = pipeline.Close()
		_ = machine.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) registerMetrics() error {
	if s.registerer == nil {
		return nil
	}
	pc, err := logpipe.NewCollector(s.pipeline)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	for _, c := range []prometheus.Collector{
		pc,
		newLifecycleCollector(s.config.Name, s.machine),
	} {
		if err := s.registerer.Register(c); err != nil {
			s.unregisterMetrics()
			return fmt.Errorf("register metrics: %w", err)
		}
		s.collectors = append(s.collectors, c)
	}
	return nil
}

func (s *Service) unregisterMetrics() {
	for _, c := range s.collectors {
		s.registerer.Unregister(c)
	}
	s.collectors = nil
}

// transition moves the machine to state to. An observer failure is logged
// but does not undo the transition.
func (s *Service) transition(to lifecycle.State) error {
	err := s.machine.TransitionNow(to)
	if err == nil {
		return nil
	}
	if s.machine.State() == to {
		s.logger.Warn("lifecycle observer failed",
			log.Stringer("state", to),
			log.Err(err),
		)
		return nil
	}
	return err
}

// Start initializes plugins and launches the drain worker.
// Returns ErrAlreadyStarted unless the service is in the new state.
// The provided context bounds the lifetime of the worker and plugins.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.machine.CanStart() {
		return ErrAlreadyStarted
	}
	if err := s.transition(lifecycle.StateStarting); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	pluginCfg := PluginConfig{
		ServiceName: s.config.Name,
		Pipeline:    s.pipeline,
		Lifecycle:   s.machine,
		Logger:      s.logger,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			s.shutdownPlugins()
			_ = s.transition(lifecycle.StateFailed)
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		s.started = append(s.started, p)
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	s.workers.Add(1)
	go s.drainLoop(runCtx)

	return s.transition(lifecycle.StateRunning)
}

// drainLoop hands buffered records to the driver until ctx is done. Idle
// drains back off up to eight drain intervals; any work resets the wait.
func (s *Service) drainLoop(ctx context.Context) {
	defer s.workers.Done()

	b := newBackoff(s.config.DrainInterval, 8*s.config.DrainInterval)
	for {
		n, err := s.pipeline.Drain(s.config.DrainBatch)
		if err != nil {
			if errors.Is(err, logpipe.ErrClosed) {
				return
			}
			s.logger.Warn("drain failed", log.Int("records", n), log.Err(err))
		}

		if n > 0 {
			b.reset()
		}
		if n >= s.config.DrainBatch {
			// more may be waiting
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if !b.wait(ctx) {
			return
		}
	}
}

// shutdownPlugins shuts down started plugins in reverse order.
func (s *Service) shutdownPlugins() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	for i := len(s.started) - 1; i >= 0; i-- {
		p := s.started[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	s.started = nil
}

// Stop stops the drain worker, shuts down plugins and closes the pipeline,
// flushing buffered records unless DiscardOnClose is set.
// Returns ErrNotRunning if the service is not running and
// ErrShutdownTimeout if the worker did not exit within ShutdownTimeout. After
// a timeout buffered records are discarded and the service ends FAILED.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.machine.CanStop() {
		return ErrNotRunning
	}
	if err := s.transition(lifecycle.StateStopping); err != nil {
		return err
	}

	if s.cancel != nil {
		s.cancel()
	}
	waitErr := s.waitWithTimeout(s.config.ShutdownTimeout)

	s.shutdownPlugins()

	var closeErr error
	if waitErr != nil {
		closeErr = s.abortPipeline()
	} else {
		closeErr = s.pipeline.Close()
	}
	if closeErr != nil {
		s.logger.Error("pipeline close failed", log.Err(closeErr))
	}

	if waitErr != nil || closeErr != nil {
		_ = s.transition(lifecycle.StateFailed)
	} else {
		_ = s.transition(lifecycle.StateTerminated)
	}
	return errors.Join(waitErr, closeErr)
}

// waitWithTimeout waits for all workers to finish with a timeout.
func (s *Service) waitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		s.logger.Warn("shutdown timeout, forcing exit",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}

// abortPipeline closes the pipeline without flushing. A drain stuck in the
// driver holds the pipeline open; it is then left to close once the driver
// returns.
func (s *Service) abortPipeline() error {
	done := make(chan error, 1)
	go func() { done <- s.pipeline.Abort() }()

	select {
	case err := <-done:
		return err
	case <-time.After(abortGrace):
		s.abandoned.Store(true)
		s.logger.Warn("pipeline busy in driver, leaving it to close in the background",
			log.Int("buffered", s.pipeline.Buffered()),
		)
		return nil
	}
}

// Close stops the service if it is running, then releases the pipeline,
// lifecycle observers and metrics. It is safe to call more than once.
func (s *Service) Close() error {
	var err error
	if s.machine.CanStop() {
		err = s.Stop()
	} else if !s.abandoned.Load() {
		err = s.pipeline.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registerer != nil {
		s.unregisterMetrics()
	}
	return errors.Join(err, s.machine.Close())
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Service) Status() lifecycle.State {
	return s.machine.State()
}

// Lifecycle returns the service's state machine.
func (s *Service) Lifecycle() *lifecycle.Machine {
	return s.machine
}

// Pipeline returns the service's log pipeline.
func (s *Service) Pipeline() *logpipe.Pipeline {
	return s.pipeline
}

// Logger returns a log.Logger writing through the pipeline.
func (s *Service) Logger() log.Logger {
	return logpipe.NewLogger(s.pipeline)
}

// Health polls every health check registered with WithHealthCheck.
func (s *Service) Health(ctx context.Context) (health.Status, []health.Result) {
	return health.PollAll(ctx, s.checks...)
}
