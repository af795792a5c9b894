// Package configwatcher reloads the log threshold of an opskit service
// when its TOML configuration file changes.
//
// The watched file carries the threshold under the [log] table:
//
//	[log]
//	level = "debug"
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/opskit"
)

// Error codes for config file issues.
const (
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeReadError        = "READ_ERROR"
	ErrCodeParseError       = "PARSE_ERROR"
)

// Plugin implements config watching functionality.
// It monitors a single TOML file and applies its log level to the
// service pipeline whenever the file is written.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	retryInterval time.Duration
	debounceDelay time.Duration

	// Runtime state
	pipeline *logpipe.Pipeline
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch. An empty path disables the plugin.
	Path string

	// RetryInterval is the delay between attempts to watch the file's
	// directory while it does not exist.
	// Default: 5 seconds
	RetryInterval time.Duration

	// DebounceDelay is the delay to wait after a file change before applying it.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults and no path.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 5 * time.Second,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// fileConfig is the subset of the watched file the plugin reads.
type fileConfig struct {
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		path:          cfg.Path,
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize applies the current file contents and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg opskit.PluginConfig) error {
	p.mu.Lock()
	p.pipeline = cfg.Pipeline
	p.logger = log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	p.mu.Unlock()

	if p.path == "" || p.pipeline == nil {
		p.logger.Warn("config watcher disabled: no path or pipeline configured")
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchLoop watches the file's directory so that editors replacing the
// file by rename are still observed.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("config watcher: failed to create watcher", log.Err(err))
		return
	}
	defer watcher.Close()

	if !p.addWithRetry(ctx, watcher) {
		return
	}

	p.apply()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceApply(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

// addWithRetry watches the file's directory, retrying until it exists or
// ctx is done.
func (p *Plugin) addWithRetry(ctx context.Context, watcher *fsnotify.Watcher) bool {
	dir := filepath.Dir(p.path)
	for {
		err := watcher.Add(dir)
		if err == nil {
			return true
		}
		p.logger.Warn("config watcher: failed to watch directory",
			log.String("dir", dir),
			log.String("code", errorToCode(err)),
			log.Err(err),
		)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.retryInterval):
		}
	}
}

func (p *Plugin) debounceApply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.apply()
	})
}

// apply reads the file and sets the pipeline level. Failures are logged
// and leave the current level in place.
func (p *Plugin) apply() {
	level, err := readLevel(p.path)
	if err != nil {
		p.logger.Error("config watcher: failed to load config",
			log.String("path", p.path),
			log.String("code", errorToCode(err)),
			log.Err(err),
		)
		return
	}
	if level == nil {
		p.logger.Debug("config watcher: no log level configured", log.String("path", p.path))
		return
	}

	prev := p.pipeline.Level()
	if prev == *level {
		return
	}
	if err := p.pipeline.SetLevel(*level); err != nil {
		p.logger.Error("config watcher: failed to set level", log.Err(err))
		return
	}
	p.logger.Info("config watcher: log level changed",
		log.Stringer("from", prev),
		log.Stringer("to", *level),
	)
}

// parseError marks a file that was read but could not be decoded.
type parseError struct{ err error }

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// readLevel returns the level configured in path, or nil if the file sets none.
func readLevel(path string) (*logpipe.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, &parseError{fmt.Errorf("decode %s: %w", path, err)}
	}
	if fc.Log.Level == "" {
		return nil, nil
	}

	level, err := logpipe.ParseLevel(fc.Log.Level)
	if err != nil {
		return nil, &parseError{err}
	}
	return &level, nil
}

func errorToCode(err error) string {
	var pe *parseError
	switch {
	case errors.As(err, &pe):
		return ErrCodeParseError
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrCodePermissionDenied
	default:
		return ErrCodeReadError
	}
}

// Ensure Plugin implements opskit.Plugin.
var _ opskit.Plugin = (*Plugin)(nil)
