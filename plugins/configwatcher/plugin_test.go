package configwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/opskit"
)

func newTestPipeline(t *testing.T) *logpipe.Pipeline {
	t.Helper()
	p, err := logpipe.New("watch", 4, logpipe.NewDiscard())
	if err != nil {
		t.Fatalf("logpipe.New failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func waitForLevel(t *testing.T, p *logpipe.Pipeline, want logpipe.Level) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Level() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Level = %v, want %v", p.Level(), want)
}

func startPlugin(t *testing.T, cfg Config, pipeline *logpipe.Pipeline) *Plugin {
	t.Helper()
	plugin := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	err := plugin.Initialize(ctx, opskit.PluginConfig{
		ServiceName: "test",
		Pipeline:    pipeline,
		Logger:      log.NewNoopLogger(),
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = plugin.Shutdown(context.Background()) })
	return plugin
}

func TestPlugin_AppliesInitialLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opskit.toml")
	writeConfig(t, path, "[log]\nlevel = \"debug\"\n")

	pipeline := newTestPipeline(t)
	startPlugin(t, Config{Path: path, DebounceDelay: 10 * time.Millisecond}, pipeline)

	waitForLevel(t, pipeline, logpipe.LevelDebug)
}

func TestPlugin_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opskit.toml")
	writeConfig(t, path, "[log]\nlevel = \"info\"\n")

	pipeline := newTestPipeline(t)
	startPlugin(t, Config{Path: path, DebounceDelay: 10 * time.Millisecond}, pipeline)
	waitForLevel(t, pipeline, logpipe.LevelInfo)

	writeConfig(t, path, "[log]\nlevel = \"crit\"\n")
	waitForLevel(t, pipeline, logpipe.LevelCritical)
}

func TestPlugin_InvalidFileKeepsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opskit.toml")
	writeConfig(t, path, "[log]\nlevel = \"warning\"\n")

	pipeline := newTestPipeline(t)
	startPlugin(t, Config{Path: path, DebounceDelay: 10 * time.Millisecond}, pipeline)
	waitForLevel(t, pipeline, logpipe.LevelWarning)

	writeConfig(t, path, "[log]\nlevel = \"chatty\"\n")
	time.Sleep(100 * time.Millisecond)
	if pipeline.Level() != logpipe.LevelWarning {
		t.Errorf("Level = %v after invalid level, want warning", pipeline.Level())
	}

	writeConfig(t, path, "[log\nlevel =")
	time.Sleep(100 * time.Millisecond)
	if pipeline.Level() != logpipe.LevelWarning {
		t.Errorf("Level = %v after malformed file, want warning", pipeline.Level())
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opskit.toml")
	writeConfig(t, path, "[log]\nlevel = \"error\"\n")

	pipeline := newTestPipeline(t)
	startPlugin(t, Config{Path: path, DebounceDelay: 10 * time.Millisecond}, pipeline)
	waitForLevel(t, pipeline, logpipe.LevelError)

	writeConfig(t, filepath.Join(dir, "other.toml"), "[log]\nlevel = \"debug\"\n")
	time.Sleep(100 * time.Millisecond)
	if pipeline.Level() != logpipe.LevelError {
		t.Errorf("Level = %v, unrelated file should be ignored", pipeline.Level())
	}
}

func TestPlugin_MissingDirectoryRetries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	path := filepath.Join(dir, "opskit.toml")

	pipeline := newTestPipeline(t)
	startPlugin(t, Config{
		Path:          path,
		RetryInterval: 20 * time.Millisecond,
		DebounceDelay: 10 * time.Millisecond,
	}, pipeline)

	time.Sleep(50 * time.Millisecond)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	writeConfig(t, path, "[log]\nlevel = \"alert\"\n")

	waitForLevel(t, pipeline, logpipe.LevelAlert)
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig()).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q, want configwatcher", got)
	}
}

func TestPlugin_DisabledWhenPathEmpty(t *testing.T) {
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), opskit.PluginConfig{
		Pipeline: newTestPipeline(t),
		Logger:   log.NewNoopLogger(),
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if plugin.cancel != nil {
		t.Error("watcher should not start without a path")
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestReadLevel(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "none.toml")
	writeConfig(t, path, "[other]\nkey = 1\n")
	level, err := readLevel(path)
	if err != nil || level != nil {
		t.Errorf("readLevel() = %v, %v; want nil, nil", level, err)
	}

	path = filepath.Join(dir, "notice.toml")
	writeConfig(t, path, "[log]\nlevel = \"NOTICE\"\n")
	level, err = readLevel(path)
	if err != nil || level == nil || *level != logpipe.LevelNotice {
		t.Errorf("readLevel() = %v, %v; want notice", level, err)
	}
}

func TestErrorToCode(t *testing.T) {
	_, missing := readLevel(filepath.Join(t.TempDir(), "absent.toml"))

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing", missing, ErrCodeFileNotFound},
		{"permission", &os.PathError{Op: "open", Path: "x", Err: syscall.EACCES}, ErrCodePermissionDenied},
		{"parse", &parseError{errors.New("bad")}, ErrCodeParseError},
		{"other", errors.New("io"), ErrCodeReadError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorToCode(tt.err); got != tt.want {
				t.Errorf("errorToCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithConfigWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opskit.toml")
	writeConfig(t, path, "[log]\nlevel = \"debug\"\n")

	svc, err := opskit.New(opskit.Config{Name: "watched", Level: "warning"},
		opskit.WithDriver(logpipe.NewDiscard()),
		WithDefaultConfigWatcher(path),
	)
	if err != nil {
		t.Fatalf("opskit.New failed: %v", err)
	}
	defer svc.Close()

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForLevel(t, svc.Pipeline(), logpipe.LevelDebug)
}
