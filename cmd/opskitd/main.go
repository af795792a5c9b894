package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/opskit/internal/cliconfig"
	"github.com/bft-labs/opskit/pkg/health"
	"github.com/bft-labs/opskit/pkg/lifecycle"
	"github.com/bft-labs/opskit/pkg/listener"
	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/opskit"
	"github.com/bft-labs/opskit/plugins/configwatcher"
	"github.com/bft-labs/opskit/plugins/resourcegating"
)

const helpDescription = `
Run an opskit service: a lifecycle state machine and an asynchronous log
pipeline drained to a console, syslog or discard driver.

Highlights:
  - Producers never block on I/O; a full buffer drops (and counts) by default.
  - Log threshold reloads live from the [log] table of the config file.
  - Prometheus metrics for the pipeline and lifecycle on /metrics, health on /healthz.
  - Configure via file, env (OPSKIT_*), or flags.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  opskitd --name api --level info
  opskitd --config $HOME/.opskit/config.toml --driver syslog --syslog-addr localhost:514
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "opskitd",
		Short:   "Run an opskit service with an asynchronous log pipeline",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s (opskit %s) %s/%s", getVersion(), opskit.Version, runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			haveFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if haveFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Info().Interface("config", cfg).Msg("configuration")

			if !haveFile {
				cfgFile = ""
			}
			return run(cmd.Context(), cfg, cfgFile, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.opskit/config.toml)")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "service name, used as pipeline name and metrics label")
	root.Flags().StringVar(&cfg.Environment, "environment", cfg.Environment, "deployment environment label (optional)")

	root.Flags().StringVar(&cfg.Level, "level", cfg.Level, "initial pipeline level (emergency..debug)")
	root.Flags().StringVar(&cfg.FullPolicy, "full-policy", cfg.FullPolicy, "behavior when the buffer is full: drop or block")
	root.Flags().IntVar(&cfg.RingExponent, "ring-exponent", cfg.RingExponent, "buffer holds 2^N records")
	root.Flags().BoolVar(&cfg.DiscardOnClose, "discard-on-close", cfg.DiscardOnClose, "drop buffered records at shutdown instead of flushing")
	root.Flags().DurationVar(&cfg.DrainInterval, "drain-interval", cfg.DrainInterval, "base wait between drains")
	root.Flags().IntVar(&cfg.DrainBatch, "drain-batch", cfg.DrainBatch, "maximum records per drain")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "maximum time to wait for the drain worker on stop")

	root.Flags().StringVar(&cfg.Driver, "driver", cfg.Driver, "log driver: console, syslog or discard")
	root.Flags().StringVar(&cfg.Threshold, "threshold", cfg.Threshold, "console: records at this level or worse go to stderr")
	root.Flags().BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "console: disable colors")
	root.Flags().StringVar(&cfg.SyslogNetwork, "syslog-network", cfg.SyslogNetwork, "syslog: network (empty for the local daemon)")
	root.Flags().StringVar(&cfg.SyslogAddr, "syslog-addr", cfg.SyslogAddr, "syslog: address (empty for the local daemon)")
	root.Flags().StringVar(&cfg.SyslogTag, "syslog-tag", cfg.SyslogTag, "syslog: tag (defaults to name)")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "listen address for /metrics and /healthz (empty disables)")
	root.Flags().DurationVar(&cfg.HeartbeatInterval, "heartbeat", cfg.HeartbeatInterval, "interval of the heartbeat record (0 disables)")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload the [log] level when the config file changes")
	root.Flags().BoolVar(&cfg.GateLogs, "gate-logs", cfg.GateLogs, "raise the level to warning while the buffer is under pressure")

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("opskitd")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, cfgFile string, zl zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	driver, err := buildDriver(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	adapter := log.NewZerologAdapterWithLogger(zl)
	opts := []opskit.Option{
		opskit.WithLogger(adapter),
		opskit.WithDriver(driver),
		opskit.WithRegisterer(reg),
	}
	if cfg.WatchConfig && cfgFile != "" {
		opts = append(opts, configwatcher.WithDefaultConfigWatcher(cfgFile))
	}
	if cfg.GateLogs {
		opts = append(opts, resourcegating.WithDefaultResourceGating())
	}

	svc, err := opskit.New(cfg.ServiceConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer svc.Close()

	if _, err := svc.Lifecycle().Register("transitions", recordTransitions(svc.Pipeline())); err != nil {
		return err
	}

	check, err := pipelineCheck(svc.Pipeline())
	if err != nil {
		return err
	}
	check.Disable()
	if _, err := svc.Lifecycle().Register("health:pipeline", health.FollowLifecycle(check)); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = newHTTPServer(cfg.MetricsAddr, reg, svc, check)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server failed")
				cancel()
			}
		}()
		zl.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	if cfg.HeartbeatInterval > 0 {
		go heartbeat(ctx, svc, cfg.HeartbeatInterval)
	}

	select {
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
	case <-ctx.Done():
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	return nil
}

// heartbeat writes a notice record through the pipeline at every interval.
func heartbeat(ctx context.Context, svc *opskit.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := svc.Pipeline().Stats()
			_ = svc.Pipeline().Noticef("heartbeat uptime=%s buffered=%d dropped=%d",
				time.Since(start).Round(time.Second), st.Buffered, st.Dropped)
		}
	}
}

// recordTransitions writes every lifecycle transition through the pipeline.
// Transitions after the pipeline closed are not recorded.
func recordTransitions(p *logpipe.Pipeline) listener.Observer[lifecycle.Event] {
	return listener.ObserverFunc[lifecycle.Event](func(ev lifecycle.Event) error {
		err := p.Noticef("lifecycle %s at %s", ev.State, ev.Epoch.Format(time.RFC3339Nano))
		if errors.Is(err, logpipe.ErrClosed) {
			return nil
		}
		return err
	})
}
