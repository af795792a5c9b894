package logpipe

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/opskit/pkg/errs"
	"github.com/bft-labs/opskit/pkg/label"
)

// ConsoleConfig configures the Console driver.
type ConsoleConfig struct {
	// Threshold routes records at this level or more severe to Stderr,
	// the rest to Stdout.
	Threshold Level
	Stderr    io.Writer
	Stdout    io.Writer
	// NoColor disables ANSI colors.
	NoColor bool
	// Labels are attached to every line.
	Labels []label.Value
}

// DefaultConsoleConfig routes warnings and worse to stderr.
func DefaultConsoleConfig() ConsoleConfig {
	return ConsoleConfig{Threshold: LevelWarning}
}

// Console writes human-readable lines through zerolog's console writer.
type Console struct {
	cfg    ConsoleConfig
	errOut *errWriter
	stdOut *errWriter
	errLog zerolog.Logger
	stdLog zerolog.Logger
	open   bool
}

// NewConsole returns a console driver.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	return &Console{cfg: cfg}
}

// Open builds the writers.
func (c *Console) Open() error {
	if !c.cfg.Threshold.Valid() {
		return errs.Invalid("unknown console threshold")
	}
	c.errOut = &errWriter{w: c.cfg.Stderr}
	c.stdOut = &errWriter{w: c.cfg.Stdout}
	c.errLog = c.newLogger(c.errOut)
	c.stdLog = c.newLogger(c.stdOut)
	c.open = true
	return nil
}

func (c *Console) newLogger(w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    c.cfg.NoColor,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	ctx := zerolog.New(out).With()
	for _, l := range c.cfg.Labels {
		// every line already carries the record's pid
		if l.IsZero() || l.Key() == label.KeyPID {
			continue
		}
		switch l.Type() {
		case label.TypeBool:
			ctx = ctx.Bool(l.Key(), l.BoolValue())
		case label.TypeInt64:
			ctx = ctx.Int64(l.Key(), l.Int64Value())
		default:
			ctx = ctx.Str(l.Key(), l.Str())
		}
	}
	return ctx.Logger()
}

// Process writes one line.
func (c *Console) Process(rec *Record) error {
	if !c.open {
		return errs.Invalid("console driver not open")
	}

	l, w := &c.stdLog, c.stdOut
	if rec.Level <= c.cfg.Threshold {
		l, w = &c.errLog, c.errOut
	}
	w.err = nil

	l.WithLevel(zerologLevel(rec.Level)).
		Time(zerolog.TimestampFieldName, rec.Time).
		Str(zerolog.CallerFieldName, rec.Origin.String()).
		Str("logger", rec.Logger).
		Str("func", rec.Origin.Function).
		Str("severity", rec.Level.String()).
		Int("pid", rec.PID).
		Int("tid", rec.TID).
		Msg(rec.Message())

	return w.err
}

// Close is a no-op; the writers belong to the caller.
func (c *Console) Close() error {
	return nil
}

// zerologLevel maps a severity onto zerolog's smaller level set.
func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelEmergency, LevelAlert:
		return zerolog.PanicLevel
	case LevelCritical:
		return zerolog.FatalLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelNotice, LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// errWriter remembers the last write error so Process can report it.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
