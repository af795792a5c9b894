//go:build !windows && !plan9

package logpipe

import (
	"fmt"
	"log/syslog"

	"github.com/bft-labs/opskit/pkg/errs"
)

// SyslogWriter is the subset of *syslog.Writer used by the Syslog driver.
type SyslogWriter interface {
	Emerg(m string) error
	Alert(m string) error
	Crit(m string) error
	Err(m string) error
	Warning(m string) error
	Notice(m string) error
	Info(m string) error
	Debug(m string) error
	Close() error
}

// SyslogDialer opens a connection to a syslog daemon.
type SyslogDialer func(network, raddr string, priority syslog.Priority, tag string) (SyslogWriter, error)

// SyslogConfig configures the Syslog driver.
type SyslogConfig struct {
	// Network and Addr select the daemon; both empty means the local one.
	Network string
	Addr    string
	// Tag is the program identity; empty means os.Args[0].
	Tag      string
	Facility syslog.Priority
	// Dial replaces syslog.Dial, mainly for tests.
	Dial SyslogDialer
}

// Syslog forwards records to the system logger with their native severity.
type Syslog struct {
	cfg SyslogConfig
	w   SyslogWriter
}

// NewSyslog returns a syslog driver. The connection is made by Open.
func NewSyslog(cfg SyslogConfig) *Syslog {
	if cfg.Facility == 0 {
		cfg.Facility = syslog.LOG_USER
	}
	if cfg.Dial == nil {
		cfg.Dial = dialSyslog
	}
	return &Syslog{cfg: cfg}
}

func dialSyslog(network, raddr string, priority syslog.Priority, tag string) (SyslogWriter, error) {
	return syslog.Dial(network, raddr, priority, tag)
}

// Open registers with the syslog daemon.
func (s *Syslog) Open() error {
	w, err := s.cfg.Dial(s.cfg.Network, s.cfg.Addr, s.cfg.Facility|syslog.LOG_INFO, s.cfg.Tag)
	if err != nil {
		return fmt.Errorf("syslog: %w", err)
	}
	s.w = w
	return nil
}

// Process sends one message at the record's severity.
func (s *Syslog) Process(rec *Record) error {
	if s.w == nil {
		return errs.Invalid("syslog driver not open")
	}

	msg := fmt.Sprintf("%s {file: %s, func: %s, line: %d} %s",
		rec.Logger, rec.Origin.File, rec.Origin.Function, rec.Origin.Line, rec.Message())

	switch rec.Level {
	case LevelEmergency:
		return s.w.Emerg(msg)
	case LevelAlert:
		return s.w.Alert(msg)
	case LevelCritical:
		return s.w.Crit(msg)
	case LevelError:
		return s.w.Err(msg)
	case LevelWarning:
		return s.w.Warning(msg)
	case LevelNotice:
		return s.w.Notice(msg)
	case LevelInfo:
		return s.w.Info(msg)
	case LevelDebug:
		return s.w.Debug(msg)
	}
	return errs.Invalid("unknown log level")
}

// Close deregisters from the syslog daemon.
func (s *Syslog) Close() error {
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
