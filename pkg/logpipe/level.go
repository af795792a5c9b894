package logpipe

import (
	"strings"

	"github.com/bft-labs/opskit/pkg/errs"
)

// Level is a syslog severity. Lower values are more severe.
type Level int32

const (
	// LevelEmergency means the system is unusable.
	LevelEmergency Level = iota
	// LevelAlert means action must be taken immediately.
	LevelAlert
	// LevelCritical is a critical condition.
	LevelCritical
	// LevelError is an error condition.
	LevelError
	// LevelWarning is a warning condition.
	LevelWarning
	// LevelNotice is a normal but significant condition.
	LevelNotice
	// LevelInfo is informational.
	LevelInfo
	// LevelDebug is debug output.
	LevelDebug

	levelCount
)

// DefaultLevel is the threshold of a newly created pipeline.
const DefaultLevel = LevelNotice

var levelLabels = [levelCount]string{
	LevelEmergency: "emergency",
	LevelAlert:     "alert",
	LevelCritical:  "critical",
	LevelError:     "error",
	LevelWarning:   "warning",
	LevelNotice:    "notice",
	LevelInfo:      "info",
	LevelDebug:     "debug",
}

func (l Level) String() string {
	if !l.Valid() {
		return "unknown"
	}
	return levelLabels[l]
}

// Valid reports whether l is one of the eight severities.
func (l Level) Valid() bool {
	return l >= LevelEmergency && l < levelCount
}

// Levels returns every severity, most severe first.
func Levels() []Level {
	return []Level{LevelEmergency, LevelAlert, LevelCritical, LevelError, LevelWarning, LevelNotice, LevelInfo, LevelDebug}
}

// ParseLevel parses a severity name. Common syslog abbreviations are accepted.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "emergency", "emerg":
		return LevelEmergency, nil
	case "alert":
		return LevelAlert, nil
	case "critical", "crit":
		return LevelCritical, nil
	case "error", "err":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "notice":
		return LevelNotice, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, errs.Invalid("unknown log level " + s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, errs.Invalid("unknown log level")
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so levels can be read from TOML.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}
