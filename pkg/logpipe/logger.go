package logpipe

import (
	"github.com/bft-labs/opskit/pkg/log"
)

// NewLogger returns a log.Logger that writes through p. Fields are rendered as
// key=value pairs after the message. Failures such as a full ring are counted
// by the pipeline and otherwise ignored.
func NewLogger(p *Pipeline) log.Logger {
	return &pipeLogger{p: p}
}

type pipeLogger struct {
	p      *Pipeline
	fields []log.Field
}

func (l *pipeLogger) Debug(msg string, fields ...log.Field) { l.log(LevelDebug, msg, fields) }
func (l *pipeLogger) Info(msg string, fields ...log.Field)  { l.log(LevelInfo, msg, fields) }
func (l *pipeLogger) Warn(msg string, fields ...log.Field)  { l.log(LevelWarning, msg, fields) }
func (l *pipeLogger) Error(msg string, fields ...log.Field) { l.log(LevelError, msg, fields) }

func (l *pipeLogger) With(fields ...log.Field) log.Logger {
	merged := make([]log.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &pipeLogger{p: l.p, fields: merged}
}

func (l *pipeLogger) log(level Level, msg string, fields []log.Field) {
	if !l.p.Enabled(level) {
		return
	}
	origin := caller(2)

	if len(l.fields)+len(fields) == 0 {
		_ = l.p.enqueue(level, origin, "%s", []any{msg})
		return
	}

	var b line
	b.writeString(msg)
	for _, set := range [][]log.Field{l.fields, fields} {
		for _, f := range set {
			if b.full() {
				break
			}
			b.writeString(" ")
			if v, ok := f.Value.(string); ok {
				b.writeString(f.Key)
				b.writeString("=")
				b.writeString(v)
			} else {
				b.writeString(f.String())
			}
		}
	}
	_ = l.p.enqueue(level, origin, "%s", []any{b.bytes()})
}

// line accumulates a message with fields, keeping only what a record can
// hold plus one rune to mark it truncated.
type line struct {
	buf [argLimit]byte
	n   int
}

func (b *line) writeString(s string) {
	b.n += copy(b.buf[b.n:], s)
}

func (b *line) full() bool { return b.n == len(b.buf) }

func (b *line) bytes() []byte { return b.buf[:b.n] }
