package logpipe

import (
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPayload is the capacity of a record's message in bytes.
const MaxPayload = 256

// argLimit bounds string and byte slice arguments before formatting. The
// extra rune keeps an overflowing argument detectable as truncation.
const argLimit = MaxPayload + utf8.UTFMax

// Origin identifies the call site that produced a record.
type Origin struct {
	File     string
	Function string
	Line     int
}

// String renders the origin as file:line.
func (o Origin) String() string {
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

// Here returns the origin of its caller.
func Here() Origin {
	return caller(1)
}

// caller captures the origin skip frames above its own caller.
func caller(skip int) Origin {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Origin{}
	}
	o := Origin{File: path.Base(file), Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		o.Function = path.Base(fn.Name())
	}
	return o
}

// Record is one log entry as buffered in the pipeline.
// Messages longer than MaxPayload are truncated on a UTF-8 boundary.
type Record struct {
	Time   time.Time
	Level  Level
	Logger string
	Origin Origin
	PID    int
	TID    int

	payload   [MaxPayload]byte
	n         uint16
	truncated bool
}

// Message returns the formatted message.
func (r *Record) Message() string {
	return string(r.payload[:r.n])
}

// Truncated reports whether the message was cut to fit MaxPayload.
func (r *Record) Truncated() bool {
	return r.truncated
}

// SetMessage formats into the payload, truncating on overflow.
//
// String and []byte arguments longer than the payload are cut before
// formatting, so their size does not change the cost of the call. A width
// verb such as %300s pads the cut argument.
func (r *Record) SetMessage(format string, args ...any) {
	r.n = 0
	r.truncated = false
	switch {
	case len(args) == 0 && strings.IndexByte(format, '%') < 0:
		r.writeString(format)
	case format == "%s" && len(args) == 1 && r.writePlain(args[0]):
	default:
		r.format(format, args)
	}
	r.trimRune()
}

// writePlain copies a string or []byte argument without formatting.
func (r *Record) writePlain(arg any) bool {
	switch v := arg.(type) {
	case string:
		r.writeString(v)
	case []byte:
		_, _ = r.Write(v)
	default:
		return false
	}
	return true
}

func (r *Record) format(format string, args []any) {
	var small [8]any
	cut := small[:0]
	if len(args) > len(small) {
		cut = make([]any, 0, len(args))
	}
	for _, a := range args {
		switch v := a.(type) {
		case string:
			if len(v) > argLimit {
				a = cutArg(v)
			}
		case []byte:
			if len(v) > argLimit {
				a = cutArg(v)
			}
		}
		cut = append(cut, a)
	}
	fmt.Fprintf(r, format, cut...)
}

// cutArg shortens s to at most argLimit bytes on a rune boundary.
func cutArg[T string | []byte](s T) T {
	if len(s) <= argLimit {
		return s
	}
	n := argLimit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (r *Record) writeString(s string) {
	n := copy(r.payload[r.n:], s)
	r.n += uint16(n)
	if n < len(s) {
		r.truncated = true
	}
}

// Write appends to the payload up to its capacity. It never fails; overflow
// is recorded and reported by Truncated.
func (r *Record) Write(p []byte) (int, error) {
	n := copy(r.payload[r.n:], p)
	r.n += uint16(n)
	if n < len(p) {
		r.truncated = true
	}
	return len(p), nil
}

// trimRune drops a trailing partial rune left by truncation.
func (r *Record) trimRune() {
	if !r.truncated || r.n == 0 {
		return
	}
	end := int(r.n)
	start := end - 1
	for start > 0 && end-start < utf8.UTFMax && !utf8.RuneStart(r.payload[start]) {
		start--
	}
	if !utf8.FullRune(r.payload[start:end]) {
		r.n = uint16(start)
	}
}
