// Package logpipe implements an asynchronous logging pipeline.
//
// Producers call [Pipeline.Log] (or the Errorf-style helpers) from any
// goroutine. Records below the pipeline's threshold return immediately without
// touching shared state. Accepted records are formatted into a fixed-size
// payload and pushed onto a lock-free ring; a separate consumer calls
// [Pipeline.Drain] to hand them to a [Driver].
//
// # Usage
//
//	p, err := logpipe.New("api", 10, nil, logpipe.WithLevel(logpipe.LevelInfo))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	p.Infof("listening on %s", addr)
//
//	// on a dedicated goroutine
//	for range ticker.C {
//	    p.Drain(256)
//	}
//
// # Drivers
//
//   - [Discard]: drops everything
//   - [Tally]: counts records per level
//   - [Console]: zerolog console lines, severe records to stderr
//   - [Syslog]: the system logger, with native severities
//
// A nil driver passed to [New] is built by the process-wide default factory,
// a console driver with a warning threshold unless replaced with
// [SetDefaultFactory].
//
// # Full Ring
//
// Under [PolicyDrop] (the default) a full ring rejects the record with
// [ErrFull] and increments the dropped counter. [PolicyBlock] makes the
// producer yield until the consumer frees a slot.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package logpipe
