// Package log provides the structured logging abstraction used by opskit components.
//
// Components never import a concrete logging library; they accept a [Logger]
// and log with typed [Field] values. A zerolog adapter is provided for
// processes that want console output, a no-op logger for libraries and tests,
// and pkg/logpipe offers a bridge that routes the same calls through an
// asynchronous pipeline.
//
// # Usage
//
// Console output on stderr:
//
//	logger := log.NewZerologAdapter(os.Stderr, "info")
//
// Attach component fields once:
//
//	l := logger.With(log.String("component", "drainer"))
//	l.Warn("driver failed", log.Err(err), log.Int("records", n))
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
