// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that the agent loop, runner and checkpoint stores use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger with a component tag and custom attributes
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	a, err := agent.New("calendar", gw, func(o *agent.Options) { o.Logger = logger })
//
// Messages are dotted event names ("agent.model.call") followed by slog style
// key/value pairs.
package logging
