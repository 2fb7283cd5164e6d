// Package log provides structured logging for vsixsync.
//
// Components take a Logger through their options so tests can observe or
// silence output. The CLI installs a process-wide default at startup.
//
// Output semantics:
//   - User output (stdout): sync reports, status tables, prompts
//   - Diagnostic logging (stderr): Debug, Info, Warn, Error messages
//
// Verbosity levels:
//   - ERROR (--quiet): errors only
//   - WARN (default): warnings and user output
//   - INFO (--verbose): per-package progress such as resolved versions
//   - DEBUG (--debug): HTTP hops, subprocess arguments, store keys
package log

import (
	"io"
	"log/slog"
	"sync"
)

// Logger is the interface for structured logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs internal details only useful for troubleshooting,
	// such as redirect targets or the exact host tool arguments.
	Debug(msg string, args ...any)

	// Info logs operational context like "resolved latest release".
	Info(msg string, args ...any)

	// Warn logs recoverable issues like a failed extension listing.
	Warn(msg string, args ...any)

	// Error logs failures that end a package reconciliation.
	Error(msg string, args ...any)

	// With returns a Logger that adds the given key-value pairs
	// to every entry.
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewText creates a text Logger writing to w at the given level.
func NewText(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger configured at startup.
// Returns a noop logger if SetDefault has not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. Called once from main after the
// verbosity flags are parsed.
func SetDefault(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
