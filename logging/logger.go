// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug in
// any structured logger. A contextual CoreLogger adds component/session
// attributes for the orchestration pipeline.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal logging interface used throughout agentcore.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards all log messages. Useful for tests or when logging is
// disabled; it is the default everywhere a Logger option is left nil.
type NoOpLogger struct{}

// Debug implements Logger.
func (NoOpLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NoOpLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NoOpLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NoOpLogger) Error(string, ...any) {}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// Config configures construction of a CoreLogger.
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns a baseline JSON info-level configuration.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// CoreLogger is a slog-backed Logger that stamps every record with the
// component / session / run identifiers attached via With* methods.
type CoreLogger struct {
	logger *slog.Logger
}

// NewLogger builds a CoreLogger from a config (or defaults if nil).
func NewLogger(cfg *Config) *CoreLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	logger := slog.New(handler)
	if cfg.Component != "" {
		logger = logger.With(slog.String("component", cfg.Component))
	}
	return &CoreLogger{logger: logger}
}

// WithComponent returns a logger stamping the logical component
// (engine, bus, processor, store, ...) on every record.
func (l *CoreLogger) WithComponent(component string) *CoreLogger {
	return &CoreLogger{logger: l.logger.With(slog.String("component", component))}
}

// WithSession attaches session and run identifiers.
func (l *CoreLogger) WithSession(sessionID, runID string) *CoreLogger {
	return &CoreLogger{logger: l.logger.With(
		slog.String("session_id", sessionID),
		slog.String("run_id", runID),
	)}
}

// Debug implements Logger.
func (l *CoreLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info implements Logger.
func (l *CoreLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn implements Logger.
func (l *CoreLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error implements Logger.
func (l *CoreLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
