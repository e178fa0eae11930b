// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing callers to plug
// in any structured logger. It also offers a richer KernelLogger with
// contextual cloning helpers (run, component) and domain-specific logging
// helpers for agent invocations, retries, breaker transitions, router
// decisions and checkpoint writes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user-friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface the kernel depends on. This
// allows callers to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.Logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.Logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// KernelLogger wraps slog.Logger, adding contextual cloning helpers and
// orchestration-domain convenience methods. Cheap to copy via With* methods.
type KernelLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]interface{}
	component string
	threadID  string
	runID     string
}

// Config configures construction of a KernelLogger.
type Config struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	ThreadID    string
	RunID       string
	CustomAttrs map[string]interface{}
}

// DefaultConfig returns a baseline JSON info-level configuration.
func DefaultConfig() *Config {
	return &Config{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true, CustomAttrs: map[string]interface{}{}}
}

// NewLogger builds a KernelLogger from a config (or defaults if nil).
func NewLogger(cfg *Config) *KernelLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &KernelLogger{
		logger:    slog.New(handler),
		level:     cfg.Level,
		context:   map[string]interface{}{},
		component: cfg.Component,
		threadID:  cfg.ThreadID,
		runID:     cfg.RunID,
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *KernelLogger) clone() *KernelLogger {
	nl := *l
	nl.context = make(map[string]interface{}, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute attached to every subsequent log entry.
func (l *KernelLogger) WithContext(key string, value interface{}) *KernelLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (supervisor, executor, router, ...).
func (l *KernelLogger) WithComponent(c string) *KernelLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithRun attaches thread and run identifiers.
func (l *KernelLogger) WithRun(threadID, runID string) *KernelLogger {
	nl := l.clone()
	nl.threadID = threadID
	nl.runID = runID
	return nl
}

func (l *KernelLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+4)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.threadID != "" {
		attrs = append(attrs, slog.String("thread_id", l.threadID))
	}
	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *KernelLogger) log(level slog.Level, allowed bool, msg string, args ...interface{}) {
	if !allowed {
		return
	}
	attrs := l.buildAttrs()
	logger := l.logger
	if len(args) > 0 {
		logger = logger.With(args...)
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *KernelLogger) Debug(msg string, args ...interface{}) { l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...) }
func (l *KernelLogger) Info(msg string, args ...interface{})  { l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...) }
func (l *KernelLogger) Warn(msg string, args ...interface{})  { l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...) }
func (l *KernelLogger) Error(msg string, args ...interface{}) { l.log(slog.LevelError, l.level <= LogLevelError, msg, args...) }

// LogAgentInvocation records the outcome of a single agent invocation.
func (l *KernelLogger) LogAgentInvocation(agent string, dur time.Duration, status string, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("agent", agent), slog.Duration("duration", dur), slog.String("status", status))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level, msg := slog.LevelInfo, "agent invocation completed"
	if status == "error" {
		level, msg = slog.LevelError, "agent invocation failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogRetryAttempt records a single failed attempt before a retry sleep.
func (l *KernelLogger) LogRetryAttempt(agent string, attempt int, delay time.Duration, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("agent", agent), slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error", err.Error()))
	l.logger.LogAttrs(context.Background(), slog.LevelWarn, "agent attempt failed, retrying", attrs...)
}

// LogBreakerTransition records a circuit breaker state change.
func (l *KernelLogger) LogBreakerTransition(agent, from, to string) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("agent", agent), slog.String("from", from), slog.String("to", to))
	l.logger.LogAttrs(context.Background(), slog.LevelWarn, "circuit breaker transitioned", attrs...)
}

// LogRouterDecision records the router's decision for the current node.
func (l *KernelLogger) LogRouterDecision(currentAgent, nextNode, rule string) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("current_agent", currentAgent), slog.String("next_node", nextNode), slog.String("rule", rule))
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "router decision", attrs...)
}

// LogCheckpointWrite records a checkpoint persistence event.
func (l *KernelLogger) LogCheckpointWrite(threadID, checkpointID string, dur time.Duration, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("thread_id", threadID), slog.String("checkpoint_id", checkpointID), slog.Duration("duration", dur))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.LogAttrs(context.Background(), slog.LevelError, "checkpoint write failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "checkpoint written", attrs...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *KernelLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("operation completed", "operation", op, "duration", time.Since(start)) }
}

// NoOpLogger discards all log messages. Useful for tests or when logging is disabled.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new KernelLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *KernelLogger {
	cfg := DefaultConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}
