// Package logging is the process-wide structured logger: a compact console
// handler by default, JSON on request, with run IDs carried in contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const runIDKey = "runID"

const runIDCtxKey contextKey = runIDKey

var (
	mu     sync.RWMutex
	logger *slog.Logger
	out    io.Writer = os.Stderr
)

func init() {
	// Logs go to stderr; stdout carries JSON output.
	logger = slog.New(NewCompactHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

func set(l *slog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// SetOutput redirects log output and keeps the compact format at the given
// level.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	out = w
	mu.Unlock()
	SetLevel(level)
}

// SetLevel changes the logging level
func SetLevel(level slog.Level) {
	set(slog.New(NewCompactHandler(writer(), &slog.HandlerOptions{Level: level})))
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(level slog.Level) {
	set(slog.New(slog.NewJSONHandler(writer(), &slog.HandlerOptions{Level: level})))
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewRunID returns a fresh random run ID.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDCtxKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDCtxKey).(string); ok {
		return id
	}
	return ""
}

func withRunID(ctx context.Context, args []any) []any {
	if id := GetRunID(ctx); id != "" {
		return append([]any{runIDKey, id}, args...)
	}
	return args
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	current().DebugContext(ctx, msg, withRunID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	current().InfoContext(ctx, msg, withRunID(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	current().WarnContext(ctx, msg, withRunID(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	current().ErrorContext(ctx, msg, withRunID(ctx, args)...)
}
