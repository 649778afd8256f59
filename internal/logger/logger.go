// Package logger is the process-wide structured logger: slog fanned out to
// the console and an optional rotating file, with trace correlation.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelAlways is above Error so audit records (boss kills, deaths) pass any filter.
const LevelAlways = slog.Level(12)

var (
	logger *slog.Logger
)

// Initialize sets up the logger with the provided configuration and makes
// it the slog default.
func Initialize(config Config) error {
	level := parseLogLevel(config.Level)

	var handlers []slog.Handler
	if config.ConsoleEnabled {
		handlers = append(handlers, newHandler(os.Stdout, config.ConsoleFormat, level))
	}
	if config.FileEnabled {
		handlers = append(handlers, newHandler(&lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.FileMaxSizeMB,
			MaxBackups: config.FileMaxBackups,
			MaxAge:     config.FileMaxAgeDays,
		}, config.FileFormat, level))
	}
	if len(handlers) == 0 {
		handlers = append(handlers, newHandler(os.Stdout, "text", level))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = newMultiHandler(handlers...)
	}
	logger = slog.New(&traceHandler{Handler: h})
	slog.SetDefault(logger)
	return nil
}

// Logger returns the configured logger, or slog's default before Initialize.
func Logger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelAlways {
					a.Value = slog.StringValue("ALWAYS")
				}
			}
			return a
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "ALWAYS":
		return LevelAlways
	default:
		return slog.LevelInfo
	}
}

func logCtx(ctx context.Context, level slog.Level, msg string, args ...any) {
	if logger != nil {
		logger.Log(ctx, level, msg, args...)
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	logCtx(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	logCtx(context.Background(), slog.LevelInfo, msg, args...)
}

// Warning logs a warning message
func Warning(msg string, args ...any) {
	logCtx(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	logCtx(context.Background(), slog.LevelError, msg, args...)
}

// Always logs a message that bypasses log level filtering.
func Always(msg string, args ...any) {
	logCtx(context.Background(), LevelAlways, msg, args...)
}

// DebugContext logs at debug with the trace of ctx attached.
func DebugContext(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelDebug, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelInfo, msg, args...)
}

func WarningContext(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelWarn, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelError, msg, args...)
}

func AlwaysContext(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelAlways, msg, args...)
}

// traceHandler adds trace_id and span_id when the record's context carries
// a recording span.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// multiHandler writes to multiple underlying handlers
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

// Enabled reports whether any handler handles records at the given level
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return newMultiHandler(handlers...)
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return newMultiHandler(handlers...)
}
