// Package logger provides the application's structured JSON logger: a
// thin wrapper over log/slog with typed fields and domain helpers for
// the identifiers that show up in almost every tracker log line
// (trainee login, course, batch, run).
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelFatal logs and terminates the process.
	LevelFatal
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field in human-readable form.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates a time field in RFC3339.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Domain field helpers.
func TraineeLogin(login string) Field  { return String("trainee_login", login) }
func ReviewerLogin(login string) Field { return String("reviewer_login", login) }
func CourseName(name string) Field     { return String("course", name) }
func BatchSlug(slug string) Field      { return String("batch", slug) }
func RunID(id string) Field            { return String("run_id", id) }
func ScoreValue(score int) Field       { return Int("score", score) }
func Component(name string) Field      { return String("component", name) }

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// Options configures the logger.
type Options struct {
	// Output is where log lines go (default: stdout).
	Output io.Writer

	// Level is the minimum level that gets written.
	Level Level

	// AddCaller includes the file:line of the log call.
	AddCaller bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     LevelInfo,
		AddCaller: true,
	}
}

// Logger writes structured JSON log lines.
type Logger struct {
	handler   slog.Handler
	addCaller bool
}

// New creates a Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	handler := slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
		Level:     opts.Level.slog(),
		AddSource: opts.AddCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// FATAL is our own level above slog's range.
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl > slog.LevelError {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	})
	return &Logger{handler: handler, addCaller: opts.AddCaller}
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a Logger that attaches the given fields to every line.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{
		handler:   l.handler.WithAttrs(toAttrs(fields)),
		addCaller: l.addCaller,
	}
}

// emit builds the record by hand so AddSource points at the caller of
// Info/Error, not at this package.
func (l *Logger) emit(level Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level.slog()) {
		return
	}

	var pc uintptr
	if l.addCaller {
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:]) // emit -> Info/Warn/... -> caller
		pc = pcs[0]
	}

	record := slog.NewRecord(time.Now(), level.slog(), msg, pc)
	record.AddAttrs(toAttrs(fields)...)
	_ = l.handler.Handle(ctx, record)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(LevelDebug, msg, fields)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(LevelError, msg, fields)
}

// Fatal logs a fatal message and exits the program.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.emit(LevelFatal, msg, fields)
	os.Exit(1)
}
