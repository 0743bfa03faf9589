// Package logger configures the process-wide zerolog logger and carries
// request-scoped loggers through context.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"
	// LoggerKey is the context key for the request logger.
	LoggerKey contextKey = "logger"
)

var globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// InitWithFile logs to stderr and to a rotated file. The returned closer
// releases the file.
func InitWithFile(filename, level, format string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	Init(Config{
		Level:  level,
		Format: format,
		Output: io.MultiWriter(os.Stderr, logFile),
	})
	return logFile, nil
}

// Init replaces the global logger.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "2006-01-02 15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-5s", i))
			},
		}
	}
	globalLogger = zerolog.New(output).With().Timestamp().Logger()
}

// ParseLevel converts a level name; unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestID returns a context carrying requestID and a logger that
// tags every event with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, &l)
}

// WithFields returns a context whose logger carries the extra fields.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return context.WithValue(ctx, LoggerKey, &l)
}

// FromContext returns the context logger, or the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok && l != nil {
		return l
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		l := globalLogger.With().Str("request_id", id).Logger()
		return &l
	}
	return &globalLogger
}

// GetRequestID extracts the request ID from ctx.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func Debug(ctx context.Context) *zerolog.Event { return FromContext(ctx).Debug() }
func Info(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Info() }
func Warn(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Warn() }
func Error(ctx context.Context) *zerolog.Event { return FromContext(ctx).Error() }
