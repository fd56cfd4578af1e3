package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog *slog.Logger
	file io.Closer
}

// New creates a new Logger with the given configuration.
// A configured log file is opened for appending; the terminal handler and
// the file handler receive every record through a fanout.
func New(config Config) (*Logger, error) {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	logger := &Logger{}

	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger.file = f
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(f, opts))
	}

	logger.slog = slog.New(handler)
	return logger, nil
}

// Discard creates a logger that drops every record
func Discard() *Logger {
	logger, _ := New(Config{Level: LevelError, Output: io.Discard})
	return logger
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog: l.slog.With(args...),
		file: l.file,
	}
}

// WithError adds error details to the logger.
// Coded errors contribute error_code and suggestions.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With(errorArgs(err)...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// LogError logs msg at error level with the details of err
func (l *Logger) LogError(msg string, err error) {
	if err == nil {
		return
	}
	l.slog.Error(msg, errorArgs(err)...)
}

func errorArgs(err error) []any {
	var pgErr *pgerrors.PhaseguardError
	if !errors.As(err, &pgErr) {
		return []any{"error", err.Error()}
	}

	args := []any{
		"error", pgErr.Message,
		"error_code", string(pgErr.Code),
	}
	if len(pgErr.Suggestions) > 0 {
		args = append(args, "suggestions", pgErr.Suggestions)
	}
	if pgErr.Cause != nil {
		args = append(args, "cause", pgErr.Cause.Error())
	}
	return args
}
