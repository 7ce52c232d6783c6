package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// consoleHandler writes messages without timestamps or level prefixes
type consoleHandler struct {
	writer    io.Writer
	debugMode bool
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	msg := record.Message
	record.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.writer, msg)
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// newRotatingLog creates a lumberjack logger, overridable from the environment
func newRotatingLog(logFilePath string) *lumberjack.Logger {
	config := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    1, // megabytes
		MaxBackups: 2,
		MaxAge:     30,
		Compress:   false,
	}

	if maxSizeStr := os.Getenv("GIT_GR_LOG_MAX_SIZE"); maxSizeStr != "" {
		if maxSize, err := strconv.Atoi(maxSizeStr); err == nil && maxSize > 0 {
			config.MaxSize = maxSize
		}
	}

	if maxBackupsStr := os.Getenv("GIT_GR_LOG_MAX_BACKUPS"); maxBackupsStr != "" {
		if maxBackups, err := strconv.Atoi(maxBackupsStr); err == nil && maxBackups >= 0 {
			config.MaxBackups = maxBackups
		}
	}

	if maxAgeStr := os.Getenv("GIT_GR_LOG_MAX_AGE"); maxAgeStr != "" {
		if maxAge, err := strconv.Atoi(maxAgeStr); err == nil && maxAge > 0 {
			config.MaxAge = maxAge
		}
	}

	return config
}

// multiHandler fans out log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// Splog provides structured logging and output.
//
// Human-readable progress goes to stderr so that stdout only carries command
// results (hashes, tables, trees).
type Splog struct {
	logger    *slog.Logger
	writer    io.Writer
	out       io.Writer
	logWriter io.WriteCloser
}

// SplogOptions configures a Splog
type SplogOptions struct {
	// LogFilePath enables the rotating file log when non-empty.
	LogFilePath string
	// Debug enables debug messages on the console. The file log always records them.
	Debug bool
	// Console defaults to os.Stderr.
	Console io.Writer
	// Out defaults to os.Stdout.
	Out io.Writer
}

// NewSplog creates a console-only splog. Debug messages are enabled when
// GIT_GR_DEBUG is set.
func NewSplog() *Splog {
	splog, _ := NewSplogWithOptions(SplogOptions{Debug: DebugFromEnv()})
	return splog
}

// NewDiscardSplog creates a splog that drops everything, for tests
func NewDiscardSplog() *Splog {
	splog, _ := NewSplogWithOptions(SplogOptions{Console: io.Discard, Out: io.Discard})
	return splog
}

// DebugFromEnv reports whether GIT_GR_DEBUG requests debug output
func DebugFromEnv() bool {
	return os.Getenv("GIT_GR_DEBUG") != ""
}

// NewSplogWithOptions creates a splog with optional file logging
func NewSplogWithOptions(opts SplogOptions) (*Splog, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	splog := &Splog{writer: console, out: out}

	handlers := []slog.Handler{&consoleHandler{writer: console, debugMode: opts.Debug}}

	if opts.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFilePath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		rotating := newRotatingLog(opts.LogFilePath)
		splog.logWriter = rotating

		fileHandler := slog.NewTextHandler(rotating, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05.000"))}
				}
				return a
			},
		})
		handlers = append(handlers, fileHandler)
	}

	splog.logger = slog.New(&multiHandler{handlers: handlers})
	return splog, nil
}

// Logger exposes the underlying slog logger for libraries that want one
func (s *Splog) Logger() *slog.Logger {
	return s.logger
}

func (s *Splog) logMessage(level slog.Level, msg string) {
	s.logger.Log(context.Background(), level, msg)
}

func sprintf(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Info writes an info message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Info(format string, args ...interface{}) {
	s.logMessage(slog.LevelInfo, sprintf(format, args))
}

// Warn writes a warning message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Warn(format string, args ...interface{}) {
	s.logMessage(slog.LevelWarn, "⚠️  "+sprintf(format, args))
}

// Error writes an error message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Error(format string, args ...interface{}) {
	s.logMessage(slog.LevelError, "❌ "+sprintf(format, args))
}

// Debug writes a debug message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Debug(format string, args ...interface{}) {
	s.logMessage(slog.LevelDebug, sprintf(format, args))
}

// Tip writes a tip message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Tip(format string, args ...interface{}) {
	s.logMessage(slog.LevelInfo, "💡 "+sprintf(format, args))
}

// Page writes command output to stdout
func (s *Splog) Page(content string) {
	_, _ = fmt.Fprint(s.out, content)
}

// Println writes a line of command output to stdout
func (s *Splog) Println(line string) {
	_, _ = fmt.Fprintln(s.out, line)
}

// Newline writes a newline to the console
func (s *Splog) Newline() {
	_, _ = fmt.Fprintln(s.writer)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}
