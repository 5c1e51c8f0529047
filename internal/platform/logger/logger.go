package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// sensitiveKeys are attribute keys whose values never reach any output.
var sensitiveKeys = []string{"token", "secret", "api_key", "password", "authorization", "cookie"}

// Options defines parameters for logger creation.
type Options struct {
	Env          string
	ConsoleLevel string // default: info
	FileLevel    string // default: debug
	File         string
	App          string
	// Console overrides the console writer (default: stdout).
	Console io.Writer
	// Extra handlers receive every record after redaction, e.g. the remote
	// log forwarder in production.
	Extra []slog.Handler
}

var closers sync.Map

// New creates configured slog.Logger instance.
func New(o Options) *slog.Logger {
	consoleLvl := LevelFromString(defaultString(o.ConsoleLevel, "info"))
	fileLvl := LevelFromString(defaultString(o.FileLevel, "debug"))

	console := o.Console
	if console == nil {
		console = os.Stdout
	}

	timeFormat := time.RFC3339
	if o.Env == "dev" {
		timeFormat = time.Kitchen
	}
	handlers := []slog.Handler{
		NewRedactingHandler(tint.NewHandler(console, &tint.Options{
			Level:      consoleLvl,
			TimeFormat: timeFormat,
			NoColor:    console != os.Stdout,
		}), sensitiveKeys),
	}

	var closer func() error
	if o.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		closer = fileWriter.Close
		handlers = append(handlers, NewRedactingHandler(
			slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: fileLvl}),
			sensitiveKeys,
		))
	}
	for _, h := range o.Extra {
		if h != nil {
			handlers = append(handlers, NewRedactingHandler(h, sensitiveKeys))
		}
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = NewMultiHandler(handlers...)
	}

	l := slog.New(h).With(
		slog.String("app", o.App),
		slog.String("env", o.Env),
	)
	if closer != nil {
		closers.Store(l, closer)
	}
	return l
}

// Tee returns a logger writing to l and, after redaction, to extra. The log
// file of l stays owned by l.
func Tee(l *slog.Logger, extra ...slog.Handler) *slog.Logger {
	handlers := []slog.Handler{l.Handler()}
	for _, h := range extra {
		if h != nil {
			handlers = append(handlers, NewRedactingHandler(h, sensitiveKeys))
		}
	}
	if len(handlers) == 1 {
		return l
	}
	return slog.New(NewMultiHandler(handlers...))
}

// Close releases the log file of a logger created by New.
func Close(logger *slog.Logger) error {
	if c, ok := closers.LoadAndDelete(logger); ok {
		return c.(func() error)()
	}
	return nil
}

// LevelFromString parses debug, info, warn or error. Anything else is info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
