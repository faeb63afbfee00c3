package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/breezehub/breeze-core/internal/infrastructure/config"
)

// Logger is a thin wrapper over *slog.Logger so call sites depend on one
// project type rather than on slog directly. Every entry carries the
// service name and version as default attributes.
type Logger struct {
	*slog.Logger
}

// New builds a logger from configuration. Format "text" is for a terminal
// during development; anything else gets JSON for machine consumption.
// Unrecognised levels fall back to info rather than failing startup.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(destination(cfg.Output), cfg.Format, parseLevel(cfg.Level))

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "breeze"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func destination(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config string onto a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger carrying extra default attributes:
//
//	bridgeLog := log.With("component", "bridge")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON stdout logger at info level, covering the window
// between process start and config load.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
