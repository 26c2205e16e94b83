package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
)

// serviceName tags every record so hub logs can be told apart when
// shipped alongside the device simulator's.
const serviceName = "smarthub"

// Logger is a slog.Logger that may own a rotating log file.
// It is safe for concurrent use.
type Logger struct {
	*slog.Logger
	file io.Closer
}

// New builds the logger described by cfg. Every record carries the
// service name and version.
//
// Parameters:
//   - cfg: level, format (json or text) and output (stdout, stderr, file)
//   - version: hub build version
//
// Returns:
//   - *Logger: ready to use; Close it when output is "file"
func New(cfg config.LoggingConfig, version string) *Logger {
	w, file := destination(cfg)
	l := newLogger(w, cfg, version)
	l.file = file
	return l
}

func newLogger(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(h).With("service", serviceName, "version", version),
	}
}

// destination resolves cfg.Output. A file without a path falls back to
// stdout.
func destination(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if cfg.File.Path == "" {
			return os.Stdout, nil
		}
		rot := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		return rot, rot
	}
	return os.Stdout, nil
}

// parseLevel accepts slog's level names in any case, plus "warning".
// Anything else is info.
func parseLevel(name string) slog.Level {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var lvl slog.Level
	if name == "" || lvl.UnmarshalText([]byte(name)) != nil {
		return slog.LevelInfo
	}
	return lvl
}

// With returns a child logger that adds args to every record and shares
// the parent's file.
//
//	mqttLog := log.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// Close closes the log file, if there is one.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Default logs JSON at info to stdout. It covers startup until the
// configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
