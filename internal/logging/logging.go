package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where logs go and how much is kept.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// FilePath enables JSON file logging when set.
	FilePath string
	// MaxSizeMB is the size that triggers rotation.
	MaxSizeMB int
	// MaxFiles is how many rotated files are kept.
	MaxFiles int
	// Stderr also writes to stderr. Without a file, stderr is always used.
	Stderr bool
}

// DefaultConfig logs info and above to the default log file and stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  5,
		Stderr:    true,
	}
}

// DebugConfig is DefaultConfig at debug level.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// ServeConfig logs to the file only, leaving stdio to the MCP transport.
func ServeConfig(level string) Config {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Stderr = false
	return cfg
}

// ConsoleConfig logs to stderr only.
func ConsoleConfig(level string) Config {
	return Config{Level: level, Stderr: true}
}

// Setup builds a logger for cfg. The returned cleanup flushes and closes the
// log file and is never nil.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	if cfg.FilePath == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}, nil
	}

	w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, func() {}, err
	}
	var out io.Writer = w
	if cfg.Stderr {
		out = io.MultiWriter(w, os.Stderr)
	}

	cleanup := func() {
		_ = w.Sync()
		_ = w.Close()
	}
	return slog.New(slog.NewJSONHandler(out, opts)), cleanup, nil
}

// Install sets the logger for cfg as the slog default.
func Install(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return cleanup, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// ParseLevel maps a level name to slog.Level. Unknown names give info and
// false.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
