// Package logging configures the structured logger shared by all commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelEnv overrides the default log level when -log-level is not given.
const LevelEnv = "TYPEREG_LOG_LEVEL"

// Setup configures slog to write JSONL to stderr and, when logFile is
// non-empty, to that file as well.
// Returns a logger and a cleanup function to close the file handle.
func Setup(logFile string, level slog.Level) (*slog.Logger, func(), error) {
	return setup(os.Stderr, logFile, level)
}

func setup(stderr io.Writer, logFile string, level slog.Level) (*slog.Logger, func(), error) {
	if logFile == "" {
		return slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level})), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	w := io.MultiWriter(stderr, f)
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))

	cleanup := func() {
		_ = f.Close()
	}
	return logger, cleanup, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s (valid: debug, info, warn, error)", s)
	}
}

// ResolveLevel picks the effective level name: the flag value when set,
// then $TYPEREG_LOG_LEVEL, then "warn".
func ResolveLevel(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(LevelEnv); env != "" {
		return env
	}
	return "warn"
}
