// Package logs installs the default slog logger.
//
// It is imported for its side effects by the binaries.
package logs

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const levelEnv = "CONFIGMANAGER_LOG_LEVEL"

func init() {
	slog.SetDefault(New(os.Getenv(levelEnv)))
}

// New returns a tint-backed logger writing to stderr at the given level.
//
// Unknown levels fall back to info.
func New(level string) *slog.Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: time.DateTime,
	})
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
