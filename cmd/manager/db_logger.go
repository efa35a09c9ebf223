package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// slogBadgerAdapter routes badger logs to slog, one record per line.
type slogBadgerAdapter struct{}

func logLines(level slog.Level, f string, details ...any) {
	for line := range strings.SplitSeq(fmt.Sprintf(f, details...), "\n") {
		if line != "" {
			slog.Log(context.Background(), level, "badger", "msg", line)
		}
	}
}

func (slogBadgerAdapter) Errorf(f string, details ...any) {
	logLines(slog.LevelError, f, details...)
}

func (slogBadgerAdapter) Warningf(f string, details ...any) {
	logLines(slog.LevelWarn, f, details...)
}

// Infof is logged at debug level, badger is verbose on startup and compaction.
func (slogBadgerAdapter) Infof(f string, details ...any) {
	logLines(slog.LevelDebug, f, details...)
}

func (slogBadgerAdapter) Debugf(f string, details ...any) {
	logLines(slog.LevelDebug, f, details...)
}
