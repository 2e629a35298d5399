// v1
// internal/logging/logger.go

package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init builds the process logger. When LOG_PATH is set the log is mirrored
// to that file in addition to stdout; a file open failure falls back to
// stdout-only rather than aborting startup.
func Init() *slog.Logger {
	logPath := os.Getenv("LOG_PATH")
	if logPath == "" {
		handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
		return slog.New(handler)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
		l := slog.New(handler)
		l.Error("failed to open log file", "path", logPath, "err", err)
		return l
	}
	mw := io.MultiWriter(os.Stdout, f)
	handler := slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo})
	l := slog.New(handler)
	l.Info("logger initialized", "file", logPath)
	return l
}
