package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AutoLogFile selects the log file in the user cache directory
const AutoLogFile = "auto"

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// initLogging builds the CLI logger. Records go to w in the requested format
// and, when logFile is set, also to that file as JSON with source positions.
// The returned func closes the log file.
func initLogging(w io.Writer, logLevel, logFormat, logFile string) (*slog.Logger, func() error, error) {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	closer := func() error { return nil }
	if logFile != "" {
		if logFile == AutoLogFile {
			logFile = filepath.Join(getXDGCacheDir(), "nanoquery.log")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
		handler = &multiHandler{handlers: []slog.Handler{handler, fileHandler}}
		closer = f.Close
	}

	logger := slog.New(handler)
	logger.Debug("logging initialized", "level", level.String(), "format", logFormat, "log_file", logFile)
	return logger, closer, nil
}

// getXDGCacheDir returns the XDG cache directory for nanoquery
func getXDGCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "nanoquery")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "nanoquery")
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches", "nanoquery")
	}
	return filepath.Join(homeDir, ".cache", "nanoquery")
}

// multiHandler implements slog.Handler to write to multiple handlers
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
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
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
