package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gatewatch/internal/config"
)

// Manager owns the process-wide logger and the log file lifecycle. Without
// file logging every record goes to the console. With file logging the file
// is the durable record at the configured level and the console only mirrors
// records at the console level and above, so a terminal left watching the
// daemon is not flooded by per-push debug output.
type Manager struct {
	mu     sync.RWMutex
	logger *slog.Logger
	file   *os.File
}

func NewManager() *Manager {
	m := &Manager{}
	m.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	return m
}

func (m *Manager) Configure(cfg config.LoggingConfig, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file != nil {
		_ = m.file.Close()
		m.file = nil
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	if !cfg.LogToFile {
		m.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(m.logger)

		return nil
	}

	consoleLevel := slog.Leveler(slog.LevelWarn)
	if strings.TrimSpace(cfg.ConsoleLevel) != "" {
		consoleLevel, err = parseLevel(cfg.ConsoleLevel)
		if err != nil {
			return err
		}
	}

	cleanPath := filepath.Clean(filePath)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	fileHandler, err := newFileHandler(cfg.FileFormat, file, level)
	if err != nil {
		_ = file.Close()

		return err
	}

	m.file = file
	m.logger = slog.New(newMultiHandler(
		fileHandler,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel}),
	))
	slog.SetDefault(m.logger)

	return nil
}

func (m *Manager) Logger(component string) *slog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.logger.With("component", component)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			return err
		}
		m.file = nil
	}

	return nil
}

func newFileHandler(format string, w io.Writer, level slog.Leveler) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	default:
		return nil, fmt.Errorf("unsupported log file format: %q", format)
	}
}

func parseLevel(raw string) (slog.Leveler, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unsupported log level: %q", raw)
	}
}

// multiHandler fans each record out to every sink whose own level accepts it.
// Sinks keep independent levels, so the file can record debug output while
// the console stays at warnings.
type multiHandler struct {
	sinks []slog.Handler
}

func newMultiHandler(sinks ...slog.Handler) slog.Handler {
	return &multiHandler{sinks: sinks}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = sink.WithAttrs(attrs)
	}

	return &multiHandler{sinks: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = sink.WithGroup(name)
	}

	return &multiHandler{sinks: next}
}
