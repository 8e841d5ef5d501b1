package notifications

import (
	"log/slog"
	"strings"

	"github.com/gen2brain/beeep"
)

// DesktopSender delivers notifications through the OS notification daemon.
type DesktopSender struct {
	appName string
	logger  *slog.Logger
}

func NewDesktopSender(appName string, logger *slog.Logger) *DesktopSender {
	if logger == nil {
		logger = slog.Default().With("component", "notifications")
	}

	return &DesktopSender{appName: appName, logger: logger}
}

func (s *DesktopSender) Send(payload Payload) {
	title := strings.TrimSpace(payload.Title)
	content := strings.TrimSpace(payload.Content)
	if title == "" && content == "" {
		return
	}
	if title == "" {
		title = s.appName
	}

	if err := beeep.Notify(title, content, ""); err != nil {
		s.logger.Warn("send desktop notification", "error", err)
	}
}

// LogSender mirrors notifications into the log, for headless runs without a
// notification daemon.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default().With("component", "notifications")
	}

	return &LogSender{logger: logger}
}

func (s *LogSender) Send(payload Payload) {
	s.logger.Info("notification", "title", payload.Title, "content", payload.Content)
}
