package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gatewatch/internal/bus"
	"gatewatch/internal/config"
	"gatewatch/internal/domain"
	"gatewatch/internal/events"
	"gatewatch/internal/notifications"
)

const (
	notificationTitleDeviceDiscovered = "New device on the network"
	notificationTitleSpeedtest        = "Speedtest finished"
	notificationTitleFirmware         = "Firmware update available"
)

// NotificationService listens to bus events and emits user-facing notifications.
type NotificationService struct {
	bus           bus.MessageBus
	currentConfig func() config.AppConfig
	sender        notifications.Sender
	logger        *slog.Logger

	connStatusMu     sync.Mutex
	lastConnState    events.ConnectionState
	lastConnStateSet bool
}

func NewNotificationService(
	messageBus bus.MessageBus,
	currentConfig func() config.AppConfig,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		currentConfig: currentConfig,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	connSub := s.bus.Subscribe(events.TopicConnStatus)
	deviceSub := s.bus.Subscribe(events.TopicDeviceDiscovered)
	speedtestSub := s.bus.Subscribe(events.TopicSpeedtestResult)
	noticeSub := s.bus.Subscribe(events.TopicNotice)
	firmwareSub := s.bus.Subscribe(events.TopicFirmwareUpdate)

	go func() {
		defer s.bus.Unsubscribe(connSub, events.TopicConnStatus)
		defer s.bus.Unsubscribe(deviceSub, events.TopicDeviceDiscovered)
		defer s.bus.Unsubscribe(speedtestSub, events.TopicSpeedtestResult)
		defer s.bus.Unsubscribe(noticeSub, events.TopicNotice)
		defer s.bus.Unsubscribe(firmwareSub, events.TopicFirmwareUpdate)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-connSub:
				if !ok {
					return
				}
				status, ok := raw.(events.ConnectionStatus)
				if !ok {
					continue
				}
				s.handleConnectionStatus(status)
			case raw, ok := <-deviceSub:
				if !ok {
					return
				}
				event, ok := raw.(domain.DeviceDiscovered)
				if !ok {
					continue
				}
				s.handleDeviceDiscovered(event)
			case raw, ok := <-speedtestSub:
				if !ok {
					return
				}
				result, ok := raw.(domain.SpeedtestResult)
				if !ok {
					continue
				}
				s.handleSpeedtestResult(result)
			case raw, ok := <-noticeSub:
				if !ok {
					return
				}
				notice, ok := raw.(events.Notice)
				if !ok {
					continue
				}
				s.handleNotice(notice)
			case raw, ok := <-firmwareSub:
				if !ok {
					return
				}
				update, ok := raw.(events.FirmwareUpdate)
				if !ok {
					continue
				}
				s.handleFirmwareUpdate(update)
			}
		}
	}()
}

func (s *NotificationService) handleConnectionStatus(status events.ConnectionStatus) {
	prefs := s.notificationPrefs()
	if status.State == "" {
		return
	}

	s.connStatusMu.Lock()
	if s.lastConnStateSet && s.lastConnState == status.State {
		s.connStatusMu.Unlock()

		return
	}
	s.lastConnState = status.State
	s.lastConnStateSet = true
	s.connStatusMu.Unlock()

	if status.State != events.ConnectionStateConnected &&
		status.State != events.ConnectionStateDisconnected {
		return
	}
	if !s.shouldNotify(prefs, prefs.Events.ConnectionStatus) {
		return
	}

	details := strings.TrimSpace(status.Endpoint)
	if details == "" {
		details = "No connection details"
	}
	if status.State == events.ConnectionStateDisconnected {
		if errText := strings.TrimSpace(status.Err); errText != "" {
			details = fmt.Sprintf("%s (error: %s)", details, errText)
		}
	}

	s.send(notifications.Payload{
		Title:   fmt.Sprintf("Router - %s", status.State),
		Content: details,
	})
}

func (s *NotificationService) handleDeviceDiscovered(event domain.DeviceDiscovered) {
	prefs := s.notificationPrefs()
	if !s.shouldNotify(prefs, prefs.Events.DeviceDiscovered) {
		return
	}

	content := deviceDiscoveredContent(event)
	if content == "" {
		return
	}
	s.send(notifications.Payload{
		Title:   notificationTitleDeviceDiscovered,
		Content: content,
	})
}

func (s *NotificationService) handleSpeedtestResult(result domain.SpeedtestResult) {
	prefs := s.notificationPrefs()
	if !s.shouldNotify(prefs, prefs.Events.SpeedtestCompleted) {
		return
	}

	if errText := strings.TrimSpace(result.Err); errText != "" {
		s.send(notifications.Payload{
			Title:   notificationTitleSpeedtest,
			Content: fmt.Sprintf("Failed: %s", errText),
		})

		return
	}

	s.send(notifications.Payload{
		Title: notificationTitleSpeedtest,
		Content: fmt.Sprintf("%.1f Mbps down / %.1f Mbps up, %.0f ms ping",
			result.DownloadMbps, result.UploadMbps, result.PingMs),
	})
}

func (s *NotificationService) handleNotice(notice events.Notice) {
	prefs := s.notificationPrefs()
	if !s.shouldNotify(prefs, prefs.Events.ServerNotice) {
		return
	}

	title := strings.TrimSpace(notice.Title)
	if title == "" {
		title = "Router notice"
	}
	if severity := strings.TrimSpace(notice.Severity); severity != "" && severity != "info" {
		title = fmt.Sprintf("[%s] %s", severity, title)
	}

	s.send(notifications.Payload{
		Title:   title,
		Content: notice.Body,
	})
}

func (s *NotificationService) handleFirmwareUpdate(update events.FirmwareUpdate) {
	prefs := s.notificationPrefs()
	if !s.shouldNotify(prefs, prefs.Events.FirmwareUpdate) {
		return
	}

	latest := strings.TrimSpace(update.LatestVersion)
	if latest == "" {
		return
	}
	content := fmt.Sprintf("%s is available (installed: %s)", latest, update.CurrentVersion)

	s.send(notifications.Payload{
		Title:   notificationTitleFirmware,
		Content: content,
	})
}

func (s *NotificationService) shouldNotify(prefs config.NotificationConfig, kindEnabled bool) bool {
	return prefs.Enabled && kindEnabled
}

func (s *NotificationService) notificationPrefs() config.NotificationConfig {
	cfg := config.Default()
	if s.currentConfig != nil {
		cfg = s.currentConfig()
		cfg.FillMissingDefaults()
	}

	return cfg.Notifications
}

func (s *NotificationService) send(notification notifications.Payload) {
	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending notification", "title", title)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
	})
}

func deviceDiscoveredContent(event domain.DeviceDiscovered) string {
	mac := strings.TrimSpace(event.MAC)
	if mac == "" {
		mac = strings.TrimSpace(event.Device.MAC)
	}
	if mac == "" {
		return ""
	}

	hostname := strings.TrimSpace(event.Device.Hostname)
	if hostname == "" {
		if vendor := strings.TrimSpace(event.Device.Vendor); vendor != "" {
			return fmt.Sprintf("%s (%s)", vendor, mac)
		}

		return mac
	}

	return fmt.Sprintf("%s (%s)", hostname, mac)
}
