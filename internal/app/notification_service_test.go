package app

import (
	"strings"
	"sync"
	"testing"

	"gatewatch/internal/config"
	"gatewatch/internal/domain"
	"gatewatch/internal/events"
	"gatewatch/internal/notifications"
)

type captureSender struct {
	mu       sync.Mutex
	payloads []notifications.Payload
}

func (s *captureSender) Send(payload notifications.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
}

func (s *captureSender) sent() []notifications.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]notifications.Payload(nil), s.payloads...)
}

func newTestNotificationService(sender *captureSender, cfg config.AppConfig) *NotificationService {
	return NewNotificationService(nil, func() config.AppConfig { return cfg }, sender, nil)
}

func defaultNotificationConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Server.BaseURL = "http://192.168.1.1"

	return cfg
}

func TestHandleConnectionStatus_DeduplicatesRepeatedStates(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	status := events.ConnectionStatus{State: events.ConnectionStateConnected, Endpoint: "ws://router/api/ws"}
	svc.handleConnectionStatus(status)
	svc.handleConnectionStatus(status)
	svc.handleConnectionStatus(status)

	if got := len(sender.sent()); got != 1 {
		t.Fatalf("expected one notification for repeated state, got %d", got)
	}
}

func TestHandleConnectionStatus_NotifiesOnTransitions(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	svc.handleConnectionStatus(events.ConnectionStatus{State: events.ConnectionStateConnected})
	svc.handleConnectionStatus(events.ConnectionStatus{State: events.ConnectionStateDisconnected, Err: "read timeout"})
	svc.handleConnectionStatus(events.ConnectionStatus{State: events.ConnectionStateConnected})

	sent := sender.sent()
	if len(sent) != 3 {
		t.Fatalf("expected three notifications for three transitions, got %d", len(sent))
	}
	if !strings.Contains(sent[1].Content, "read timeout") {
		t.Fatalf("expected disconnect error in content, got %q", sent[1].Content)
	}
}

func TestHandleConnectionStatus_IntermediateStatesAreSilent(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	svc.handleConnectionStatus(events.ConnectionStatus{State: events.ConnectionStateConnecting})
	svc.handleConnectionStatus(events.ConnectionStatus{State: events.ConnectionStateError, Err: "dial failed"})

	if got := len(sender.sent()); got != 0 {
		t.Fatalf("expected no notifications for connecting/error states, got %d", got)
	}
}

func TestNotificationService_RespectsGlobalAndPerEventToggles(t *testing.T) {
	disabled := defaultNotificationConfig()
	disabled.Notifications.Enabled = false
	sender := &captureSender{}
	svc := newTestNotificationService(sender, disabled)

	svc.handleConnectionStatus(events.ConnectionStatus{State: events.ConnectionStateConnected})
	svc.handleDeviceDiscovered(domain.DeviceDiscovered{MAC: "aa:bb:cc:dd:ee:ff"})
	if got := len(sender.sent()); got != 0 {
		t.Fatalf("expected global toggle to silence everything, got %d", got)
	}

	partial := defaultNotificationConfig()
	partial.Notifications.Events.DeviceDiscovered = false
	sender = &captureSender{}
	svc = newTestNotificationService(sender, partial)

	svc.handleDeviceDiscovered(domain.DeviceDiscovered{MAC: "aa:bb:cc:dd:ee:ff"})
	svc.handleSpeedtestResult(domain.SpeedtestResult{ID: "st-1", DownloadMbps: 500})

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected only the speedtest notification, got %d", len(sent))
	}
	if sent[0].Title != notificationTitleSpeedtest {
		t.Fatalf("unexpected notification title: %q", sent[0].Title)
	}
}

func TestHandleDeviceDiscovered_PrefersHostnameOverVendor(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	svc.handleDeviceDiscovered(domain.DeviceDiscovered{
		MAC:    "aa:bb:cc:dd:ee:ff",
		Device: domain.Device{Hostname: "phone", Vendor: "Apple"},
	})

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	if sent[0].Content != "phone (aa:bb:cc:dd:ee:ff)" {
		t.Fatalf("unexpected content: %q", sent[0].Content)
	}
}

func TestHandleSpeedtestResult_ReportsFailure(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	svc.handleSpeedtestResult(domain.SpeedtestResult{ID: "st-1", Err: "no route to server"})

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Content, "no route to server") {
		t.Fatalf("expected failure detail in content, got %q", sent[0].Content)
	}
}

func TestHandleNotice_PrefixesNonInfoSeverity(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	svc.handleNotice(events.Notice{Severity: "warning", Title: "WAN flapping", Body: "uplink unstable"})
	svc.handleNotice(events.Notice{Severity: "info", Title: "Scheduled reboot", Body: "tonight at 3am"})

	sent := sender.sent()
	if len(sent) != 2 {
		t.Fatalf("expected two notifications, got %d", len(sent))
	}
	if sent[0].Title != "[warning] WAN flapping" {
		t.Fatalf("expected severity prefix, got %q", sent[0].Title)
	}
	if sent[1].Title != "Scheduled reboot" {
		t.Fatalf("expected no prefix for info severity, got %q", sent[1].Title)
	}
}

func TestHandleFirmwareUpdate_SkipsEmptyVersion(t *testing.T) {
	sender := &captureSender{}
	svc := newTestNotificationService(sender, defaultNotificationConfig())

	svc.handleFirmwareUpdate(events.FirmwareUpdate{CurrentVersion: "1.2.0"})
	svc.handleFirmwareUpdate(events.FirmwareUpdate{CurrentVersion: "1.2.0", LatestVersion: "1.4.0"})

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Content, "1.4.0") || !strings.Contains(sent[0].Content, "1.2.0") {
		t.Fatalf("expected both versions in content, got %q", sent[0].Content)
	}
}
