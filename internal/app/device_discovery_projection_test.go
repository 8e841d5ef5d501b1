package app

import (
	"testing"

	"gatewatch/internal/domain"
	"gatewatch/internal/events"
)

func pushUpdate(mac string) domain.DeviceUpdate {
	return domain.DeviceUpdate{
		Device: domain.Device{MAC: mac, Hostname: "new-device"},
		Type:   domain.DeviceUpdateTypePush,
	}
}

func TestDeviceDiscovery_SilentUntilArmed(t *testing.T) {
	p := NewDeviceDiscoveryProjection(domain.NewDeviceStore(), nil)

	if _, publish := p.deviceDiscoveredEvent(pushUpdate("aa:bb:cc:dd:ee:ff")); publish {
		t.Fatalf("expected no discovery before the inventory baseline is armed")
	}
}

func TestDeviceDiscovery_ReportsUnknownDeviceOnce(t *testing.T) {
	store := domain.NewDeviceStore()
	p := NewDeviceDiscoveryProjection(store, nil)
	p.ArmFromInventory(store)

	event, publish := p.deviceDiscoveredEvent(pushUpdate("aa:bb:cc:dd:ee:ff"))
	if !publish {
		t.Fatalf("expected discovery for unknown device")
	}
	if event.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("unexpected mac: %q", event.MAC)
	}
	if event.Source != deviceDiscoverySourcePush {
		t.Fatalf("unexpected source: %q", event.Source)
	}

	if _, publish := p.deviceDiscoveredEvent(pushUpdate("AA:BB:CC:DD:EE:FF")); publish {
		t.Fatalf("expected repeat push for same device to be deduplicated")
	}
}

func TestDeviceDiscovery_KnownInventoryDevicesAreNotReported(t *testing.T) {
	store := domain.NewDeviceStore()
	store.Load([]domain.Device{{MAC: "aa:bb:cc:dd:ee:ff", Hostname: "laptop"}})
	p := NewDeviceDiscoveryProjection(store, nil)
	p.ArmFromInventory(store)

	if _, publish := p.deviceDiscoveredEvent(pushUpdate("aa:bb:cc:dd:ee:ff")); publish {
		t.Fatalf("expected device present at bootstrap to be ignored")
	}
}

func TestDeviceDiscovery_IgnoresInventoryUpdatesAndEmptyMACs(t *testing.T) {
	store := domain.NewDeviceStore()
	p := NewDeviceDiscoveryProjection(store, nil)
	p.ArmFromInventory(store)

	inventory := domain.DeviceUpdate{
		Device: domain.Device{MAC: "aa:bb:cc:dd:ee:ff"},
		Type:   domain.DeviceUpdateTypeInventory,
	}
	if _, publish := p.deviceDiscoveredEvent(inventory); publish {
		t.Fatalf("expected inventory updates to be ignored")
	}
	if _, publish := p.deviceDiscoveredEvent(pushUpdate("  ")); publish {
		t.Fatalf("expected empty mac to be ignored")
	}
}

func TestDeviceDiscovery_DisarmsWhileChannelDown(t *testing.T) {
	store := domain.NewDeviceStore()
	p := NewDeviceDiscoveryProjection(store, nil)
	p.ArmFromInventory(store)

	p.handleConnStatus(events.ConnectionStatus{State: events.ConnectionStateDisconnected})

	if _, publish := p.deviceDiscoveredEvent(pushUpdate("aa:bb:cc:dd:ee:ff")); publish {
		t.Fatalf("expected discovery to pause while the channel is down")
	}

	p.ArmFromInventory(store)
	if _, publish := p.deviceDiscoveredEvent(pushUpdate("aa:bb:cc:dd:ee:ff")); !publish {
		t.Fatalf("expected discovery again after the baseline is re-armed")
	}
}
