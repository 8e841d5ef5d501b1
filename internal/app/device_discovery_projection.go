package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gatewatch/internal/bus"
	"gatewatch/internal/domain"
	"gatewatch/internal/events"
)

const deviceDiscoverySourcePush = "live_push"

// DeviceDiscoveryProjection emits TopicDeviceDiscovered for devices that
// appear in live pushes but were absent from the bootstrap inventory.
type DeviceDiscoveryProjection struct {
	logger *slog.Logger

	mu        sync.Mutex
	armed     bool
	knownMACs map[string]struct{}
	seenMACs  map[string]struct{}
}

func NewDeviceDiscoveryProjection(store *domain.DeviceStore, logger *slog.Logger) *DeviceDiscoveryProjection {
	if logger == nil {
		logger = slog.Default().With("component", "app.device_discovery")
	}

	return &DeviceDiscoveryProjection{
		logger:    logger,
		knownMACs: snapshotMACs(store),
		seenMACs:  make(map[string]struct{}),
	}
}

func (p *DeviceDiscoveryProjection) Start(ctx context.Context, messageBus bus.MessageBus) {
	if p == nil || messageBus == nil {
		return
	}
	deviceSub := messageBus.Subscribe(events.TopicDeviceUpdate)
	connSub := messageBus.Subscribe(events.TopicConnStatus)

	go func() {
		defer messageBus.Unsubscribe(deviceSub, events.TopicDeviceUpdate)
		defer messageBus.Unsubscribe(connSub, events.TopicConnStatus)
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
				p.handleConnStatus(status)
			case raw, ok := <-deviceSub:
				if !ok {
					return
				}
				update, ok := raw.(domain.DeviceUpdate)
				if !ok {
					continue
				}
				event, shouldPublish := p.deviceDiscoveredEvent(update)
				if !shouldPublish {
					continue
				}
				messageBus.Publish(events.TopicDeviceDiscovered, event)
				p.logger.Info("device discovered", "mac", event.MAC, "hostname", event.Device.Hostname)
			}
		}
	}()
}

// ArmFromInventory updates the discovery baseline after the initial
// inventory fetch and starts reporting devices not seen before.
func (p *DeviceDiscoveryProjection) ArmFromInventory(store *domain.DeviceStore) {
	if p == nil {
		return
	}
	known := snapshotMACs(store)
	p.mu.Lock()
	p.armed = true
	p.knownMACs = known
	p.seenMACs = make(map[string]struct{})
	p.mu.Unlock()
	p.logger.Debug("device discovery armed", "known_devices", len(known))
}

func (p *DeviceDiscoveryProjection) handleConnStatus(status events.ConnectionStatus) {
	if p == nil || status.State == "" || status.State == events.ConnectionStateConnected {
		return
	}
	p.mu.Lock()
	p.armed = false
	p.mu.Unlock()
}

func (p *DeviceDiscoveryProjection) deviceDiscoveredEvent(update domain.DeviceUpdate) (domain.DeviceDiscovered, bool) {
	if p == nil || update.Type != domain.DeviceUpdateTypePush {
		return domain.DeviceDiscovered{}, false
	}
	mac := strings.ToLower(strings.TrimSpace(update.Device.MAC))
	if mac == "" {
		return domain.DeviceDiscovered{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.armed {
		return domain.DeviceDiscovered{}, false
	}
	if _, ok := p.knownMACs[mac]; ok {
		return domain.DeviceDiscovered{}, false
	}
	if _, ok := p.seenMACs[mac]; ok {
		return domain.DeviceDiscovered{}, false
	}
	p.knownMACs[mac] = struct{}{}
	p.seenMACs[mac] = struct{}{}

	return domain.DeviceDiscovered{
		Device:       update.Device,
		MAC:          mac,
		DiscoveredAt: time.Now(),
		Source:       deviceDiscoverySourcePush,
	}, true
}

func snapshotMACs(store *domain.DeviceStore) map[string]struct{} {
	known := make(map[string]struct{})
	if store == nil {
		return known
	}
	for _, device := range store.SnapshotSorted() {
		mac := strings.ToLower(strings.TrimSpace(device.MAC))
		if mac == "" {
			continue
		}
		known[mac] = struct{}{}
	}

	return known
}
