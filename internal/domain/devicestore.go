package domain

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gatewatch/internal/bus"
	"gatewatch/internal/events"
)

// DeviceStore keeps the latest device snapshots in memory for consumers.
type DeviceStore struct {
	mu      sync.RWMutex
	devices map[string]Device
	changes chan struct{}
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		devices: make(map[string]Device),
		changes: make(chan struct{}, 1),
	}
}

func (s *DeviceStore) Load(devices []Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, device := range devices {
		s.devices[normalizeMAC(device.MAC)] = device
	}
	s.notify()
}

func (s *DeviceStore) Start(ctx context.Context, b bus.MessageBus) {
	sub := b.Subscribe(events.TopicDeviceUpdate)
	go func() {
		defer b.Unsubscribe(sub, events.TopicDeviceUpdate)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub:
				if !ok {
					return
				}
				update, ok := msg.(DeviceUpdate)
				if !ok {
					continue
				}
				s.Upsert(update.Device)
			}
		}
	}()
}

func (s *DeviceStore) Upsert(device Device) {
	key := normalizeMAC(device.MAC)
	if key == "" {
		return
	}
	device.MAC = key

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.devices[key]
	if ok {
		// Merge sparse updates without wiping cached metadata.
		if device.Hostname == "" {
			device.Hostname = existing.Hostname
		}
		if device.IP == "" {
			device.IP = existing.IP
		}
		if device.Vendor == "" {
			device.Vendor = existing.Vendor
		}
		if device.Interface == "" {
			device.Interface = existing.Interface
		}
		if device.RxBytes == 0 {
			device.RxBytes = existing.RxBytes
		}
		if device.TxBytes == 0 {
			device.TxBytes = existing.TxBytes
		}
		// Blocked and Favorite are owned by the toggle flow and full
		// inventory loads; a sparse push never clears them.
		if !device.Blocked {
			device.Blocked = existing.Blocked
		}
		if !device.Favorite {
			device.Favorite = existing.Favorite
		}
		if device.LastSeenAt.IsZero() || existing.LastSeenAt.After(device.LastSeenAt) {
			device.LastSeenAt = existing.LastSeenAt
		}
		if existing.UpdatedAt.After(device.UpdatedAt) {
			device.UpdatedAt = existing.UpdatedAt
		}
	}
	if device.UpdatedAt.IsZero() {
		device.UpdatedAt = time.Now()
	}
	s.devices[key] = device
	s.notify()
}

// SetBlocked flips the blocked flag locally and reports the previous value.
// Used by the optimistic-update flow: apply first, revert if the call fails.
func (s *DeviceStore) SetBlocked(mac string, blocked bool) (bool, bool) {
	return s.setFlag(mac, func(d *Device) bool {
		prev := d.Blocked
		d.Blocked = blocked

		return prev
	})
}

// SetFavorite flips the favorite flag locally and reports the previous value.
func (s *DeviceStore) SetFavorite(mac string, favorite bool) (bool, bool) {
	return s.setFlag(mac, func(d *Device) bool {
		prev := d.Favorite
		d.Favorite = favorite

		return prev
	})
}

func (s *DeviceStore) setFlag(mac string, apply func(*Device) bool) (bool, bool) {
	key := normalizeMAC(mac)

	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[key]
	if !ok {
		return false, false
	}
	prev := apply(&device)
	device.UpdatedAt = time.Now()
	s.devices[key] = device
	s.notify()

	return prev, true
}

func (s *DeviceStore) SnapshotSorted() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Device, 0, len(s.devices))
	for _, device := range s.devices {
		out = append(out, device)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].LastSeenAt.After(out[j].LastSeenAt)
		}

		return out[i].MAC < out[j].MAC
	})

	return out
}

func (s *DeviceStore) Get(mac string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[normalizeMAC(mac)]

	return device, ok
}

func (s *DeviceStore) Changes() <-chan struct{} {
	return s.changes
}

func (s *DeviceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = make(map[string]Device)
	s.notify()
}

func (s *DeviceStore) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func normalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
