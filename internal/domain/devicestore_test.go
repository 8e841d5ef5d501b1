package domain

import (
	"testing"
	"time"
)

func TestDeviceStoreUpsert_PreservesMetadataOnSparseUpdates(t *testing.T) {
	store := NewDeviceStore()
	seen := time.Now().Add(-time.Minute)

	store.Upsert(Device{
		MAC:        "AA:BB:CC:DD:EE:FF",
		Hostname:   "laptop",
		IP:         "192.168.1.42",
		Vendor:     "Framework",
		Interface:  "wlan0",
		Online:     true,
		RxBytes:    1024,
		TxBytes:    2048,
		LastSeenAt: seen,
	})
	store.Upsert(Device{
		MAC:        "aa:bb:cc:dd:ee:ff",
		Online:     false,
		LastSeenAt: seen.Add(time.Second),
	})

	device, ok := store.Get("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatalf("expected device in store")
	}
	if device.Hostname != "laptop" {
		t.Fatalf("expected hostname preserved, got %q", device.Hostname)
	}
	if device.IP != "192.168.1.42" {
		t.Fatalf("expected ip preserved, got %q", device.IP)
	}
	if device.Vendor != "Framework" {
		t.Fatalf("expected vendor preserved, got %q", device.Vendor)
	}
	if device.RxBytes != 1024 || device.TxBytes != 2048 {
		t.Fatalf("expected counters preserved, got rx=%d tx=%d", device.RxBytes, device.TxBytes)
	}
	if device.Online {
		t.Fatalf("expected online update to apply")
	}
	if !device.LastSeenAt.Equal(seen.Add(time.Second)) {
		t.Fatalf("expected newer last seen to apply, got %v", device.LastSeenAt)
	}
}

func TestDeviceStoreUpsert_KeepsFlagsOnSparseUpdates(t *testing.T) {
	store := NewDeviceStore()
	store.Upsert(Device{MAC: "aa:bb:cc:dd:ee:ff", Hostname: "laptop"})

	if _, ok := store.SetBlocked("aa:bb:cc:dd:ee:ff", true); !ok {
		t.Fatalf("expected device to be found")
	}
	if _, ok := store.SetFavorite("aa:bb:cc:dd:ee:ff", true); !ok {
		t.Fatalf("expected device to be found")
	}

	store.Upsert(Device{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.168.1.50"})

	device, _ := store.Get("aa:bb:cc:dd:ee:ff")
	if !device.Blocked {
		t.Fatalf("expected sparse update to keep blocked flag")
	}
	if !device.Favorite {
		t.Fatalf("expected sparse update to keep favorite flag")
	}
	if device.IP != "192.168.1.50" {
		t.Fatalf("expected ip update to apply, got %q", device.IP)
	}
}

func TestDeviceStoreUpsert_KeepsNewerLastSeen(t *testing.T) {
	store := NewDeviceStore()
	newer := time.Now()

	store.Upsert(Device{MAC: "aa:aa:aa:aa:aa:aa", LastSeenAt: newer})
	store.Upsert(Device{MAC: "aa:aa:aa:aa:aa:aa", LastSeenAt: newer.Add(-time.Hour)})

	device, _ := store.Get("aa:aa:aa:aa:aa:aa")
	if !device.LastSeenAt.Equal(newer) {
		t.Fatalf("expected stale last seen to be ignored, got %v", device.LastSeenAt)
	}
}

func TestDeviceStoreSetBlocked_ReportsPreviousValue(t *testing.T) {
	store := NewDeviceStore()
	store.Upsert(Device{MAC: "aa:aa:aa:aa:aa:aa"})

	prev, ok := store.SetBlocked("AA:AA:AA:AA:AA:AA", true)
	if !ok {
		t.Fatalf("expected device to be found")
	}
	if prev {
		t.Fatalf("expected previous blocked state to be false")
	}

	device, _ := store.Get("aa:aa:aa:aa:aa:aa")
	if !device.Blocked {
		t.Fatalf("expected device to be blocked")
	}

	prev, ok = store.SetBlocked("aa:aa:aa:aa:aa:aa", false)
	if !ok || !prev {
		t.Fatalf("expected previous blocked state to be true, got prev=%v ok=%v", prev, ok)
	}
}

func TestDeviceStoreSetFlag_UnknownDeviceReportsMiss(t *testing.T) {
	store := NewDeviceStore()

	if _, ok := store.SetFavorite("11:22:33:44:55:66", true); ok {
		t.Fatalf("expected unknown device to report a miss")
	}
}

func TestDeviceStoreSnapshotSorted_OrdersByLastSeenDescending(t *testing.T) {
	store := NewDeviceStore()
	now := time.Now()

	store.Upsert(Device{MAC: "cc:cc:cc:cc:cc:cc", LastSeenAt: now.Add(-2 * time.Hour)})
	store.Upsert(Device{MAC: "aa:aa:aa:aa:aa:aa", LastSeenAt: now})
	store.Upsert(Device{MAC: "bb:bb:bb:bb:bb:bb", LastSeenAt: now.Add(-time.Hour)})

	snapshot := store.SnapshotSorted()
	if len(snapshot) != 3 {
		t.Fatalf("expected three devices, got %d", len(snapshot))
	}
	if snapshot[0].MAC != "aa:aa:aa:aa:aa:aa" || snapshot[2].MAC != "cc:cc:cc:cc:cc:cc" {
		t.Fatalf("unexpected order: %s, %s, %s", snapshot[0].MAC, snapshot[1].MAC, snapshot[2].MAC)
	}
}

func TestDeviceStoreUpsert_IgnoresEmptyMAC(t *testing.T) {
	store := NewDeviceStore()
	store.Upsert(Device{Hostname: "ghost"})

	if got := len(store.SnapshotSorted()); got != 0 {
		t.Fatalf("expected empty store, got %d devices", got)
	}
}
