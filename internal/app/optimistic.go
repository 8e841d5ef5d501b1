package app

import (
	"context"
	"fmt"
	"log/slog"

	"gatewatch/internal/api"
	"gatewatch/internal/domain"
)

// Optimistic runs a remote call after a local mutation was already applied,
// and reverts the mutation if the call fails. The caller applies the local
// change first so consumers see it immediately.
func Optimistic(ctx context.Context, attempt func(context.Context) error, revert func()) error {
	if err := attempt(ctx); err != nil {
		revert()

		return err
	}

	return nil
}

// DeviceToggler flips device flags optimistically: the store is updated
// before the backend confirms, and rolled back when the request fails.
type DeviceToggler struct {
	logger *slog.Logger
	store  *domain.DeviceStore
	api    *api.Client
}

func NewDeviceToggler(logger *slog.Logger, store *domain.DeviceStore, client *api.Client) *DeviceToggler {
	if logger == nil {
		logger = slog.Default().With("component", "app.devices")
	}

	return &DeviceToggler{logger: logger, store: store, api: client}
}

func (t *DeviceToggler) SetBlocked(ctx context.Context, mac string, blocked bool) error {
	prev, ok := t.store.SetBlocked(mac, blocked)
	if !ok {
		return fmt.Errorf("unknown device: %s", mac)
	}

	err := Optimistic(ctx, func(callCtx context.Context) error {
		return t.api.SetDeviceBlocked(callCtx, mac, blocked)
	}, func() {
		t.store.SetBlocked(mac, prev)
	})
	if err != nil {
		t.logger.Warn("block toggle reverted", "mac", mac, "error", err)

		return fmt.Errorf("set device blocked: %w", err)
	}

	return nil
}

func (t *DeviceToggler) SetFavorite(ctx context.Context, mac string, favorite bool) error {
	prev, ok := t.store.SetFavorite(mac, favorite)
	if !ok {
		return fmt.Errorf("unknown device: %s", mac)
	}

	err := Optimistic(ctx, func(callCtx context.Context) error {
		return t.api.SetDeviceFavorite(callCtx, mac, favorite)
	}, func() {
		t.store.SetFavorite(mac, prev)
	})
	if err != nil {
		t.logger.Warn("favorite toggle reverted", "mac", mac, "error", err)

		return fmt.Errorf("set device favorite: %w", err)
	}

	return nil
}
