package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gatewatch/internal/domain"
)

// Devices returns the router's device inventory.
func (c *Client) Devices(ctx context.Context) ([]domain.Device, error) {
	var devices []domain.Device
	if err := c.get(ctx, "/api/devices", nil, &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

type deviceFlagRequest struct {
	Value bool `json:"value"`
}

// SetDeviceBlocked toggles internet access for a device.
func (c *Client) SetDeviceBlocked(ctx context.Context, mac string, blocked bool) error {
	path, err := devicePath(mac, "block")
	if err != nil {
		return err
	}

	return c.put(ctx, path, deviceFlagRequest{Value: blocked}, nil)
}

// SetDeviceFavorite toggles the favorite marker for a device.
func (c *Client) SetDeviceFavorite(ctx context.Context, mac string, favorite bool) error {
	path, err := devicePath(mac, "favorite")
	if err != nil {
		return err
	}

	return c.put(ctx, path, deviceFlagRequest{Value: favorite}, nil)
}

func devicePath(mac, action string) (string, error) {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return "", errors.New("device mac is required")
	}

	return fmt.Sprintf("/api/devices/%s/%s", url.PathEscape(mac), action), nil
}
