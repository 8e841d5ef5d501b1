package api

import "context"

// SystemInfo describes the router itself.
type SystemInfo struct {
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`
	Hostname        string `json:"hostname"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

// SystemInfo fetches model and firmware details for the managed router.
func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	if err := c.get(ctx, "/api/system/info", nil, &info); err != nil {
		return SystemInfo{}, err
	}

	return info, nil
}
