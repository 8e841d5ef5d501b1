package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gatewatch/internal/domain"
)

const defaultScanPollInterval = time.Second

type portScanRequest struct {
	Target string `json:"target"`
}

// StartPortScan launches a port scan of a LAN host on the backend.
func (c *Client) StartPortScan(ctx context.Context, target string) (domain.PortScanStatus, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return domain.PortScanStatus{}, errors.New("scan target is required")
	}

	var status domain.PortScanStatus
	if err := c.post(ctx, "/api/portscan", portScanRequest{Target: target}, &status); err != nil {
		return domain.PortScanStatus{}, err
	}

	return status, nil
}

// PortScanStatus fetches the current state of a scan job.
func (c *Client) PortScanStatus(ctx context.Context, id string) (domain.PortScanStatus, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PortScanStatus{}, errors.New("scan id is required")
	}

	var status domain.PortScanStatus
	if err := c.get(ctx, "/api/portscan/"+url.PathEscape(id), nil, &status); err != nil {
		return domain.PortScanStatus{}, err
	}

	return status, nil
}

// WaitForPortScan polls a scan job until it reaches a terminal state or ctx
// is cancelled. Cancellation stops the polling only; the backend keeps or
// discards the job on its own.
func (c *Client) WaitForPortScan(ctx context.Context, id string, interval time.Duration, progress func(domain.PortScanStatus)) (domain.PortScanStatus, error) {
	if interval <= 0 {
		interval = defaultScanPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.PortScanStatus(ctx, id)
		if err != nil {
			return domain.PortScanStatus{}, fmt.Errorf("poll scan %s: %w", id, err)
		}
		if progress != nil {
			progress(status)
		}
		if status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return domain.PortScanStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
