package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"gatewatch/internal/domain"
)

// MetricsHistory returns stored metric samples covering the given window,
// newest last. Used to seed dashboard charts before live pushes arrive.
func (c *Client) MetricsHistory(ctx context.Context, window time.Duration) ([]domain.MetricsSnapshot, error) {
	if window <= 0 {
		return nil, fmt.Errorf("history window must be positive: %s", window)
	}

	query := url.Values{}
	query.Set("minutes", strconv.Itoa(int(window.Minutes())))

	var samples []domain.MetricsSnapshot
	if err := c.get(ctx, "/api/metrics/history", query, &samples); err != nil {
		return nil, err
	}

	return samples, nil
}
