package api

import (
	"context"
	"net/url"
	"strconv"

	"gatewatch/internal/domain"
)

// StartSpeedtest asks the backend to run a speedtest. The result arrives
// later, either on the live channel or via History.
func (c *Client) StartSpeedtest(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/speedtest/run", nil, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// SpeedtestHistory lists past speedtest runs, newest first.
func (c *Client) SpeedtestHistory(ctx context.Context, limit int) ([]domain.SpeedtestResult, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var results []domain.SpeedtestResult
	if err := c.get(ctx, "/api/speedtest/history", query, &results); err != nil {
		return nil, err
	}

	return results, nil
}
