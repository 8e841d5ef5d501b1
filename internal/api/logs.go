package api

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"gatewatch/internal/domain"
)

const defaultFollowInterval = 2 * time.Second

// Logs fetches backend log entries with Seq greater than after, oldest
// first, at most limit entries.
func (c *Client) Logs(ctx context.Context, after int64, limit int) ([]domain.LogEntry, error) {
	query := url.Values{}
	if after > 0 {
		query.Set("after", strconv.FormatInt(after, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var entries []domain.LogEntry
	if err := c.get(ctx, "/api/logs", query, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// FollowLogs polls for new log entries and hands them to emit until ctx is
// cancelled. Polling errors other than auth failures are retried on the next
// tick; a 401 stops the loop since the session is gone.
func (c *Client) FollowLogs(ctx context.Context, after int64, interval time.Duration, emit func(domain.LogEntry)) error {
	if interval <= 0 {
		interval = defaultFollowInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cursor := after
	for {
		entries, err := c.Logs(ctx, cursor, 0)
		switch {
		case errors.Is(err, ErrUnauthorized):
			return err
		case err != nil:
			c.logger.Debug("log poll failed", "error", err)
		default:
			for _, entry := range entries {
				if entry.Seq > cursor {
					cursor = entry.Seq
				}
				emit(entry)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
