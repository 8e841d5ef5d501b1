package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"gatewatch/internal/domain"
)

type SpeedtestRepo struct {
	db *sql.DB
}

func NewSpeedtestRepo(db *sql.DB) *SpeedtestRepo {
	return &SpeedtestRepo{db: db}
}

func (r *SpeedtestRepo) Upsert(ctx context.Context, result domain.SpeedtestResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO speedtests(id, download_mbps, upload_mbps, ping_ms, server, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			download_mbps = excluded.download_mbps,
			upload_mbps = excluded.upload_mbps,
			ping_ms = excluded.ping_ms,
			server = excluded.server,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			error = excluded.error
	`, result.ID, result.DownloadMbps, result.UploadMbps, result.PingMs, result.Server,
		journalMillis(result.StartedAt), journalMillis(result.FinishedAt), result.Err)
	if err != nil {
		return fmt.Errorf("upsert speedtest: %w", err)
	}

	return nil
}

func (r *SpeedtestRepo) ListNewestFirst(ctx context.Context, limit int) ([]domain.SpeedtestResult, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, download_mbps, upload_mbps, ping_ms, server, started_at, finished_at, error
		FROM speedtests
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list speedtests: %w", err)
	}
	defer rows.Close()

	var out []domain.SpeedtestResult
	for rows.Next() {
		var (
			result     domain.SpeedtestResult
			startedMs  int64
			finishedMs int64
		)
		if err := rows.Scan(&result.ID, &result.DownloadMbps, &result.UploadMbps, &result.PingMs,
			&result.Server, &startedMs, &finishedMs, &result.Err); err != nil {
			return nil, fmt.Errorf("scan speedtest row: %w", err)
		}
		result.StartedAt = journalTime(startedMs)
		result.FinishedAt = journalTime(finishedMs)
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate speedtest rows: %w", err)
	}

	return out, nil
}

func (r *SpeedtestRepo) DeleteFinishedBefore(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM speedtests WHERE finished_at < ?`, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("prune speedtests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned speedtests: %w", err)
	}

	return n, nil
}
