package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gatewatch/internal/domain"
)

type MetricsRepo struct {
	db *sql.DB
}

func NewMetricsRepo(db *sql.DB) *MetricsRepo {
	return &MetricsRepo{db: db}
}

func (r *MetricsRepo) Insert(ctx context.Context, snapshot domain.MetricsSnapshot) error {
	interfaces, err := json.Marshal(snapshot.Interfaces)
	if err != nil {
		return fmt.Errorf("encode interface stats: %w", err)
	}
	services, err := json.Marshal(snapshot.Services)
	if err != nil {
		return fmt.Errorf("encode service statuses: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metric_samples(at, load1, load5, load15, cpu_percent, memory_used_bytes, memory_total_bytes, uptime_seconds, interfaces_json, services_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(at) DO NOTHING
	`, journalMillis(snapshot.At), snapshot.System.Load1, snapshot.System.Load5, snapshot.System.Load15,
		snapshot.System.CPUPercent, snapshot.System.MemoryUsedBytes, snapshot.System.MemoryTotalBytes,
		snapshot.System.UptimeSeconds, string(interfaces), string(services))
	if err != nil {
		return fmt.Errorf("insert metric sample: %w", err)
	}

	return nil
}

// ListSince returns samples at or after the cutoff, oldest first.
func (r *MetricsRepo) ListSince(ctx context.Context, cutoffMs int64) ([]domain.MetricsSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT at, load1, load5, load15, cpu_percent, memory_used_bytes, memory_total_bytes, uptime_seconds, interfaces_json, services_json
		FROM metric_samples
		WHERE at >= ?
		ORDER BY at ASC
	`, cutoffMs)
	if err != nil {
		return nil, fmt.Errorf("list metric samples: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricsSnapshot
	for rows.Next() {
		var (
			snapshot      domain.MetricsSnapshot
			atMs          int64
			interfacesRaw string
			servicesRaw   string
		)
		if err := rows.Scan(&atMs, &snapshot.System.Load1, &snapshot.System.Load5, &snapshot.System.Load15,
			&snapshot.System.CPUPercent, &snapshot.System.MemoryUsedBytes, &snapshot.System.MemoryTotalBytes,
			&snapshot.System.UptimeSeconds, &interfacesRaw, &servicesRaw); err != nil {
			return nil, fmt.Errorf("scan metric sample row: %w", err)
		}
		snapshot.At = journalTime(atMs)
		if err := json.Unmarshal([]byte(interfacesRaw), &snapshot.Interfaces); err != nil {
			return nil, fmt.Errorf("decode interface stats: %w", err)
		}
		if err := json.Unmarshal([]byte(servicesRaw), &snapshot.Services); err != nil {
			return nil, fmt.Errorf("decode service statuses: %w", err)
		}
		out = append(out, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric sample rows: %w", err)
	}

	return out, nil
}

func (r *MetricsRepo) DeleteBefore(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM metric_samples WHERE at < ?`, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("prune metric samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned metric samples: %w", err)
	}

	return n, nil
}
