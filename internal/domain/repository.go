package domain

import "context"

type SpeedtestRepository interface {
	Upsert(ctx context.Context, result SpeedtestResult) error
	ListNewestFirst(ctx context.Context, limit int) ([]SpeedtestResult, error)
}

type MetricsRepository interface {
	Insert(ctx context.Context, snapshot MetricsSnapshot) error
	ListSince(ctx context.Context, cutoffMs int64) ([]MetricsSnapshot, error)
}
