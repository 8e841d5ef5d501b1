package domain

import (
	"context"

	"gatewatch/internal/bus"
	"gatewatch/internal/events"
)

// WriteQueue serializes persistence writes from async domain events.
type WriteQueue interface {
	Enqueue(name string, fn func(context.Context) error)
}

// StartPersistenceProjection journals live pushes into the local history
// database: metric snapshots and speedtest results arriving on the bus are
// written through the queue so charts survive restarts.
func StartPersistenceProjection(ctx context.Context, b bus.MessageBus, queue WriteQueue, speedtestRepo SpeedtestRepository, metricsRepo MetricsRepository) {
	metricsSub := b.Subscribe(events.TopicMetricsSnapshot)
	speedtestSub := b.Subscribe(events.TopicSpeedtestResult)

	go func() {
		defer b.Unsubscribe(metricsSub, events.TopicMetricsSnapshot)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-metricsSub:
				if !ok {
					return
				}
				snapshot, ok := raw.(MetricsSnapshot)
				if !ok {
					continue
				}
				queue.Enqueue("insert_metric_sample", func(writeCtx context.Context) error {
					return metricsRepo.Insert(writeCtx, snapshot)
				})
			}
		}
	}()

	go func() {
		defer b.Unsubscribe(speedtestSub, events.TopicSpeedtestResult)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-speedtestSub:
				if !ok {
					return
				}
				result, ok := raw.(SpeedtestResult)
				if !ok {
					continue
				}
				if result.ID == "" {
					continue
				}
				queue.Enqueue("upsert_speedtest", func(writeCtx context.Context) error {
					return speedtestRepo.Upsert(writeCtx, result)
				})
			}
		}
	}()
}
