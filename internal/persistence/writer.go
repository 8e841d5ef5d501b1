package persistence

import (
	"context"
	"log/slog"
	"time"
)

const (
	writeMaxAttempts = 3
	writeRetryDelay  = 300 * time.Millisecond
)

// journalWrite is one pending database mutation, named for log lines.
type journalWrite struct {
	name string
	fn   func(context.Context) error
}

// WriterQueue serializes journal writes onto a single goroutine so bus
// handlers never block on sqlite. A full queue spills the write to a
// goroutine instead of dropping it.
type WriterQueue struct {
	logger *slog.Logger
	queue  chan journalWrite
}

func NewWriterQueue(logger *slog.Logger, capacity int) *WriterQueue {
	if capacity <= 0 {
		capacity = 256
	}

	return &WriterQueue{
		logger: logger,
		queue:  make(chan journalWrite, capacity),
	}
}

func (w *WriterQueue) Enqueue(name string, fn func(context.Context) error) {
	write := journalWrite{name: name, fn: fn}
	select {
	case w.queue <- write:
	default:
		w.logger.Warn("journal queue full, spilling write", "write", name, "depth", len(w.queue))
		go func() { w.queue <- write }()
	}
}

func (w *WriterQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case write := <-w.queue:
				w.apply(ctx, write)
			}
		}
	}()
}

// apply retries transient failures with a linear backoff; sqlite lock
// contention usually clears within a retry or two.
func (w *WriterQueue) apply(ctx context.Context, write journalWrite) {
	for attempt := 1; ; attempt++ {
		err := write.fn(ctx)
		if err == nil {
			return
		}
		if attempt == writeMaxAttempts {
			w.logger.Error("journal write dropped", "write", write.name, "attempts", attempt, "error", err)

			return
		}
		w.logger.Warn("journal write failed, retrying", "write", write.name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * writeRetryDelay):
		}
	}
}
