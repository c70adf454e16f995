// Package collector provides a batch-oriented analytics event collector
// that accumulates recommendation events in memory and flushes them to
// Kafka in bulk.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
)

// BatchPublisher writes several events in one call.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

var _ analytics.Tracker = (*BatchCollector)(nil)

// maxBufferedBatches bounds how many batches worth of events are kept while
// Kafka is failing.
const maxBufferedBatches = 3

// BatchCollector accumulates analytics events and flushes them to Kafka
// either when the batch reaches a configurable size or after a time interval.
// Flushes happen on a single goroutine, so batches are published in order.
type BatchCollector struct {
	producer      BatchPublisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	buffer  []kafka.Event
	closed  bool
	dropped atomic.Int64

	full chan struct{}
	done chan struct{}
}

// NewBatchCollector creates a BatchCollector that flushes when the buffer
// reaches batchSize events or after flushInterval, whichever comes first.
func NewBatchCollector(producer BatchPublisher, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		producer:      producer,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "batch-collector"),
		full:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop, which runs until ctx is
// cancelled and then makes a final flush.
func (bc *BatchCollector) Start(ctx context.Context) {
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bc.flush(ctx)
			case <-bc.full:
				bc.flush(ctx)
			case <-ctx.Done():
				bc.mu.Lock()
				bc.closed = true
				bc.mu.Unlock()
				// Final flush with a short deadline.
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
}

// Track adds an event to the buffer. A full buffer wakes the flush loop.
// Events tracked after shutdown are counted as dropped.
func (bc *BatchCollector) Track(event any) {
	bc.mu.Lock()
	if bc.closed {
		bc.mu.Unlock()
		bc.dropped.Add(1)
		return
	}
	bc.buffer = append(bc.buffer, kafka.Event{
		Key:   analytics.EventKey(event),
		Type:  string(analytics.TypeOf(event)),
		Value: event,
	})
	shouldFlush := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()

	if shouldFlush {
		select {
		case bc.full <- struct{}{}:
		default:
		}
	}
}

// Close waits for the background flush loop to finish.
func (bc *BatchCollector) Close() {
	<-bc.done
}

// BufferLen returns the current number of buffered events.
func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

// Dropped returns how many events were discarded.
func (bc *BatchCollector) Dropped() int64 {
	return bc.dropped.Load()
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.mu.Lock()
	if len(bc.buffer) == 0 {
		bc.mu.Unlock()
		return
	}
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	bc.mu.Unlock()

	if err := bc.producer.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		// Requeue ahead of newer events; beyond the cap the newest go.
		bc.mu.Lock()
		bc.buffer = append(batch, bc.buffer...)
		if limit := bc.batchSize * maxBufferedBatches; len(bc.buffer) > limit {
			dropped := len(bc.buffer) - limit
			bc.buffer = bc.buffer[:limit]
			bc.dropped.Add(int64(dropped))
			bc.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		bc.mu.Unlock()
		return
	}

	bc.logger.Debug("batch flushed", "events", len(batch))
}
