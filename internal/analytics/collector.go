package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
)

// Publisher is the write side of a Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Tracker accepts analytics events without blocking the caller.
type Tracker interface {
	Track(event any)
}

// Collector publishes events one at a time from a buffered channel. Events
// arriving while the buffer is full are dropped.
type Collector struct {
	publisher Publisher
	eventCh   chan any
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Int64
	logger    *slog.Logger
	done      chan struct{}
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan any, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues event. Events tracked after Close are dropped.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped returns how many events were discarded on a full buffer.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the publish loop to exit.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.publisher.Publish(ctx, kafka.Event{
		Key:   EventKey(event),
		Type:  string(TypeOf(event)),
		Value: event,
	}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
