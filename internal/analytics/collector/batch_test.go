package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/kafka"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (b *batchRecorder) PublishBatch(_ context.Context, events []kafka.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker down")
	}
	b.batches = append(b.batches, events)
	return nil
}

func (b *batchRecorder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, batch := range b.batches {
		n += len(batch)
	}
	return n
}

func TestFinalFlushOnCancel(t *testing.T) {
	pub := &batchRecorder{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	for i := 0; i < 7; i++ {
		bc.Track(analytics.RecommendEvent{Type: analytics.EventRecommend})
	}
	cancel()
	bc.Close()

	if pub.count() != 7 {
		t.Errorf("flushed %d events, want 7", pub.count())
	}
	if ev := pub.batches[0][0]; ev.Key != "recommend" || ev.Type != string(analytics.EventRecommend) {
		t.Errorf("event key = %q type = %q", ev.Key, ev.Type)
	}

	bc.Track(analytics.RecommendEvent{Type: analytics.EventZeroResult})
	if bc.Dropped() != 1 || bc.BufferLen() != 0 {
		t.Errorf("after close: dropped=%d buffered=%d", bc.Dropped(), bc.BufferLen())
	}
}

func TestFlushWhenBatchFull(t *testing.T) {
	pub := &batchRecorder{}
	bc := NewBatchCollector(pub, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		bc.Close()
	}()
	bc.Start(ctx)
	for i := 0; i < 3; i++ {
		bc.Track(analytics.RefreshEvent{Type: analytics.EventRefresh})
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count() != 3 || bc.BufferLen() != 0 {
		t.Errorf("published=%d buffered=%d", pub.count(), bc.BufferLen())
	}
}

func TestFailedFlushRequeuesBounded(t *testing.T) {
	pub := &batchRecorder{fail: true}
	bc := NewBatchCollector(pub, 2, time.Hour)
	bc.mu.Lock()
	for i := 0; i < 10; i++ {
		bc.buffer = append(bc.buffer, kafka.Event{Key: "recommend"})
	}
	bc.mu.Unlock()

	bc.flush(context.Background())
	if n := bc.BufferLen(); n != 6 {
		t.Errorf("buffer after failed flush = %d, want 6", n)
	}
	if bc.Dropped() != 4 {
		t.Errorf("dropped = %d, want 4", bc.Dropped())
	}
}
