// Package tracing records in-process span trees for recommend and refresh
// calls. The root span is opened per HTTP request and keyed by its request
// ID; slow trees are written to slog as a single nested record.
package tracing

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

type spanKey struct{}

// Span times one operation. A span is safe for concurrent use by the
// goroutine that owns it and by children attaching to it.
type Span struct {
	name    string
	traceID string
	start   time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	attrs    []slog.Attr
	children []*Span
}

func newSpan(name, traceID string) *Span {
	return &Span{name: name, traceID: traceID, start: time.Now()}
}

// StartSpan opens a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := newSpan(name, traceID)
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan opens a span under the one in ctx. Without a parent the
// span is an orphan with an empty trace ID.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		s := newSpan(name, "")
		return context.WithValue(ctx, spanKey{}, s), s
	}
	child := newSpan(name, parent.traceID)
	parent.mu.Lock()
	parent.children = append(parent.children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, spanKey{}, child), child
}

func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func (s *Span) Name() string    { return s.name }
func (s *Span) TraceID() string { return s.traceID }

// End fixes the span's duration. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.duration = time.Since(s.start)
		s.ended = true
	}
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// SetAttr records a key-value pair. Setting a key twice keeps the last value.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = slog.AnyValue(value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// Attr returns the value recorded for key, or nil.
func (s *Span) Attr(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any()
		}
	}
	return nil
}

// Find returns the first span named name in the tree rooted at s, depth
// first.
func (s *Span) Find(name string) *Span {
	if s.name == name {
		return s
	}
	for _, c := range s.snapshotChildren() {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

func (s *Span) snapshotChildren() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// LogValue renders the tree as nested groups; children are keyed by index.
func (s *Span) LogValue() slog.Value {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+2)
	attrs = append(attrs,
		slog.String("name", s.name),
		slog.Int64("duration_ms", s.duration.Milliseconds()),
	)
	attrs = append(attrs, s.attrs...)
	s.mu.Unlock()

	for i, c := range s.snapshotChildren() {
		attrs = append(attrs, slog.Any(strconv.Itoa(i), c))
	}
	return slog.GroupValue(attrs...)
}

// LogIfSlow logs the tree when the span took at least threshold and
// reports whether it did. A non-positive threshold disables logging.
func (s *Span) LogIfSlow(threshold time.Duration) bool {
	if threshold <= 0 || s.Duration() < threshold {
		return false
	}
	slog.Warn("slow trace", "trace_id", s.traceID, "span", s)
	return true
}
