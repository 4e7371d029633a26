// Package tracing provides a lightweight span-based tracing system that
// propagates trace context through Go contexts. Spans form parent–child trees
// and are logged as structured records via slog.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const spanKey contextKey = "trace_span"

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	Err       error
	mu        sync.Mutex
}

// NewTraceID returns a fresh random trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// StartSpan creates a new root span and stores it in the returned context.
// An empty traceID gets a generated one.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = NewTraceID()
	}
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, spanKey, span), span
}

// StartChildSpan creates a child span linked to the parent in ctx. Without
// a parent it starts a new root.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		return StartSpan(ctx, name, "")
	}
	child := &Span{
		Name:      name,
		TraceID:   parent.TraceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()

	return context.WithValue(ctx, spanKey, child), child
}

// End records the span's end time and duration.
func (s *Span) End() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SetError marks the span as failed.
func (s *Span) SetError(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// Walk visits the span tree depth first.
func (s *Span) Walk(fn func(span *Span, depth int)) {
	s.walk(fn, 0)
}

func (s *Span) walk(fn func(*Span, int), depth int) {
	fn(s, depth)
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	for _, c := range children {
		c.walk(fn, depth+1)
	}
}

// Log writes the span tree to logger.
func (s *Span) Log(logger *slog.Logger) {
	s.Walk(func(span *Span, depth int) {
		attrs := []any{
			"trace_id", span.TraceID,
			"span", span.Name,
			"duration_ms", span.Duration.Milliseconds(),
			"depth", depth,
		}
		for k, v := range span.Attrs {
			attrs = append(attrs, k, v)
		}
		if span.Err != nil {
			attrs = append(attrs, "error", span.Err)
		}
		logger.Info("span", attrs...)
	})
}
