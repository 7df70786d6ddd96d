// Package tracing times the stages of a search (analyze, rank, cache) as a
// span tree carried in the context. A finished trace is written as one slog
// record when it was sampled or ran longer than the slow threshold.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
)

type spanKey struct{}

type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Attrs     map[string]any

	mu       sync.Mutex
	children []*Span
	sampled  bool
}

type Tracer struct {
	enabled       bool
	sampleRate    float64
	slowThreshold time.Duration
	logger        *slog.Logger
}

// NewTracer builds a Tracer from config. A disabled tracer still hands out
// spans so call sites need no nil checks; it just never logs them.
func NewTracer(cfg config.TracingConfig) *Tracer {
	return &Tracer{
		enabled:       cfg.Enabled,
		sampleRate:    cfg.SampleRate,
		slowThreshold: cfg.SlowThreshold,
		logger:        slog.Default().With("component", "tracing"),
	}
}

func (t *Tracer) WithLogger(l *slog.Logger) *Tracer {
	t.logger = l
	return t
}

// Start opens a root span. traceID is reused when non-empty, so a request id
// doubles as the trace id.
func (t *Tracer) Start(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = NewTraceID()
	}
	ctx, span := StartSpan(ctx, name, traceID)
	span.sampled = t.enabled && (t.sampleRate >= 1 || mathrand.Float64() < t.sampleRate)
	return ctx, span
}

// Finish ends the root span and logs the trace when it qualifies.
func (t *Tracer) Finish(span *Span) {
	span.End()
	slow := t.enabled && t.slowThreshold > 0 && span.Duration >= t.slowThreshold
	if !span.sampled && !slow {
		return
	}
	attrs := []any{"trace_id", span.TraceID, "slow", slow}
	attrs = append(attrs, span.group())
	t.logger.Info("trace", attrs...)
}

// NewTraceID returns 16 random bytes hex-encoded.
func NewTraceID() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// StartSpan creates a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, StartTime: time.Now(), Attrs: map[string]any{}}
	return context.WithValue(ctx, spanKey{}, span), span
}

// StartChildSpan creates a span under the one in ctx. Without a parent it
// is a detached span that nothing logs.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, StartTime: time.Now(), Attrs: map[string]any{}}
	if parent := SpanFromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		child.sampled = parent.sampled
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, child), child
}

func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.StartTime)
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// Children returns a snapshot of the direct child spans.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// group renders the span and its descendants as nested slog groups keyed
// by span name, e.g. search.rank.duration_us.
func (s *Span) group() slog.Attr {
	s.mu.Lock()
	attrs := make([]any, 0, len(s.Attrs)+len(s.children)+1)
	attrs = append(attrs, slog.Int64("duration_us", s.Duration.Microseconds()))
	for k, v := range s.Attrs {
		attrs = append(attrs, slog.Any(k, v))
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()
	for _, child := range children {
		attrs = append(attrs, child.group())
	}
	return slog.Group(s.Name, attrs...)
}
