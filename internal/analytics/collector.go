package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/metrics"
)

// Publisher ships a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Local delivers events straight to an in-process Aggregator, for
// deployments without Kafka.
type Local struct {
	Aggregator *Aggregator
}

func (l Local) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		if se, ok := e.Value.(SearchEvent); ok {
			l.Aggregator.Record(se)
		}
	}
	return nil
}

// CollectorConfig sizes the collector. Zero values take defaults.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector buffers events in a channel and publishes them in batches of
// BatchSize or every FlushInterval. Track never blocks: when the buffer is
// full, or the collector has shut down, the event is dropped.
type Collector struct {
	publisher Publisher
	cfg       CollectorConfig
	eventCh   chan SearchEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// mu guards closed; Track sends under the read lock so no send can race
	// the final drain.
	mu        sync.RWMutex
	closed    bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCollector builds a Collector; m may be nil.
func NewCollector(publisher Publisher, cfg CollectorConfig, m *metrics.Metrics) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Collector{
		publisher: publisher,
		cfg:       cfg,
		eventCh:   make(chan SearchEvent, cfg.BufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It stops when ctx is cancelled or Close
// is called, flushing what is buffered either way.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.FlushInterval)
		defer ticker.Stop()
		batch := make([]kafka.Event, 0, c.cfg.BatchSize)
		for {
			select {
			case event := <-c.eventCh:
				batch = append(batch, toKafka(event))
				if len(batch) >= c.cfg.BatchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-c.stop:
				c.flush(context.Background(), c.drainRemaining(batch))
				return
			case <-ctx.Done():
				c.markClosed()
				batch = c.drainRemaining(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", c.cfg.BufferSize,
		"batch_size", c.cfg.BatchSize,
		"flush_interval", c.cfg.FlushInterval,
	)
}

// Track queues event for publishing. It is safe to call at any time,
// including after Close; late events are counted as dropped.
func (c *Collector) Track(event SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.count("dropped", 1)
		c.logger.Debug("analytics event dropped (collector closed)", "query", event.Query)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.count("dropped", 1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush of a started
// collector.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.markClosed()
		close(c.stop)
	})
	<-c.done
}

func (c *Collector) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Collector) drainRemaining(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.count("dropped", len(batch))
		c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
		return
	}
	c.count("published", len(batch))
	c.logger.Debug("analytics batch published", "events", len(batch))
}

func (c *Collector) count(outcome string, n int) {
	if c.metrics != nil {
		c.metrics.AnalyticsEventsTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

func toKafka(event SearchEvent) kafka.Event {
	return kafka.Event{
		Key:   event.Query,
		Type:  string(event.Type),
		Value: event,
	}
}
