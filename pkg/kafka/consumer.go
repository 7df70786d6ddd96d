package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// ErrMalformed marks a message that can never be processed. The consumer
// commits past it instead of retrying.
var ErrMalformed = errors.New("malformed message")

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerStats counts what the consume loop did with each message.
type ConsumerStats struct {
	Processed int64
	Skipped   int64
	Failed    int64
}

// Consumer reads search events from a topic and hands each one to a
// MessageHandler. Transient handler errors are retried with backoff; a
// message is committed once it was handled, found malformed, or ran out of
// attempts, so a single event never stalls its partition.
type Consumer struct {
	reader  messageReader
	handler MessageHandler
	retry   resilience.RetryConfig
	logger  *slog.Logger

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// NewConsumer creates a group Consumer for topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Retryable:    func(err error) bool { return !errors.Is(err, ErrMalformed) },
		},
		logger: slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start runs the consume loop until ctx is cancelled or the reader is
// closed, then closes the reader. Cancellation is not an error.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info("consumer stopping", "stats", c.Stats())
				return nil
			}
			c.logger.Error("fetching message", "error", err)
			continue
		}
		c.process(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("committing message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	err := resilience.Retry(ctx, "kafka-handler", c.retry, func() error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
	switch {
	case err == nil:
		c.processed.Add(1)
	case errors.Is(err, ErrMalformed):
		c.skipped.Add(1)
		c.logger.Warn("skipping malformed message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	default:
		c.failed.Add(1)
		c.logger.Error("giving up on message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Processed: c.processed.Load(),
		Skipped:   c.skipped.Load(),
		Failed:    c.failed.Load(),
	}
}

// DecodeJSON unmarshals a message value into T. Failures wrap ErrMalformed.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return result, nil
}
