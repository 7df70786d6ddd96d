// Package kafka ships search analytics events over segmentio/kafka-go.
// Values travel as JSON; the event type and content type ride in headers.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	"github.com/segmentio/kafka-go"
)

const contentTypeJSON = "application/json"

// Event is one analytics record. Key picks the partition, so events for the
// same query land in order on one partition.
type Event struct {
	Key   string
	Type  string
	Value any
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch writes events in one call. Events whose value cannot be
// encoded are logged and left out rather than failing the whole batch; the
// returned error then reports how many were skipped.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	var encodeErrs []error
	for _, event := range events {
		msg, err := encode(event)
		if err != nil {
			encodeErrs = append(encodeErrs, err)
			continue
		}
		messages = append(messages, msg)
	}
	if len(encodeErrs) > 0 {
		p.logger.Warn("skipping unencodable events", "count", len(encodeErrs), "error", encodeErrs[0])
	}
	if len(messages) > 0 {
		if err := p.writer.WriteMessages(ctx, messages...); err != nil {
			return fmt.Errorf("writing %d messages: %w", len(messages), err)
		}
		p.logger.Debug("batch published", "count", len(messages))
	}
	if len(encodeErrs) > 0 {
		return fmt.Errorf("%d of %d events not encodable: %w", len(encodeErrs), len(events), errors.Join(encodeErrs...))
	}
	return nil
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event %q: %w", event.Type, event.Key, err)
	}
	msg := kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte(contentTypeJSON)}},
	}
	if event.Type != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "event-type", Value: []byte(event.Type)})
	}
	return msg, nil
}
