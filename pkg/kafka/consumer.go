// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON, while the
// consumer decodes them via a pluggable MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message. Returning an
// error leaves the message uncommitted and it is handed to the handler
// again after a backoff.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// messageReader is the part of *kafka.Reader the consume loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRedeliveryDelay    = 500 * time.Millisecond
	defaultMaxRedeliveryDelay = 30 * time.Second
)

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader   messageReader
	logger   *slog.Logger
	handler  MessageHandler
	minDelay time.Duration
	maxDelay time.Duration
}

// NewConsumer creates a Consumer for the given topic and handler. Consumers
// sharing groupID split the topic's partitions between them; give each
// process its own group when every process must see every message.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, handler, slog.Default().With("component", "kafka-consumer", "topic", topic, "group", groupID))
}

func newConsumer(r messageReader, handler MessageHandler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:   r,
		logger:   logger,
		handler:  handler,
		minDelay: defaultRedeliveryDelay,
		maxDelay: defaultMaxRedeliveryDelay,
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled. Messages are committed only after the handler accepts them.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if !c.process(ctx, msg) {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// process runs the handler until it succeeds, backing off between
// attempts. It returns false only when ctx ends first.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	delay := c.minDelay
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}
		c.logger.Error("failed to process message, redelivering",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"next_delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(2*delay, c.maxDelay)
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
