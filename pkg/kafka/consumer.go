// Package kafka provides the Kafka clients of the scoring worker, backed by
// segmentio/kafka-go. Requests are consumed as JSON and dispatched to a
// MessageHandler; results are published as JSON keyed by request id.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// requestIDHeader carries the request id across topics.
const requestIDHeader = "request_id"

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler. A message whose handler fails is logged and skipped; it is
// not redelivered, since the next successful commit moves the group offset
// past it.
type Consumer struct {
	reader  fetcher
	logger  *slog.Logger
	handler MessageHandler
	backoff time.Duration
}

type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// fetchBackoff is the pause after a failed fetch.
const fetchBackoff = time.Second

// NewConsumer creates a group consumer for topic. New groups start from the
// oldest retained request so none are skipped.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
		backoff: fetchBackoff,
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled or the reader is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("consumer stopping", "reason", "reader closed")
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err, "retry_in", c.backoff)
			select {
			case <-ctx.Done():
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		msgCtx := ctx
		if id := headerValue(msg.Headers, requestIDHeader); id != "" {
			msgCtx = logger.WithRequestID(ctx, id)
		}
		log := logger.FromContext(msgCtx)
		log.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"value_size", len(msg.Value),
		)
		if err := c.handler(msgCtx, msg.Key, msg.Value); err != nil {
			log.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
