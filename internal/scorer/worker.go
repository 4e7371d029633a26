package scorer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
)

// Publisher sends scoring results downstream.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaHandler scores Request messages and publishes each Result keyed by
// request id. A request that cannot be decoded or scored gets a Result with
// Error set, so every consumed request is answered. Only a failed publish is
// returned to the consumer.
func (s *Scorer) KafkaHandler(pub Publisher) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		req, err := kafka.DecodeJSON[Request](value)
		if err != nil {
			s.countKafka("malformed")
			return s.publish(ctx, pub, &Result{ID: string(key), Error: err.Error()})
		}
		if req.ID == "" {
			req.ID = string(key)
		}
		ctx = logger.WithRequestID(ctx, req.ID)
		res, err := s.Score(ctx, req)
		if err != nil {
			s.countKafka("error")
			logger.FromContext(ctx).Warn("request not scored", "error", err)
			return s.publish(ctx, pub, &Result{ID: req.ID, Source: req.Source, Error: err.Error()})
		}
		if err := s.publish(ctx, pub, res); err != nil {
			return err
		}
		s.countKafka("ok")
		return nil
	}
}

func (s *Scorer) publish(ctx context.Context, pub Publisher, res *Result) error {
	if err := pub.Publish(ctx, kafka.Event{Key: res.ID, Value: res}); err != nil {
		s.countKafka("publish_error")
		return fmt.Errorf("publishing result %q: %w", res.ID, err)
	}
	return nil
}

func (s *Scorer) countKafka(status string) {
	if s.metrics != nil {
		s.metrics.KafkaMessagesTotal.WithLabelValues(status).Inc()
	}
}
