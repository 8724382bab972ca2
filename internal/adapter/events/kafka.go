package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

var _ ports.EventSink = (*KafkaSink)(nil)

type kafkaMessage struct {
	Event      string         `json:"event"`
	Details    string         `json:"details"`
	Properties map[string]any `json:"properties,omitempty"`
	Time       time.Time      `json:"time"`
}

// KafkaSink appends events to a topic. The writer is async so Publish never
// waits on the broker; delivery errors are only logged.
type KafkaSink struct {
	w   *kafka.Writer
	log *logger.Logger
}

func NewKafkaSink(brokers []string, topic string, log *logger.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("Failed to deliver events to kafka", "count", len(messages), "error", err)
			}
		},
	}
	return &KafkaSink{w: w, log: log}
}

func (s *KafkaSink) Publish(ctx context.Context, event model.Event) {
	msg, err := encodeKafkaMessage(event)
	if err != nil {
		s.log.Warn("Failed to encode event", "event", event.Name, "error", err)
		return
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		s.log.Warn("Failed to enqueue event", "event", event.Name, "error", err)
	}
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}

func encodeKafkaMessage(event model.Event) (kafka.Message, error) {
	value, err := json.Marshal(kafkaMessage{
		Event:      event.Name,
		Details:    event.Details,
		Properties: event.Properties,
		Time:       event.Time.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.Name),
		Value: value,
		Time:  event.Time,
	}, nil
}
