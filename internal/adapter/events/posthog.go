package events

import (
	"context"

	"github.com/posthog/posthog-go"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

var _ ports.EventSink = (*PosthogSink)(nil)

const posthogDistinctID = "currency-converter"

// PosthogSink captures events as analytics. The client batches in the background.
type PosthogSink struct {
	client posthog.Client
	log    *logger.Logger
}

func NewPosthogSink(apiKey, endpoint string, log *logger.Logger) (*PosthogSink, error) {
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return nil, err
	}
	return &PosthogSink{client: client, log: log}, nil
}

func (s *PosthogSink) Publish(ctx context.Context, event model.Event) {
	props := posthog.NewProperties().Set("details", event.Details)
	for k, v := range event.Properties {
		props.Set(k, v)
	}

	err := s.client.Enqueue(posthog.Capture{
		DistinctId: posthogDistinctID,
		Event:      event.Name,
		Timestamp:  event.Time,
		Properties: props,
	})
	if err != nil {
		s.log.Warn("Failed to enqueue posthog event", "event", event.Name, "error", err)
	}
}

func (s *PosthogSink) Close() error {
	return s.client.Close()
}
