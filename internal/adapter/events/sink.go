package events

import (
	"context"
	"errors"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

var (
	_ ports.EventSink = (*LogSink)(nil)
	_ ports.EventSink = (MultiSink)(nil)
)

// LogSink writes events to the structured log. It is always enabled.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(ctx context.Context, event model.Event) {
	args := make([]any, 0, 2+2*len(event.Properties))
	args = append(args, "details", event.Details)
	for k, v := range event.Properties {
		args = append(args, k, v)
	}
	s.log.InfoContext(ctx, event.Name, args...)
}

func (s *LogSink) Close() error { return nil }

// MultiSink fans an event out to every sink.
type MultiSink []ports.EventSink

func (m MultiSink) Publish(ctx context.Context, event model.Event) {
	for _, s := range m {
		s.Publish(ctx, event)
	}
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
