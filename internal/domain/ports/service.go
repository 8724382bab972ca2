package ports

import (
	"context"

	"currency-converter/internal/domain/model"
)

type ConversionService interface {
	Convert(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error)
	GetRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error)
}

type Translator interface {
	Translate(key, lang string) string
}

// EventSink receives observability events. Publish must not block the caller.
type EventSink interface {
	Publish(ctx context.Context, event model.Event)
	Close() error
}
