package model

import "time"

const (
	EventConversion = "conversion"
	EventAPIError   = "api_error"
)

// Event is an append-only observability record. Details is the human readable
// line; Properties carries the same data for structured sinks.
type Event struct {
	Name       string
	Details    string
	Properties map[string]any
	Time       time.Time
}
