// Package publish forwards thermostat events to a message bus.
package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

const DEFAULT_TOPIC = "home/thermostat/events"

// Publisher sends thermostat events to a broker. Failures are reported, never fatal.
type Publisher interface {
	Publish(ctx context.Context, event thermostat.Event) error
	Close() error
}

type (
	Payload struct {
		Thermostat EventPayload `json:"thermostat"`
	}

	EventPayload struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		Event     string `json:"event"`
		Mode      string `json:"mode"`
		Relay     string `json:"relay"`
		Message   string `json:"message,omitempty"`
	}
)

// FormatPayload creates the JSON payload for an event.
func FormatPayload(event thermostat.Event) ([]byte, error) {
	relay := "OFF"
	if event.RelayOn {
		relay = "ON"
	}

	payload := Payload{
		Thermostat: EventPayload{
			ID:        event.ID.String(),
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Type,
			Mode:      string(event.Mode),
			Relay:     relay,
			Message:   event.Message,
		},
	}

	return json.Marshal(payload)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event thermostat.Event) error { return nil }

func (NopPublisher) Close() error { return nil }
