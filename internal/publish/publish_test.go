package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPayload(t *testing.T) {
	id := uuid.New()
	event := thermostat.Event{
		ID:        id,
		Timestamp: time.Date(2024, 7, 1, 13, 0, 0, 0, time.FixedZone("EDT", -4*60*60)),
		Type:      thermostat.EVENT_RELAY_SWITCHED,
		Mode:      thermostat.MODE_AUTO,
		RelayOn:   true,
	}

	data, err := FormatPayload(event)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))

	assert.Equal(t, id.String(), p.Thermostat.ID)
	assert.Equal(t, "2024-07-01T17:00:00Z", p.Thermostat.Timestamp)
	assert.Equal(t, "RELAY_SWITCHED", p.Thermostat.Event)
	assert.Equal(t, "auto", p.Thermostat.Mode)
	assert.Equal(t, "ON", p.Thermostat.Relay)
	assert.NotContains(t, string(data), "message")
}

func TestFormatPayloadRelayOff(t *testing.T) {
	data, err := FormatPayload(thermostat.Event{Type: thermostat.EVENT_HARDWARE_FAULT, Message: "relay stuck"})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"relay":"OFF"`)
	assert.Contains(t, string(data), `"message":"relay stuck"`)
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	ctx := context.Background()

	require.NoError(t, f.Publish(ctx, thermostat.Event{Type: thermostat.EVENT_MODE_CHANGED}))
	assert.Len(t, f.Events(), 1)

	f.PublishError = errors.New("broker down")
	assert.Error(t, f.Publish(ctx, thermostat.Event{}))
	assert.Len(t, f.Events(), 1)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), thermostat.Event{}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaPublisherDefaultsTopic(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "")
	defer p.Close()

	assert.Equal(t, DEFAULT_TOPIC, p.writer.Topic)
}
