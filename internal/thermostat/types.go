package thermostat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	READING_TEMPERATURE ReadingKind = "temperature"
	READING_HUMIDITY    ReadingKind = "humidity"
)

const (
	MODE_AUTO   Mode = "auto"
	MODE_MANUAL Mode = "manual"
	MODE_OFF    Mode = "off"
)

const (
	EVENT_RELAY_SWITCHED = "RELAY_SWITCHED"
	EVENT_MODE_CHANGED   = "MODE_CHANGED"
	EVENT_STALE_DATA     = "STALE_DATA"
	EVENT_HARDWARE_FAULT = "HARDWARE_FAULT"
	EVENT_FAULT_ESCALATE = "FAULT_ESCALATED"
)

const (
	DefaultEventBufferSize = 64
	DefaultMaxClockSkew    = time.Minute
)

type (
	ReadingKind string

	Mode string

	Sample struct {
		Timestamp time.Time `json:"timestamp"`
		Value     float64   `json:"value"`
	}

	ScheduledCommand struct {
		ID        uuid.UUID `json:"id"`
		ExecuteAt time.Time `json:"execute_at"`
		RelayOn   bool      `json:"relay_on"`
		// Force commands skip the dwell-time deferral in the dispatcher.
		Force bool `json:"force,omitempty"`

		seq uint64
	}

	Settings struct {
		Hysteresis        float64
		MinOnTime         time.Duration
		MinOffTime        time.Duration
		MaxOnTime         time.Duration
		StaleReadInterval time.Duration
		HistoryCapacity   int
		MaxHardwareFaults int
		// MaxClockSkew is how far past now a reading timestamp may be.
		MaxClockSkew time.Duration
	}

	// Relay is the physical actuator. Its state is always read through, never cached.
	Relay interface {
		GetRelayState() (bool, error)
		SetRelayState(on bool) error
	}

	// SetpointDirectory returns the target temperature for a schedule bucket.
	SetpointDirectory interface {
		GetSetpoint(ctx context.Context, bucket int) (float64, bool, error)
	}

	Event struct {
		ID        uuid.UUID `json:"id"`
		Timestamp time.Time `json:"timestamp"`
		Type      string    `json:"event"`
		Mode      Mode      `json:"mode"`
		RelayOn   bool      `json:"relay_on"`
		Message   string    `json:"message,omitempty"`
	}

	PersistedState struct {
		Mode      Mode      `json:"mode"`
		LastOnAt  time.Time `json:"last_on_at"`
		LastOffAt time.Time `json:"last_off_at"`
	}

	TimerStatus struct {
		RemainingSeconds float64 `json:"future_sec"`
		PendingState     bool    `json:"future_status"`
	}

	Status struct {
		Mode           Mode               `json:"mode"`
		RelayOn        bool               `json:"relay_on"`
		RelayError     string             `json:"relay_error,omitempty"`
		LastOnAt       time.Time          `json:"last_on_at,omitempty"`
		LastOffAt      time.Time          `json:"last_off_at,omitempty"`
		HardwareFaults int                `json:"hardware_faults"`
		Timer          *TimerStatus       `json:"timer,omitempty"`
		Pending        []ScheduledCommand `json:"pending"`
		Temperature    []Sample           `json:"temperature"`
		Humidity       []Sample           `json:"humidity"`
	}
)

func (m Mode) IsValid() bool {
	switch m {
	case MODE_AUTO, MODE_MANUAL, MODE_OFF:
		return true
	}

	return false
}

func (k ReadingKind) IsValid() bool {
	return k == READING_TEMPERATURE || k == READING_HUMIDITY
}
