package temperatures

import (
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

const (
	UNIT_CELSIUS    = "C"
	UNIT_FAHRENHEIT = "F"
)

type (
	ReadingStore interface {
		PushReadings(now time.Time, timestamp time.Time, values map[thermostat.ReadingKind]float64) error
		Readings(kind thermostat.ReadingKind, limit int) ([]thermostat.Sample, error)
	}

	Handler struct {
		store      ReadingStore
		fahrenheit bool
		now        func() time.Time
	}

	// IngestRequest is posted by the sensor process. Temperature defaults to Celsius.
	IngestRequest struct {
		Temperature *float64   `json:"temperature"`
		Humidity    *float64   `json:"humidity"`
		Timestamp   *time.Time `json:"timestamp,omitempty"`
		Unit        string     `json:"unit,omitempty"`
	}

	HistoryResponse struct {
		Temperature []thermostat.Sample `json:"temperature"`
		Humidity    []thermostat.Sample `json:"humidity"`
	}
)
