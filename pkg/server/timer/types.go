package timer

import (
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

type (
	TimerController interface {
		RequestTimer(now time.Time, duration time.Duration) (thermostat.TimerStatus, error)
		QueryTimer(now time.Time) (thermostat.TimerStatus, bool)
	}

	Handler struct {
		controller TimerController
		now        func() time.Time
	}

	TimerRequest struct {
		OnTime *float64 `json:"on_time"`
	}

	TimerResponse struct {
		Active bool `json:"active"`
		thermostat.TimerStatus
	}
)
