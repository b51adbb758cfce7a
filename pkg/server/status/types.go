package status

import (
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

const (
	DEFAULT_STATUS_HISTORY  = 60
	STATUS_UPDATE_INTERVAL  = 1 * time.Second
	STATUS_HEARTBEAT_PERIOD = 30 * time.Second
)

type (
	StatusSource interface {
		Status(now time.Time, limit int) thermostat.Status
		LastDecision() thermostat.Decision
		LastDispatch() thermostat.DispatchResult
	}

	SystemStatus struct {
		thermostat.Status
		LastDecision  thermostat.DecisionOutcome `json:"last_decision,omitempty"`
		LastDispatch  thermostat.DispatchOutcome `json:"last_dispatch,omitempty"`
		Setpoint      *float64                   `json:"setpoint,omitempty"`
		ErrorMessages []string                   `json:"error_messages"`
	}

	Handler struct {
		source         StatusSource
		originPatterns []string
		now            func() time.Time
	}
)
