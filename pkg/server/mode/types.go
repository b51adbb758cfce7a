package mode

import (
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

type (
	ModeController interface {
		Mode() thermostat.Mode
		SetMode(now time.Time, mode thermostat.Mode) error
	}

	Handler struct {
		controller ModeController
		now        func() time.Time
	}

	ModeRequest struct {
		Mode string `json:"mode"`
	}

	ModeResponse struct {
		Mode thermostat.Mode `json:"mode"`
	}
)
