package setpoints

import (
	"context"
)

type (
	SetpointStore interface {
		ListSetpoints(ctx context.Context) (map[int]float64, error)
		PutSetpoints(ctx context.Context, setpoints map[int]float64) error
	}

	Handler struct {
		store SetpointStore
	}

	// SetpointsRequest maps an hour bucket ("0", "3", ... "21") to a target temperature.
	SetpointsRequest struct {
		Setpoints map[string]float64 `json:"setpoints"`
	}

	// SetpointsResponse lists every bucket, null when no target is configured.
	SetpointsResponse struct {
		Setpoints map[string]*float64 `json:"setpoints"`
	}
)
