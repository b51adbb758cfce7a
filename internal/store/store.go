package store

import (
	"context"
	"fmt"
	"math"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

// Store is the setpoint directory plus the persisted controller state.
type Store interface {
	thermostat.SetpointDirectory

	// ListSetpoints returns every configured bucket.
	ListSetpoints(ctx context.Context) (map[int]float64, error)

	// PutSetpoints writes all of the setpoints or none of them.
	PutSetpoints(ctx context.Context, setpoints map[int]float64) error

	// LoadState returns false when no state was saved yet.
	LoadState(ctx context.Context) (thermostat.PersistedState, bool, error)
	SaveState(ctx context.Context, state thermostat.PersistedState) error

	Close() error
}

func validateSetpoints(setpoints map[int]float64) error {
	for bucket, temperature := range setpoints {
		if !thermostat.IsValidBucket(bucket) {
			return fmt.Errorf("bucket %d: %w", bucket, thermostat.ErrInvalidBucket)
		}

		if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
			return fmt.Errorf("bucket %d: %w", bucket, thermostat.ErrInvalidValue)
		}
	}

	return nil
}

func validateBucket(bucket int) error {
	if !thermostat.IsValidBucket(bucket) {
		return fmt.Errorf("bucket %d: %w", bucket, thermostat.ErrInvalidBucket)
	}
	return nil
}
