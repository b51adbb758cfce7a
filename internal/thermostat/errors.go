package thermostat

import "errors"

var (
	ErrInvalidDuration  = errors.New("timer duration is outside the allowed on time range")
	ErrInvalidMode      = errors.New("invalid thermostat mode")
	ErrInvalidKind      = errors.New("invalid reading kind")
	ErrInvalidValue     = errors.New("invalid reading value")
	ErrOutOfOrderSample = errors.New("reading is older than the newest stored reading")
	ErrFutureSample     = errors.New("reading timestamp is in the future")
	ErrInvalidBucket    = errors.New("invalid setpoint hour bucket")
	ErrRelayForcedOff   = errors.New("thermostat is off, relay commands are not accepted")

	ErrNoData          = errors.New("no readings available")
	ErrMissingSetpoint = errors.New("no setpoint configured for the current hour")
	ErrStaleData       = errors.New("readings are stale")
	ErrHardwareFault   = errors.New("relay hardware fault")
)

// IsValidationError reports whether err was caused by bad caller input. Validation
// errors are returned before any state is mutated.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDuration,
		ErrInvalidMode,
		ErrInvalidKind,
		ErrInvalidValue,
		ErrOutOfOrderSample,
		ErrFutureSample,
		ErrInvalidBucket,
		ErrRelayForcedOff,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
