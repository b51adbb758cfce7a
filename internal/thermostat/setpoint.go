package thermostat

import (
	"context"
	"fmt"
)

// SETPOINT_HOURS are the start hours of the eight daily schedule buckets.
var SETPOINT_HOURS = [8]int{0, 3, 6, 9, 12, 15, 18, 21}

func IsValidBucket(bucket int) bool {
	for _, h := range SETPOINT_HOURS {
		if h == bucket {
			return true
		}
	}

	return false
}

// HourBucket returns the greatest schedule bucket that is <= hour.
func HourBucket(hour int) (int, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour %d: %w", hour, ErrInvalidBucket)
	}

	bucket := SETPOINT_HOURS[0]
	for _, h := range SETPOINT_HOURS {
		if h <= hour {
			bucket = h
		}
	}

	return bucket, nil
}

// GetSetpoint looks up the target temperature for the bucket covering hour.
func GetSetpoint(ctx context.Context, hour int, directory SetpointDirectory) (float64, error) {
	bucket, err := HourBucket(hour)
	if err != nil {
		return 0, err
	}

	setpoint, ok, err := directory.GetSetpoint(ctx, bucket)
	if err != nil {
		return 0, fmt.Errorf("read setpoint for bucket %d: %w", bucket, err)
	}

	if !ok {
		return 0, fmt.Errorf("bucket %d: %w", bucket, ErrMissingSetpoint)
	}

	return setpoint, nil
}
