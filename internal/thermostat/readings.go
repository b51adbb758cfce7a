package thermostat

import (
	"math"
	"time"
)

// ReadingSeries is a fixed-capacity FIFO of samples in timestamp order.
// Not safe for concurrent use, the Thermostat lock guards it.
type ReadingSeries struct {
	buf      []Sample
	capacity int
	head     int // next write position
	count    int
}

func NewReadingSeries(capacity int) *ReadingSeries {
	if capacity <= 0 {
		capacity = 1
	}

	return &ReadingSeries{
		buf:      make([]Sample, capacity),
		capacity: capacity,
	}
}

// Append adds a sample, overwriting the oldest one when the series is full.
func (r *ReadingSeries) Append(timestamp time.Time, value float64) error {
	if err := r.Check(timestamp, value); err != nil {
		return err
	}

	r.buf[r.head] = Sample{Timestamp: timestamp, Value: value}
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}

	return nil
}

// Check reports whether Append would accept the sample.
func (r *ReadingSeries) Check(timestamp time.Time, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrInvalidValue
	}

	if latest, err := r.Latest(); err == nil && timestamp.Before(latest.Timestamp) {
		return ErrOutOfOrderSample
	}

	return nil
}

func (r *ReadingSeries) Latest() (Sample, error) {
	if r.count == 0 {
		return Sample{}, ErrNoData
	}

	return r.buf[(r.head-1+r.capacity)%r.capacity], nil
}

// IsStale reports whether the newest sample is older than threshold. An empty
// series is always stale.
func (r *ReadingSeries) IsStale(now time.Time, threshold time.Duration) bool {
	latest, err := r.Latest()
	if err != nil {
		return true
	}

	return now.Sub(latest.Timestamp) > threshold
}

// Samples returns up to limit of the newest samples, oldest first. A limit <= 0
// returns everything.
func (r *ReadingSeries) Samples(limit int) []Sample {
	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]Sample, n)
	start := (r.head - n + r.capacity) % r.capacity
	for i := 0; i < n; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	return result
}

func (r *ReadingSeries) Len() int {
	return r.count
}

func (r *ReadingSeries) Cap() int {
	return r.capacity
}
