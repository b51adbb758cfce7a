package thermostat

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingSeriesNeverExceedsCapacity(t *testing.T) {
	series := NewReadingSeries(3)
	start := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		require.NoError(t, series.Append(start.Add(time.Duration(i)*time.Minute), float64(i)))
		assert.LessOrEqual(t, series.Len(), series.Cap())
	}

	samples := series.Samples(0)
	require.Len(t, samples, 3)
	assert.Equal(t, []float64{7, 8, 9}, []float64{samples[0].Value, samples[1].Value, samples[2].Value})
	for i := 1; i < len(samples); i++ {
		assert.True(t, samples[i].Timestamp.After(samples[i-1].Timestamp))
	}
}

func TestReadingSeriesRejectsOutOfOrderSamples(t *testing.T) {
	series := NewReadingSeries(5)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, series.Append(now, 70))
	require.NoError(t, series.Append(now, 71), "equal timestamps keep order")

	err := series.Append(now.Add(-time.Second), 72)
	assert.ErrorIs(t, err, ErrOutOfOrderSample)
	assert.Equal(t, 2, series.Len())

	assert.ErrorIs(t, series.Append(now.Add(time.Second), math.NaN()), ErrInvalidValue)
}

func TestReadingSeriesLatestAndStaleness(t *testing.T) {
	series := NewReadingSeries(5)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	_, err := series.Latest()
	assert.ErrorIs(t, err, ErrNoData)
	assert.True(t, series.IsStale(now, 5*time.Minute), "empty series is always stale")

	require.NoError(t, series.Append(now.Add(-5*time.Minute), 70))
	assert.False(t, series.IsStale(now, 5*time.Minute), "exactly at the threshold is still fresh")
	assert.True(t, series.IsStale(now.Add(time.Second), 5*time.Minute))

	latest, err := series.Latest()
	require.NoError(t, err)
	assert.Equal(t, 70.0, latest.Value)
}

func TestReadingSeriesSamplesLimit(t *testing.T) {
	series := NewReadingSeries(10)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, series.Append(now.Add(time.Duration(i)*time.Second), float64(i)))
	}

	samples := series.Samples(2)
	require.Len(t, samples, 2)
	assert.Equal(t, 2.0, samples[0].Value)
	assert.Equal(t, 3.0, samples[1].Value)

	assert.Len(t, series.Samples(100), 4)
}
