package anomaly

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func series(t *testing.T, weights ...float64) ([]types.WeightSample, trend.Series) {
	t.Helper()
	raw := make([]types.WeightSample, len(weights))
	for i, w := range weights {
		raw[i] = types.WeightSample{Date: types.AddDays(day0, i), WeightLbs: w}
	}
	s, err := trend.Smooth(raw, trend.DefaultAlpha)
	require.NoError(t, err)
	return raw, s
}

func TestDetectSingleSpike(t *testing.T) {
	raw, s := series(t, 200, 200, 200, 204, 200.1, 200)

	events, err := Detect(raw, s, time.Time{}, time.Time{}, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.True(t, e.Date.Equal(types.AddDays(day0, 3)))
	assert.InDelta(t, 4.0, e.Deviation, 1e-9)
	assert.InDelta(t, 200, e.TrendWeight, 1e-9)
	assert.NotEmpty(t, e.Causes)
	assert.Equal(t, "high_sodium", e.Causes[0].Code)
	assert.True(t, e.Resolved)

	// The spike moves the trend by at most α × deviation.
	pts := s.Points()
	assert.LessOrEqual(t, pts[3].Weight-pts[2].Weight, trend.DefaultAlpha*4+1e-9)
}

func TestDetectNewestFirstAndRange(t *testing.T) {
	raw, s := series(t, 200, 203, 200, 200, 196.5, 200, 200, 203.5)

	events, err := Detect(raw, s, time.Time{}, time.Time{}, 2.0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i-1].Date.After(events[i].Date), "events must be newest first")
	}

	drop := events[1]
	assert.Less(t, drop.Deviation, 0.0)
	assert.Equal(t, "hydration_shift", drop.Causes[0].Code)

	newest := events[0]
	assert.False(t, newest.Resolved, "nothing after the last spike")
	assert.Equal(t, 1, Unresolved(events))

	ranged, err := Detect(raw, s, types.AddDays(day0, 2), types.AddDays(day0, 5), 2.0)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.True(t, ranged[0].Date.Equal(types.AddDays(day0, 4)))
}

func TestDetectThreshold(t *testing.T) {
	raw, s := series(t, 200, 201.5, 200)

	events, err := Detect(raw, s, time.Time{}, time.Time{}, 2.0)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = Detect(raw, s, time.Time{}, time.Time{}, 1.0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	for _, bad := range []float64{-1, math.Inf(1), math.NaN()} {
		_, err := Detect(raw, s, time.Time{}, time.Time{}, bad)
		assert.ErrorIs(t, err, types.ErrInvalidMeasurement, "threshold %v", bad)
	}
}

func TestDetectDoesNotMutateInput(t *testing.T) {
	raw, s := series(t, 200, 205, 200)
	before := s.Points()
	_, err := Detect(raw, s, time.Time{}, time.Time{}, 2.0)
	require.NoError(t, err)
	assert.Equal(t, before, s.Points())
}

func TestCausesReturnsCopy(t *testing.T) {
	c := Causes(1)
	c[0].Code = "changed"
	assert.Equal(t, "high_sodium", Causes(1)[0].Code)
}
