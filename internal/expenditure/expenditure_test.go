package expenditure

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

var asOf = time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)

// linearInput builds days of logs ending at asOf whose trend (α = 1) moves
// linearly from startW to endW.
func linearInput(t *testing.T, days int, startW, endW, calories float64) Input {
	t.Helper()
	var weights []types.WeightSample
	var intake []types.IntakeSample
	for i := 0; i < days; i++ {
		d := types.AddDays(asOf, -(days - 1 - i))
		w := startW + (endW-startW)*float64(i)/float64(days-1)
		weights = append(weights, types.WeightSample{Date: d, WeightLbs: w})
		intake = append(intake, types.IntakeSample{Date: d, Calories: calories})
	}
	series, err := trend.Smooth(weights, 1)
	require.NoError(t, err)
	return Input{
		Trend:       series,
		Weights:     weights,
		Intake:      intake,
		FormulaTDEE: 2300,
		AsOf:        asOf,
		WindowDays:  DefaultWindowDays,
	}
}

func TestComputeBackCalculatesLoss(t *testing.T) {
	in := linearInput(t, 14, 210.0, 208.5, 1825)

	res, err := Compute(in)
	require.NoError(t, err)

	assert.InDelta(t, -1.5, res.WeightChange, 1e-9)
	assert.InDelta(t, -375, res.EnergyDeltaPerDay, 1e-9)
	assert.InDelta(t, 2200, res.AdaptiveTDEE, 1e-9)
	assert.InDelta(t, 1825, res.AverageIntake, 1e-9)
	assert.InDelta(t, -100, res.TDEEDelta, 1e-9)
	assert.Equal(t, types.ConfidenceHigh, res.Confidence)
	assert.False(t, res.Clamped)
	assert.Contains(t, res.Narrative(), "less than the formula")
}

func TestComputeCoverageBoundary(t *testing.T) {
	t.Run("13 days is insufficient", func(t *testing.T) {
		in := linearInput(t, 13, 210, 209, 2000)
		_, err := Compute(in)

		var insufficient *types.InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, types.KindWeight, insufficient.Kind)
		assert.Equal(t, 13, insufficient.Available)
		assert.Equal(t, 14, insufficient.Required)
		assert.Equal(t, "Need 14 days of both weight and food logs; you have 13 days of weight logs.", err.Error())
	})

	t.Run("14 days succeeds", func(t *testing.T) {
		in := linearInput(t, 14, 210, 209, 2000)
		_, err := Compute(in)
		assert.NoError(t, err)
	})

	t.Run("missing intake day", func(t *testing.T) {
		in := linearInput(t, 14, 210, 209, 2000)
		in.Intake = append(in.Intake[:3], in.Intake[4:]...)
		_, err := Compute(in)

		var insufficient *types.InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, types.KindIntake, insufficient.Kind)
		assert.Equal(t, 13, insufficient.Available)
	})

	t.Run("older data outside the window does not count", func(t *testing.T) {
		in := linearInput(t, 30, 215, 209, 2000)
		in.Weights = append(in.Weights[:20], in.Weights[21:]...)
		_, err := Compute(in)
		assert.ErrorIs(t, err, types.ErrInsufficientData)
	})
}

func TestComputeClampsOutOfBoundsAndFlags(t *testing.T) {
	// Gaining 10 lb in two weeks on 1200 kcal implies an absurd negative TDEE.
	in := linearInput(t, 14, 200, 210, 1200)

	res, err := Compute(in)
	require.Error(t, err)
	assert.True(t, types.IsLowConfidence(err))

	var low *types.LowConfidenceError
	require.ErrorAs(t, err, &low)
	assert.Contains(t, low.Reason, "below half")

	assert.True(t, res.Clamped)
	assert.Equal(t, types.ConfidenceLow, res.Confidence)
	assert.InDelta(t, 1150, res.AdaptiveTDEE, 1e-9)
	assert.Less(t, res.UnclampedTDEE, 0.0)

	// Losing 10 lb in two weeks on 3000 kcal implies more than double.
	in = linearInput(t, 14, 210, 200, 3000)
	res, err = Compute(in)
	assert.True(t, types.IsLowConfidence(err))
	assert.InDelta(t, 4600, res.AdaptiveTDEE, 1e-9)
}

func TestComputeMediumConfidenceOnLargeAdaptation(t *testing.T) {
	in := linearInput(t, 14, 200, 200, 1600)

	res, err := Compute(in)
	require.NoError(t, err)
	assert.Equal(t, types.ConfidenceMedium, res.Confidence)
}

func TestComputeIsDeterministic(t *testing.T) {
	in := linearInput(t, 20, 190.3, 187.1, 2143.7)
	a, errA := Compute(in)
	b, errB := Compute(in)
	assert.Equal(t, a, b)
	assert.Equal(t, errA, errB)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	in := linearInput(t, 14, 210, 209, 2000)

	bad := in
	bad.FormulaTDEE = 0
	_, err := Compute(bad)
	assert.ErrorIs(t, err, types.ErrInvalidMeasurement)

	bad = in
	bad.FormulaTDEE = math.NaN()
	_, err = Compute(bad)
	assert.ErrorIs(t, err, types.ErrInvalidMeasurement)

	bad = in
	bad.AsOf = time.Time{}
	_, err = Compute(bad)
	assert.True(t, errors.Is(err, types.ErrInvalidMeasurement))

	bad = in
	bad.WindowDays = 1
	_, err = Compute(bad)
	assert.ErrorIs(t, err, types.ErrInvalidMeasurement)
}
