package goal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func build(days int, weight func(i int) float64) trend.Series {
	pts := make([]types.TrendPoint, days)
	for i := range pts {
		pts[i] = types.TrendPoint{Date: types.AddDays(day0, i), Weight: weight(i)}
	}
	return trend.NewSeries(pts)
}

func TestPredictSteadyLoss(t *testing.T) {
	s := build(28, func(i int) float64 { return 200 - 0.125*float64(i) })
	asOf := types.AddDays(day0, 27)

	pred, err := Predict(Input{Trend: s, GoalWeight: 190.375, GoalRate: -1.0, AsOf: asOf})
	require.NoError(t, err)

	assert.InDelta(t, 196.625, pred.CurrentWeight, 1e-9)
	assert.InDelta(t, -0.125, pred.Slope, 1e-12)
	want := types.AddDays(asOf, 50)
	assert.True(t, pred.CurrentDate.Equal(want), "current %s", pred.CurrentDate)
	assert.True(t, pred.BestDate.Equal(want), "best %s", pred.BestDate)
	require.NotNil(t, pred.WorstDate)
	assert.True(t, pred.WorstDate.Equal(want), "worst %s", pred.WorstDate)
	require.NotNil(t, pred.PlannedDate)
	assert.True(t, pred.PlannedDate.Equal(types.AddDays(asOf, 44)), "planned %s", pred.PlannedDate)
	assert.Equal(t, types.ConfidenceHigh, pred.Confidence)
	assert.Empty(t, pred.Reasons)
}

func TestPredictIgnoresSpikesOutsideWindow(t *testing.T) {
	s := build(40, func(i int) float64 { return 205 - 0.125*float64(i) })
	asOf := types.AddDays(day0, 39)
	spikes := []types.SpikeEvent{
		{Date: types.AddDays(day0, 2), Deviation: 3},
		{Date: types.AddDays(asOf, -3), Deviation: 2.5, Resolved: true},
	}

	pred, err := Predict(Input{Trend: s, Spikes: spikes, GoalWeight: 190, AsOf: asOf})
	require.NoError(t, err)
	assert.Equal(t, types.ConfidenceHigh, pred.Confidence)
	assert.Nil(t, pred.PlannedDate, "no goal rate, no planned date")
}

func TestPredictRangeFromWeeklySlopes(t *testing.T) {
	s := build(22, func(i int) float64 {
		switch {
		case i <= 7:
			return 200 - 0.25*float64(i)
		case i <= 14:
			return 198.25 - 0.125*float64(i-7)
		default:
			return 197.375 - 0.0625*float64(i-14)
		}
	})
	asOf := types.AddDays(day0, 21)

	pred, err := Predict(Input{Trend: s, GoalWeight: 190, AsOf: asOf})
	require.NoError(t, err)

	assert.True(t, pred.BestDate.Equal(types.AddDays(asOf, 28)), "best %s", pred.BestDate)
	require.NotNil(t, pred.WorstDate)
	assert.True(t, pred.WorstDate.Equal(types.AddDays(asOf, 111)), "worst %s", pred.WorstDate)
	assert.True(t, pred.BestDate.Before(pred.CurrentDate))
	assert.True(t, pred.CurrentDate.Before(*pred.WorstDate))
	assert.Equal(t, types.ConfidenceMedium, pred.Confidence)
	assert.Len(t, pred.Reasons, 1)
}

func TestPredictWorstNeverWhenAWeekReverses(t *testing.T) {
	s := build(22, func(i int) float64 {
		if i <= 14 {
			return 200 - 0.25*float64(i)
		}
		return 196.5 + 0.0625*float64(i-14)
	})
	asOf := types.AddDays(day0, 21)
	spikes := []types.SpikeEvent{{Date: types.AddDays(asOf, -1), Deviation: 2.4}}

	pred, err := Predict(Input{Trend: s, Spikes: spikes, GoalWeight: 185, AsOf: asOf})
	require.NoError(t, err)
	assert.Less(t, pred.Slope, 0.0)
	assert.Nil(t, pred.WorstDate)
	assert.Equal(t, types.ConfidenceLow, pred.Confidence)
	assert.NotEmpty(t, pred.Reasons)
}

func TestPredictDiverging(t *testing.T) {
	tests := []struct {
		name   string
		weight func(i int) float64
		goal   float64
	}{
		{"flat trend", func(int) float64 { return 200 }, 190},
		{"gaining toward a lower goal", func(i int) float64 { return 200 + 0.1*float64(i) }, 190},
		{"losing toward a higher goal", func(i int) float64 { return 160 - 0.1*float64(i) }, 170},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(28, tt.weight)
			_, err := Predict(Input{Trend: s, GoalWeight: tt.goal, AsOf: types.AddDays(day0, 27)})
			require.ErrorIs(t, err, types.ErrDivergingGoal)

			var de *types.DivergingGoalError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.goal, de.GoalWeight)
		})
	}
}

func TestPredictSlowProgressBeyondHorizon(t *testing.T) {
	s := build(28, func(i int) float64 { return 200 - 0.001*float64(i) })
	asOf := types.AddDays(day0, 27)

	pred, err := Predict(Input{Trend: s, GoalWeight: 180, GoalRate: -1.0, AsOf: asOf})
	require.NoError(t, err, "a slow loss toward a lower goal is not diverging")

	horizon := types.AddDays(asOf, maxHorizonDays)
	assert.True(t, pred.CurrentDate.Equal(horizon), "current %s", pred.CurrentDate)
	assert.True(t, pred.BestDate.Equal(horizon), "best %s", pred.BestDate)
	assert.Nil(t, pred.WorstDate)
	require.NotNil(t, pred.PlannedDate)
	assert.True(t, pred.PlannedDate.Before(horizon))
	assert.Equal(t, types.ConfidenceLow, pred.Confidence)
	require.NotEmpty(t, pred.Reasons)
	assert.Contains(t, pred.Reasons[0], "more than 10 years away")
}

func TestPredictAlreadyAtGoal(t *testing.T) {
	s := build(20, func(int) float64 { return 180 })
	asOf := types.AddDays(day0, 19)

	pred, err := Predict(Input{Trend: s, GoalWeight: 180.05, AsOf: asOf})
	require.NoError(t, err)
	assert.True(t, pred.BestDate.Equal(asOf))
	assert.True(t, pred.CurrentDate.Equal(asOf))
	require.NotNil(t, pred.WorstDate)
	assert.True(t, pred.WorstDate.Equal(asOf))
}

func TestPredictInsufficientData(t *testing.T) {
	short := build(5, func(i int) float64 { return 200 - 0.2*float64(i) })
	_, err := Predict(Input{Trend: short, GoalWeight: 190, AsOf: types.AddDays(day0, 4)})
	require.ErrorIs(t, err, types.ErrInsufficientData)

	// Readings exist but fall outside the lookback.
	old := build(20, func(i int) float64 { return 200 - 0.2*float64(i) })
	_, err = Predict(Input{Trend: old, GoalWeight: 190, AsOf: types.AddDays(day0, 60)})
	require.ErrorIs(t, err, types.ErrInsufficientData)

	_, err = Predict(Input{Trend: trend.Series{}, GoalWeight: 190, AsOf: day0})
	require.ErrorIs(t, err, types.ErrInsufficientData)
}

func TestPredictInvalidInput(t *testing.T) {
	s := build(28, func(i int) float64 { return 200 - 0.1*float64(i) })
	asOf := types.AddDays(day0, 27)
	for _, in := range []Input{
		{Trend: s, GoalWeight: 0, AsOf: asOf},
		{Trend: s, GoalWeight: -5, AsOf: asOf},
		{Trend: s, GoalWeight: 190},
		{Trend: s, GoalWeight: 190, AsOf: asOf, LookbackDays: 3},
	} {
		_, err := Predict(in)
		assert.ErrorIs(t, err, types.ErrInvalidMeasurement)
	}
}

func TestFitSlope(t *testing.T) {
	pts := []types.TrendPoint{
		{Date: day0, Weight: 10},
		{Date: types.AddDays(day0, 2), Weight: 14},
		{Date: types.AddDays(day0, 4), Weight: 18},
	}
	assert.InDelta(t, 2.0, fitSlope(pts), 1e-12)
}
