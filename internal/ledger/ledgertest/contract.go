// Package ledgertest is the behaviour every store implementation must share.
// Backends call Run from their own tests.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Store is a full read/write store.
type Store interface {
	types.Store
	types.SampleWriter
}

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return types.AddDays(day0, n) }

// Profile is a valid profile for user.
func Profile(user string) types.Profile {
	return types.Profile{
		UserID:             user,
		Sex:                types.SexFemale,
		BirthDate:          time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
		HeightCM:           168,
		ActivityLevel:      "light",
		GoalWeightLbs:      150,
		GoalRateLbsPerWeek: -0.75,
		CalorieTarget:      1900,
		ProteinPerLb:       0.9,
		FatPercent:         0.3,
	}
}

// Run exercises newStore against the shared contract. Each subtest gets a
// fresh store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("weight upsert keeps one sample per day", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(0), WeightLbs: 180}))
		require.NoError(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(0).Add(9 * time.Hour), WeightLbs: 179.4, Note: "relog"}))

		got, err := s.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 179.4, got[0].WeightLbs)
		assert.Equal(t, "relog", got[0].Note)
		assert.True(t, got[0].Date.Equal(day(0)))
	})

	t.Run("samples come back in date order within range", func(t *testing.T) {
		s := newStore(t)
		for _, n := range []int{4, 1, 3, 0, 2} {
			require.NoError(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(n), WeightLbs: 180 + float64(n)}))
			require.NoError(t, s.PutIntake(ctx, "u1", types.IntakeSample{Date: day(n), Calories: 2000 + float64(n)}))
		}

		weights, err := s.WeightSamples(ctx, "u1", day(1), day(3))
		require.NoError(t, err)
		require.Len(t, weights, 3)
		for i, w := range weights {
			assert.True(t, w.Date.Equal(day(i+1)))
		}

		intakes, err := s.IntakeSamples(ctx, "u1", day(3), time.Time{})
		require.NoError(t, err)
		require.Len(t, intakes, 2)
		assert.Equal(t, 2003.0, intakes[0].Calories)
		assert.Equal(t, 2004.0, intakes[1].Calories)
	})

	t.Run("intake upsert replaces the day", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutIntake(ctx, "u1", types.IntakeSample{Date: day(0), Calories: 1500}))
		require.NoError(t, s.PutIntake(ctx, "u1", types.IntakeSample{Date: day(0), Calories: 2100, ProteinG: 150, FatG: 70, CarbsG: 210}))

		got, err := s.IntakeSamples(ctx, "u1", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, types.IntakeSample{Date: day(0), Calories: 2100, ProteinG: 150, FatG: 70, CarbsG: 210}, got[0])
	})

	t.Run("delete weight", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(0), WeightLbs: 180}))
		require.NoError(t, s.DeleteWeight(ctx, "u1", day(0)))
		assert.ErrorIs(t, s.DeleteWeight(ctx, "u1", day(0)), types.ErrNotFound)

		got, err := s.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid samples are rejected", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(0), WeightLbs: -1}), types.ErrInvalidMeasurement)
		assert.ErrorIs(t, s.PutIntake(ctx, "u1", types.IntakeSample{Date: day(0), Calories: -10}), types.ErrInvalidMeasurement)
		assert.ErrorIs(t, s.PutWeight(ctx, "", types.WeightSample{Date: day(0), WeightLbs: 180}), types.ErrInvalidUser)
	})

	t.Run("profile round trip", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Profile(ctx, "u1")
		assert.ErrorIs(t, err, types.ErrNotFound)

		want := Profile("u1")
		require.NoError(t, s.PutProfile(ctx, want))
		got, err := s.Profile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		want.CalorieTarget = 1800
		require.NoError(t, s.PutProfile(ctx, want))
		got, err = s.Profile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1800, got.CalorieTarget)
	})

	t.Run("formula tdee uses the latest weight on or before as-of", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FormulaTDEE(ctx, "u1", day(5))
		assert.ErrorIs(t, err, types.ErrNotFound)

		require.NoError(t, s.PutProfile(ctx, Profile("u1")))
		_, err = s.FormulaTDEE(ctx, "u1", day(5))
		assert.ErrorIs(t, err, types.ErrInsufficientData)

		require.NoError(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(0), WeightLbs: 170}))
		require.NoError(t, s.PutWeight(ctx, "u1", types.WeightSample{Date: day(9), WeightLbs: 160}))

		at5, err := s.FormulaTDEE(ctx, "u1", day(5))
		require.NoError(t, err)
		at9, err := s.FormulaTDEE(ctx, "u1", day(9))
		require.NoError(t, err)
		assert.Greater(t, at5, at9, "a heavier body burns more")
	})

	t.Run("snapshot replace keeps the id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Snapshot(ctx, "u1", day(0))
		assert.ErrorIs(t, err, types.ErrNotFound)

		first, err := s.PutSnapshot(ctx, types.TDEESnapshot{UserID: "u1", Date: day(0), AdaptiveTDEE: 2200})
		require.NoError(t, err)
		require.NotEmpty(t, first.SnapshotID)

		second, err := s.PutSnapshot(ctx, types.TDEESnapshot{UserID: "u1", Date: day(0), AdaptiveTDEE: 2250, SnapshotID: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, first.SnapshotID, second.SnapshotID)

		all, err := s.Snapshots(ctx, "u1", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 2250.0, all[0].AdaptiveTDEE)
		assert.Equal(t, first.SnapshotID, all[0].SnapshotID)
	})

	t.Run("snapshot fields round trip", func(t *testing.T) {
		s := newStore(t)
		want := types.TDEESnapshot{
			SnapshotID:          "0190a1b2-0000-7000-8000-000000000001",
			UserID:              "u1",
			Date:                day(3),
			FormulaTDEE:         2310.5,
			AdaptiveTDEE:        2200,
			TDEEDelta:           -110.5,
			AverageIntake14d:    1700,
			WeightChange14d:     -2,
			TrendWeight:         181.25,
			GoalRate:            -1,
			ActualRate:          -0.75,
			PercentDeviation:    25,
			RecommendedCalories: 1600,
			CalorieAdjustment:   -100,
			RecommendedMacros:   types.Macros{ProteinG: 180, FatG: 44, CarbsG: 121},
			Phase:               types.PhaseCut,
			Confidence:          types.ConfidenceHigh,
			ComputedAt:          time.Date(2024, 1, 4, 7, 30, 0, 0, time.UTC),
		}
		_, err := s.PutSnapshot(ctx, want)
		require.NoError(t, err)

		got, err := s.Snapshot(ctx, "u1", day(3))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("snapshots range ascending and isolated by user", func(t *testing.T) {
		s := newStore(t)
		for _, n := range []int{5, 2, 8, 0} {
			_, err := s.PutSnapshot(ctx, types.TDEESnapshot{UserID: "u1", Date: day(n), TrendWeight: float64(n)})
			require.NoError(t, err)
		}
		_, err := s.PutSnapshot(ctx, types.TDEESnapshot{UserID: "u2", Date: day(5)})
		require.NoError(t, err)

		got, err := s.Snapshots(ctx, "u1", day(1), day(8))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[0].Date.Equal(day(2)))
		assert.True(t, got[1].Date.Equal(day(5)))
		assert.True(t, got[2].Date.Equal(day(8)))

		other, err := s.Snapshots(ctx, "u2", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})

	t.Run("snapshot without user is rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.PutSnapshot(ctx, types.TDEESnapshot{Date: day(0)})
		assert.ErrorIs(t, err, types.ErrInvalidUser)
	})
}
