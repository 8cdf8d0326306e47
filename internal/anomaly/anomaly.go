// Package anomaly flags raw weigh-ins that sit far from the trend line as
// probable water-weight spikes. It only reads the trend; spikes never feed
// back into smoothing.
package anomaly

import (
	"math"
	"sort"
	"time"

	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// DefaultThreshold is the |raw − trend| in pounds that counts as a spike.
const DefaultThreshold = 2.0

// Ranked candidate causes. Advisory text only.
var (
	gainCauses = []types.Cause{
		{Code: "high_sodium", Description: "A salty meal makes the body hold extra water for a day or two."},
		{Code: "carb_refeed", Description: "Extra carbohydrate is stored as glycogen along with about three times its weight in water."},
		{Code: "hydration_shift", Description: "Drinking more than usual, or weighing before using the bathroom, adds temporary weight."},
		{Code: "hormonal_cycle", Description: "Menstrual and other hormonal cycles commonly shift water balance by several pounds."},
		{Code: "training_inflammation", Description: "Muscles retain fluid while repairing after a hard or new workout."},
		{Code: "measurement_error", Description: "A different scale, surface, time of day or clothing changes the reading."},
	}
	dropCauses = []types.Cause{
		{Code: "hydration_shift", Description: "Sweating, illness or drinking less than usual lowers body water temporarily."},
		{Code: "carb_restriction", Description: "A low-carbohydrate day empties glycogen stores and the water bound to them."},
		{Code: "measurement_error", Description: "A different scale, surface, time of day or clothing changes the reading."},
		{Code: "hormonal_cycle", Description: "Water retained earlier in a hormonal cycle is often released all at once."},
	}
)

// Causes returns the ranked candidate causes for a deviation's direction.
func Causes(deviation float64) []types.Cause {
	src := gainCauses
	if deviation < 0 {
		src = dropCauses
	}
	return append([]types.Cause(nil), src...)
}

// ValidateThreshold rejects non-positive thresholds.
func ValidateThreshold(threshold float64) error {
	if !(threshold > 0) || math.IsInf(threshold, 0) {
		return types.InvalidValue("spike threshold", threshold, "the threshold must be a positive number of pounds")
	}
	return nil
}

// Detect compares each raw sample dated in [from, to] with the trend carried
// into that date, i.e. the trend before the sample itself is blended in, and
// returns the spikes newest first. The first reading has no prior trend and
// is never a spike. The series must be the full trend smoothed from raw.
// A spike is Resolved when any later raw sample (inside or after the range)
// lands back within the threshold.
func Detect(raw []types.WeightSample, series trend.Series, from, to time.Time, threshold float64) ([]types.SpikeEvent, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	ordered := append([]types.WeightSample(nil), raw...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	deviations := make([]float64, len(ordered))
	expected := make([]float64, len(ordered))
	for i, s := range ordered {
		tw, ok := series.At(types.AddDays(s.Date, -1))
		if !ok {
			deviations[i] = math.NaN()
			continue
		}
		expected[i] = tw
		deviations[i] = s.WeightLbs - tw
	}

	// calmAfter[i] is true when some later sample sits within the threshold.
	calmAfter := make([]bool, len(ordered))
	calm := false
	for i := len(ordered) - 1; i >= 0; i-- {
		calmAfter[i] = calm
		if !math.IsNaN(deviations[i]) && math.Abs(deviations[i]) < threshold {
			calm = true
		}
	}

	var events []types.SpikeEvent
	for i, s := range ordered {
		dev := deviations[i]
		if math.IsNaN(dev) || !types.InRange(s.Date, from, to) {
			continue
		}
		if math.Abs(dev) < threshold {
			continue
		}
		events = append(events, types.SpikeEvent{
			Date:        types.Day(s.Date),
			RawWeight:   s.WeightLbs,
			TrendWeight: expected[i],
			Deviation:   dev,
			Causes:      Causes(dev),
			Resolved:    calmAfter[i],
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.After(events[j].Date) })
	return events, nil
}

// Unresolved counts spikes that have not yet returned to trend.
func Unresolved(events []types.SpikeEvent) int {
	n := 0
	for _, e := range events {
		if !e.Resolved {
			n++
		}
	}
	return n
}
