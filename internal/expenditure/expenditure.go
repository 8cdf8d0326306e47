// Package expenditure back-calculates adaptive TDEE from the change in
// trend weight and the average logged intake over a rolling window.
//
// A pound of body mass is taken as 3500 kcal. Losing weight means the body
// spent more than was eaten, so adaptive TDEE = mean intake − energy change
// per day, where a loss makes the energy change negative.
package expenditure

import (
	"fmt"
	"math"
	"time"

	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

const (
	// DefaultWindowDays is the rolling window length.
	DefaultWindowDays = 14

	// KcalPerLb is the energy density used to convert weight change.
	KcalPerLb = 3500.0

	// Sanity bounds relative to the formula TDEE.
	lowerBoundRatio = 0.5
	upperBoundRatio = 2.0

	// Above this |adaptive − formula| / formula the estimate is medium.
	adaptationRatio = 0.25
)

// Input is everything the estimator needs. The trend must be the full
// replayed series through AsOf; Weights and Intake are the raw logs used to
// check window coverage.
type Input struct {
	Trend       trend.Series
	Weights     []types.WeightSample
	Intake      []types.IntakeSample
	FormulaTDEE float64
	AsOf        time.Time
	WindowDays  int
}

// Result is an adaptive TDEE estimate for one window.
type Result struct {
	AsOf              time.Time        `json:"as_of"`
	WindowStart       time.Time        `json:"window_start"`
	WindowDays        int              `json:"window_days"`
	FormulaTDEE       float64          `json:"formula_tdee"`
	AdaptiveTDEE      float64          `json:"adaptive_tdee"`
	UnclampedTDEE     float64          `json:"unclamped_tdee"`
	TDEEDelta         float64          `json:"delta"`
	AverageIntake     float64          `json:"average_intake"`
	WeightChange      float64          `json:"weight_change"`
	EnergyDeltaPerDay float64          `json:"energy_delta_per_day"`
	TrendStart        float64          `json:"trend_start"`
	TrendEnd          float64          `json:"trend_end"`
	Clamped           bool             `json:"clamped"`
	Confidence        types.Confidence `json:"confidence"`
}

// Compute estimates adaptive TDEE for the window ending at in.AsOf.
//
// It fails with an InsufficientDataError unless every day of the window has
// both a weight and an intake log. When the estimate falls outside
// [0.5×formula, 2×formula] it is clamped to the nearer bound and returned
// together with a LowConfidenceError; the Result is valid in that case.
func Compute(in Input) (Result, error) {
	window := in.WindowDays
	if window == 0 {
		window = DefaultWindowDays
	}
	if window < 2 {
		return Result{}, types.InvalidValue("window", float64(window), "the window must span at least two days")
	}
	if in.AsOf.IsZero() {
		return Result{}, &types.InvalidMeasurementError{Field: "as-of date", Reason: "an as-of date is required"}
	}
	if math.IsNaN(in.FormulaTDEE) || math.IsInf(in.FormulaTDEE, 0) || in.FormulaTDEE <= 0 {
		return Result{}, types.InvalidValue("formula TDEE", in.FormulaTDEE, "the formula estimate must be a positive number of calories")
	}

	asOf := types.Day(in.AsOf)
	start := types.AddDays(asOf, -(window - 1))

	if n := weightCoverage(in.Weights, start, asOf); n < window {
		return Result{}, &types.InsufficientDataError{Kind: types.KindWeight, Available: n, Required: window}
	}
	total, n := intakeCoverage(in.Intake, start, asOf)
	if n < window {
		return Result{}, &types.InsufficientDataError{Kind: types.KindIntake, Available: n, Required: window}
	}

	trendStart, ok := in.Trend.At(start)
	if !ok {
		return Result{}, &types.InsufficientDataError{Kind: types.KindWeight, Available: 0, Required: window}
	}
	trendEnd, _ := in.Trend.At(asOf)

	change := trendEnd - trendStart
	energyPerDay := change * KcalPerLb / float64(window)
	avgIntake := total / float64(window)
	adaptive := avgIntake - energyPerDay

	res := Result{
		AsOf:              asOf,
		WindowStart:       start,
		WindowDays:        window,
		FormulaTDEE:       in.FormulaTDEE,
		UnclampedTDEE:     adaptive,
		AverageIntake:     avgIntake,
		WeightChange:      change,
		EnergyDeltaPerDay: energyPerDay,
		TrendStart:        trendStart,
		TrendEnd:          trendEnd,
		Confidence:        types.ConfidenceHigh,
	}

	var flag error
	lower := lowerBoundRatio * in.FormulaTDEE
	upper := upperBoundRatio * in.FormulaTDEE
	switch {
	case adaptive < lower:
		flag = &types.LowConfidenceError{Reason: fmt.Sprintf(
			"Estimated expenditure of %.0f kcal/day is below half of your formula estimate (%.0f); it is held at %.0f until more consistent logs arrive.",
			adaptive, in.FormulaTDEE, lower)}
		adaptive = lower
	case adaptive > upper:
		flag = &types.LowConfidenceError{Reason: fmt.Sprintf(
			"Estimated expenditure of %.0f kcal/day is more than double your formula estimate (%.0f); it is held at %.0f until more consistent logs arrive.",
			adaptive, in.FormulaTDEE, upper)}
		adaptive = upper
	}

	res.AdaptiveTDEE = adaptive
	res.TDEEDelta = adaptive - in.FormulaTDEE
	switch {
	case flag != nil:
		res.Clamped = true
		res.Confidence = types.ConfidenceLow
	case math.Abs(res.TDEEDelta)/in.FormulaTDEE > adaptationRatio:
		res.Confidence = types.ConfidenceMedium
	}
	return res, flag
}

// Narrative describes the metabolic adaptation implied by a result.
func (r Result) Narrative() string {
	switch {
	case math.Abs(r.TDEEDelta) < 50:
		return fmt.Sprintf("Your measured expenditure (%.0f kcal/day) matches the formula estimate.", r.AdaptiveTDEE)
	case r.TDEEDelta < 0:
		return fmt.Sprintf("You are burning about %.0f kcal/day less than the formula predicts (%.0f vs %.0f).",
			-r.TDEEDelta, r.AdaptiveTDEE, r.FormulaTDEE)
	default:
		return fmt.Sprintf("You are burning about %.0f kcal/day more than the formula predicts (%.0f vs %.0f).",
			r.TDEEDelta, r.AdaptiveTDEE, r.FormulaTDEE)
	}
}

func weightCoverage(samples []types.WeightSample, from, to time.Time) int {
	seen := make(map[time.Time]bool)
	for _, s := range samples {
		if types.InRange(s.Date, from, to) {
			seen[types.Day(s.Date)] = true
		}
	}
	return len(seen)
}

func intakeCoverage(samples []types.IntakeSample, from, to time.Time) (total float64, days int) {
	// Summed in input order so identical inputs give bit-identical totals.
	seen := make(map[time.Time]bool)
	for _, s := range samples {
		day := types.Day(s.Date)
		if !types.InRange(day, from, to) || seen[day] {
			continue
		}
		seen[day] = true
		total += s.Calories
	}
	return total, len(seen)
}
