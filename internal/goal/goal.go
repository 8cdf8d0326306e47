// Package goal projects when the weight trend will reach a goal weight.
//
// The projection is a range rather than a point: the current case uses a
// least-squares slope over the whole lookback, the best and worst cases use
// the steepest and shallowest 7-day slopes inside it.
package goal

import (
	"fmt"
	"math"
	"time"

	"github.com/mesh-intelligence/metabolic/internal/anomaly"
	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

const (
	DefaultLookbackDays  = 28
	DefaultMinWindowDays = 14

	// Projections stop at this horizon. The worst and planned cases
	// beyond it are reported as never.
	maxHorizonDays = 3650

	// A goal within this many pounds of the trend counts as reached.
	reachedWithin = 0.1

	minSpanDays = 7
	blockDays   = 7

	noisyWeeklyRate   = 0.5
	erraticWeeklyRate = 1.0
)

// Input describes one projection request. Trend is the full replayed series;
// Spikes are the spike events detected over the same data.
type Input struct {
	Trend         trend.Series
	Spikes        []types.SpikeEvent
	GoalWeight    float64
	GoalRate      float64
	AsOf          time.Time
	LookbackDays  int
	MinWindowDays int
}

// Predict returns the goal-date range for in. It fails with a
// DivergingGoalError only when the current slope is flat or points away from
// the goal. A slope toward the goal that would take longer than the horizon
// yields dates capped at the horizon with low confidence. It fails with
// InsufficientData when the lookback holds fewer than two readings or spans
// less than a week.
func Predict(in Input) (types.GoalPrediction, error) {
	lookback := in.LookbackDays
	if lookback == 0 {
		lookback = DefaultLookbackDays
	}
	minWindow := in.MinWindowDays
	if minWindow == 0 {
		minWindow = DefaultMinWindowDays
	}
	if lookback < minSpanDays+1 {
		return types.GoalPrediction{}, types.InvalidValue("lookback", float64(lookback), fmt.Sprintf("the lookback must be at least %d days", minSpanDays+1))
	}
	if !(in.GoalWeight > 0) || math.IsInf(in.GoalWeight, 0) {
		return types.GoalPrediction{}, types.InvalidValue("goal weight", in.GoalWeight, "the goal weight must be a positive number of pounds")
	}
	if math.IsNaN(in.GoalRate) || math.IsInf(in.GoalRate, 0) {
		return types.GoalPrediction{}, types.InvalidValue("goal rate", in.GoalRate, "the goal rate must be a number of lb/week")
	}
	if in.AsOf.IsZero() {
		return types.GoalPrediction{}, &types.InvalidMeasurementError{Field: "as-of date", Reason: "an as-of date is required"}
	}

	asOf := types.Day(in.AsOf)
	windowStart := types.AddDays(asOf, -(lookback - 1))
	points := in.Trend.Range(windowStart, asOf).Points()
	if len(points) < 2 || types.DaysBetween(points[0].Date, points[len(points)-1].Date) < minSpanDays {
		return types.GoalPrediction{}, &types.InsufficientDataError{
			Kind:      types.KindWeight,
			Available: len(points),
			Required:  minWindow,
		}
	}

	current, _ := in.Trend.At(asOf)
	slope := fitSlope(points)
	gap := in.GoalWeight - current

	pred := types.GoalPrediction{
		CurrentWeight: current,
		GoalWeight:    in.GoalWeight,
		GoalRate:      in.GoalRate,
		Slope:         slope,
	}

	weekly := blockSlopes(in.Trend, points[0].Date, asOf)
	pred.Confidence, pred.Reasons = confidence(points, weekly, in.Spikes, windowStart, asOf, lookback, minWindow)

	if math.Abs(gap) < reachedWithin {
		pred.BestDate, pred.CurrentDate = asOf, asOf
		pred.WorstDate, pred.PlannedDate = &asOf, &asOf
		pred.Reasons = append(pred.Reasons, "Your trend weight is already at your goal.")
		return pred, nil
	}

	days, ok := daysToGoal(gap, slope)
	if !ok {
		return types.GoalPrediction{}, &types.DivergingGoalError{
			CurrentWeight: current,
			GoalWeight:    in.GoalWeight,
			SlopePerWeek:  slope * 7,
		}
	}
	pred.CurrentDate = capped(asOf, days)
	if days > maxHorizonDays {
		pred.Confidence = types.ConfidenceLow
		pred.Reasons = append(pred.Reasons, fmt.Sprintf(
			"At your current pace of %+.2f lb/week the goal is more than %d years away; the dates shown stop at that horizon.",
			slope*7, maxHorizonDays/365))
	}

	// Rates toward the goal are positive; the current slope is a candidate
	// so best <= current <= worst always holds.
	dir := math.Copysign(1, gap)
	steepest, shallowest := slope*dir, slope*dir
	for _, w := range weekly {
		steepest = math.Max(steepest, w*dir)
		shallowest = math.Min(shallowest, w*dir)
	}
	bestDays, _ := daysToGoal(gap, steepest*dir)
	pred.BestDate = capped(asOf, bestDays)
	pred.WorstDate = project(asOf, gap, shallowest*dir)
	if pred.WorstDate == nil {
		pred.Reasons = append(pred.Reasons, "At your slowest recent week's pace the goal would not be reached.")
	}
	pred.PlannedDate = project(asOf, gap, in.GoalRate/7)
	return pred, nil
}

// daysToGoal returns the days needed to cover gap at slope lb/day. ok is
// false when slope is flat or points away from the goal.
func daysToGoal(gap, slope float64) (days float64, ok bool) {
	if slope == 0 || math.Signbit(slope) != math.Signbit(gap) {
		return 0, false
	}
	return math.Ceil(gap / slope), true
}

// capped returns asOf plus days, stopping at the horizon.
func capped(asOf time.Time, days float64) time.Time {
	return types.AddDays(asOf, int(math.Min(days, maxHorizonDays)))
}

// project returns asOf plus the days needed to cover gap at slope lb/day,
// or nil when slope does not lead to the goal within the horizon.
func project(asOf time.Time, gap, slope float64) *time.Time {
	days, ok := daysToGoal(gap, slope)
	if !ok || days > maxHorizonDays {
		return nil
	}
	d := types.AddDays(asOf, int(days))
	return &d
}

// fitSlope is the ordinary least squares slope of weight over day index.
func fitSlope(points []types.TrendPoint) float64 {
	origin := points[0].Date
	var sumX, sumY, sumXX, sumXY float64
	for _, p := range points {
		x := float64(types.DaysBetween(origin, p.Date))
		sumX += x
		sumY += p.Weight
		sumXX += x * x
		sumXY += x * p.Weight
	}
	n := float64(len(points))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// blockSlopes returns the lb/day slope of each consecutive 7-day block that
// ends at asOf and starts no earlier than first, newest block first.
func blockSlopes(s trend.Series, first, asOf time.Time) []float64 {
	var out []float64
	for end := asOf; ; end = types.AddDays(end, -blockDays) {
		start := types.AddDays(end, -blockDays)
		if start.Before(first) {
			return out
		}
		a, okA := s.At(start)
		b, okB := s.At(end)
		if !okA || !okB {
			return out
		}
		out = append(out, (b-a)/blockDays)
	}
}

func confidence(points []types.TrendPoint, weekly []float64, spikes []types.SpikeEvent, from, to time.Time, lookback, minWindow int) (types.Confidence, []string) {
	var reasons []string
	penalties := 0

	if len(points) < minWindow {
		penalties++
		reasons = append(reasons, fmt.Sprintf(
			"Only %d weigh-ins in the last %d days; %d are needed for a confident projection.", len(points), lookback, minWindow))
	}

	if len(weekly) >= 2 {
		sd := stddev(weekly) * 7
		switch {
		case sd > erraticWeeklyRate:
			penalties += 2
			reasons = append(reasons, fmt.Sprintf("Your weekly rate has swung widely (±%.2f lb/week).", sd))
		case sd > noisyWeeklyRate:
			penalties++
			reasons = append(reasons, fmt.Sprintf("Your weekly rate has varied (±%.2f lb/week).", sd))
		}
	} else {
		penalties++
		reasons = append(reasons, "Fewer than two full weeks of trend to judge consistency.")
	}

	var inWindow []types.SpikeEvent
	for _, e := range spikes {
		if types.InRange(e.Date, from, to) {
			inWindow = append(inWindow, e)
		}
	}
	if n := anomaly.Unresolved(inWindow); n > 0 {
		penalties++
		reasons = append(reasons, fmt.Sprintf("%d recent water-weight spike(s) have not settled yet.", n))
	}

	switch {
	case penalties == 0:
		return types.ConfidenceHigh, reasons
	case penalties == 1:
		return types.ConfidenceMedium, reasons
	default:
		return types.ConfidenceLow, reasons
	}
}

func stddev(values []float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)))
}
