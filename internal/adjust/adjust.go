// Package adjust turns a weekly check-in into a calorie and macro
// recommendation. Recommend is a pure function: it reads nothing but its
// Input, so calling it twice with the same Input returns the same result.
package adjust

import (
	"fmt"
	"math"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

const (
	// DefaultTolerance is the fraction of the goal rate accepted as on track.
	DefaultTolerance = 0.20

	// MaintenanceBand is the |actual rate| (lb/week) accepted as on track
	// when the goal is to hold weight.
	MaintenanceBand = 0.5

	smallStep = 100
	largeStep = 150

	// Above this |variance| the larger step applies.
	largeVariance = 0.5
	// Above this |actual rate| during maintenance the larger step applies.
	largeMaintenanceDrift = 2 * MaintenanceBand
)

// Status describes where the observed rate sits relative to the goal.
type Status string

const (
	StatusOnTrack    Status = "on_track"
	StatusOvershoot  Status = "overshoot"  // moving toward the goal faster than planned
	StatusUndershoot Status = "undershoot" // moving toward the goal slower than planned, or away
	StatusDrift      Status = "drift"      // maintenance outside the band
)

// Input is a weekly check-in. Rates are signed lb/week: negative loses,
// positive gains.
type Input struct {
	GoalRate        float64
	ActualRate      float64
	CurrentCalories int
	Tolerance       float64
	BodyweightLbs   float64
	Plan            MacroPlan
}

// Recommendation is the outcome of a check-in.
type Recommendation struct {
	GoalRate        float64      `json:"goal_rate"`
	ActualRate      float64      `json:"actual_rate"`
	Variance        float64      `json:"variance"`
	OnTrack         bool         `json:"on_track"`
	Status          Status       `json:"status"`
	Phase           types.Phase  `json:"phase"`
	CurrentCalories int          `json:"current_calories"`
	NewCalories     int          `json:"new_calories"`
	CalorieChange   int          `json:"calorie_change"`
	Rationale       string       `json:"rationale"`
	Macros          types.Macros `json:"new_macros"`
}

// Recommend applies the weekly adjustment rule.
//
// For a cut or bulk, variance = (actual − goal) / |goal| and the check-in is
// on track when |variance| ≤ tolerance. For maintenance (|goal| below
// types.MaintenanceEpsilon) it is on track when |actual| ≤ 0.5 lb/week.
// Off track, calories move by 150 kcal when the miss is large and 100 kcal
// otherwise: down when weight is running above plan, up when below it.
func Recommend(in Input) (Recommendation, error) {
	if err := validate(in); err != nil {
		return Recommendation{}, err
	}
	tolerance := in.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	phase := types.PhaseForRate(in.GoalRate)
	rec := Recommendation{
		GoalRate:        in.GoalRate,
		ActualRate:      in.ActualRate,
		Phase:           phase,
		CurrentCalories: in.CurrentCalories,
	}

	var magnitude int
	if phase == types.PhaseMaintain {
		rec.OnTrack = math.Abs(in.ActualRate) <= MaintenanceBand
		rec.Status = StatusDrift
		magnitude = smallStep
		if math.Abs(in.ActualRate) > largeMaintenanceDrift {
			magnitude = largeStep
		}
	} else {
		rec.Variance = (in.ActualRate - in.GoalRate) / math.Abs(in.GoalRate)
		rec.OnTrack = math.Abs(rec.Variance) <= tolerance
		rec.Status = StatusUndershoot
		if math.Abs(in.ActualRate) > math.Abs(in.GoalRate) && math.Signbit(in.ActualRate) == math.Signbit(in.GoalRate) {
			rec.Status = StatusOvershoot
		}
		magnitude = smallStep
		if math.Abs(rec.Variance) > largeVariance {
			magnitude = largeStep
		}
	}

	if rec.OnTrack {
		rec.Status = StatusOnTrack
	} else if in.ActualRate > in.GoalRate {
		rec.CalorieChange = -magnitude
	} else {
		rec.CalorieChange = magnitude
	}

	rec.NewCalories = in.CurrentCalories + rec.CalorieChange
	rec.Macros = SplitMacros(rec.NewCalories, in.BodyweightLbs, in.Plan)
	rec.Rationale = rationale(rec, tolerance)
	return rec, nil
}

func validate(in Input) error {
	if in.CurrentCalories <= 0 {
		return types.InvalidValue("current calories", float64(in.CurrentCalories), "the current calorie target must be positive")
	}
	if math.IsNaN(in.GoalRate) || math.IsInf(in.GoalRate, 0) {
		return types.InvalidValue("goal rate", in.GoalRate, "the goal rate must be a number of lb/week")
	}
	if math.IsNaN(in.ActualRate) || math.IsInf(in.ActualRate, 0) {
		return types.InvalidValue("actual rate", in.ActualRate, "the observed rate must be a number of lb/week")
	}
	if in.Tolerance < 0 || in.Tolerance > 1 || math.IsNaN(in.Tolerance) {
		return types.InvalidValue("tolerance", in.Tolerance, "tolerance must be between 0 and 1")
	}
	if in.BodyweightLbs < 0 || math.IsNaN(in.BodyweightLbs) {
		return types.InvalidValue("bodyweight", in.BodyweightLbs, "bodyweight cannot be negative")
	}
	return nil
}

func rationale(rec Recommendation, tolerance float64) string {
	observed := describeRate(rec.ActualRate)
	if rec.Phase == types.PhaseMaintain {
		if rec.OnTrack {
			return fmt.Sprintf("On track: your weight is holding steady (%s, within ±%.1f lb/week). Keep calories at %d.",
				observed, MaintenanceBand, rec.NewCalories)
		}
		return fmt.Sprintf("Your weight is drifting (%s) while the goal is to maintain. %s calories by %d to %d.",
			observed, verb(rec.CalorieChange), abs(rec.CalorieChange), rec.NewCalories)
	}

	goal := describeRate(rec.GoalRate)
	pct := math.Abs(rec.Variance) * 100
	switch rec.Status {
	case StatusOnTrack:
		return fmt.Sprintf("On track: %s against a goal of %s (within %.0f%%). Keep calories at %d.",
			observed, goal, tolerance*100, rec.NewCalories)
	case StatusOvershoot:
		return fmt.Sprintf("Progress is faster than planned: %s against a goal of %s (%.0f%% off). %s calories by %d to %d.",
			observed, goal, pct, verb(rec.CalorieChange), abs(rec.CalorieChange), rec.NewCalories)
	default:
		return fmt.Sprintf("Progress is slower than planned: %s against a goal of %s (%.0f%% off). %s calories by %d to %d.",
			observed, goal, pct, verb(rec.CalorieChange), abs(rec.CalorieChange), rec.NewCalories)
	}
}

func describeRate(rate float64) string {
	switch {
	case rate < 0:
		return fmt.Sprintf("losing %.2f lb/week", -rate)
	case rate > 0:
		return fmt.Sprintf("gaining %.2f lb/week", rate)
	default:
		return "no change"
	}
}

func verb(change int) string {
	if change < 0 {
		return "Lower"
	}
	return "Raise"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
