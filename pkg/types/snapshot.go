package types

import (
	"math"
	"time"
)

// Phase is the coaching phase implied by a goal rate.
type Phase string

const (
	PhaseCut      Phase = "cut"
	PhaseBulk     Phase = "bulk"
	PhaseMaintain Phase = "maintain"
)

// MaintenanceEpsilon is the largest |goal rate| (lb/week) still treated as
// maintenance or recomposition.
const MaintenanceEpsilon = 0.05

// PhaseForRate classifies a signed weekly goal rate.
func PhaseForRate(goalRate float64) Phase {
	switch {
	case math.Abs(goalRate) < MaintenanceEpsilon:
		return PhaseMaintain
	case goalRate < 0:
		return PhaseCut
	default:
		return PhaseBulk
	}
}

// Confidence is a categorical trust level attached to estimates.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Macros is a daily macronutrient split in grams.
type Macros struct {
	ProteinG int `json:"protein_g"`
	FatG     int `json:"fat_g"`
	CarbsG   int `json:"carbs_g"`
}

// Calories returns the energy of the split at 4/9/4 kcal per gram.
func (m Macros) Calories() int {
	return m.ProteinG*4 + m.FatG*9 + m.CarbsG*4
}

// TDEESnapshot is one day's computed check-in, keyed by (UserID, Date).
// Recomputing a date replaces the stored snapshot but keeps SnapshotID.
type TDEESnapshot struct {
	SnapshotID          string     `json:"snapshot_id"`
	UserID              string     `json:"user_id"`
	Date                time.Time  `json:"date"`
	FormulaTDEE         float64    `json:"formula_tdee"`
	AdaptiveTDEE        float64    `json:"adaptive_tdee"`
	TDEEDelta           float64    `json:"tdee_delta"`
	AverageIntake14d    float64    `json:"average_intake_14d"`
	WeightChange14d     float64    `json:"weight_change_14d"`
	TrendWeight         float64    `json:"trend_weight"`
	GoalRate            float64    `json:"goal_rate"`
	ActualRate          float64    `json:"actual_rate"`
	PercentDeviation    float64    `json:"percent_deviation"`
	RecommendedCalories int        `json:"recommended_calories"`
	CalorieAdjustment   int        `json:"calorie_adjustment"`
	RecommendedMacros   Macros     `json:"recommended_macros"`
	Phase               Phase      `json:"phase"`
	Confidence          Confidence `json:"confidence"`
	ComputedAt          time.Time  `json:"computed_at"`
}

// Validate checks the key fields a ledger needs.
func (s TDEESnapshot) Validate() error {
	if s.UserID == "" {
		return ErrInvalidUser
	}
	if s.Date.IsZero() {
		return &InvalidMeasurementError{Field: "date", Reason: "a snapshot needs a date"}
	}
	return nil
}

// Cause is one plausible non-fat explanation for a spike.
type Cause struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// SpikeEvent flags a raw reading far from trend. Advisory only.
type SpikeEvent struct {
	Date        time.Time `json:"date"`
	RawWeight   float64   `json:"raw_weight"`
	TrendWeight float64   `json:"trend_weight"`
	Deviation   float64   `json:"deviation"`
	Causes      []Cause   `json:"candidate_causes"`
	Resolved    bool      `json:"resolved"`
}

// GoalPrediction is a goal-date range. WorstDate is nil when the shallowest
// recent pace would never reach the goal.
type GoalPrediction struct {
	CurrentWeight float64    `json:"current_weight"`
	GoalWeight    float64    `json:"goal_weight"`
	GoalRate      float64    `json:"goal_rate"`
	Slope         float64    `json:"slope"`
	BestDate      time.Time  `json:"best_date"`
	CurrentDate   time.Time  `json:"current_date"`
	WorstDate     *time.Time `json:"worst_date"`
	PlannedDate   *time.Time `json:"planned_date,omitempty"`
	Confidence    Confidence `json:"confidence"`
	Reasons       []string   `json:"reasons,omitempty"`
}
