package types

import "time"

// Sex values accepted by the formula TDEE calculator.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// Profile holds the per-user inputs the engine needs from outside the
// time series: body data for the formula TDEE, the goal, and macro targets.
type Profile struct {
	UserID             string    `json:"user_id"`
	Sex                string    `json:"sex"`
	BirthDate          time.Time `json:"birth_date"`
	HeightCM           float64   `json:"height_cm"`
	ActivityLevel      string    `json:"activity_level"`
	GoalWeightLbs      float64   `json:"goal_weight_lbs,omitempty"`
	GoalRateLbsPerWeek float64   `json:"goal_rate_lbs_per_week"`
	CalorieTarget      int       `json:"calorie_target,omitempty"`
	ProteinPerLb       float64   `json:"protein_per_lb,omitempty"`
	FatPercent         float64   `json:"fat_percent,omitempty"`
}

// Validate checks the fields every profile must carry.
func (p Profile) Validate() error {
	if p.UserID == "" {
		return ErrInvalidUser
	}
	if p.Sex != SexMale && p.Sex != SexFemale {
		return &InvalidMeasurementError{Field: "sex", Value: p.Sex, Reason: "use male or female"}
	}
	if p.BirthDate.IsZero() {
		return &InvalidMeasurementError{Field: "birth date", Reason: "a birth date is required"}
	}
	if !finite(p.HeightCM) || p.HeightCM <= 0 {
		return InvalidValue("height", p.HeightCM, "height must be a positive number of centimetres")
	}
	if p.GoalWeightLbs < 0 || !finite(p.GoalWeightLbs) {
		return InvalidValue("goal weight", p.GoalWeightLbs, "goal weight cannot be negative")
	}
	if !finite(p.GoalRateLbsPerWeek) {
		return InvalidValue("goal rate", p.GoalRateLbsPerWeek, "goal rate must be a number")
	}
	if p.CalorieTarget < 0 {
		return InvalidValue("calorie target", float64(p.CalorieTarget), "calorie target cannot be negative")
	}
	if p.ProteinPerLb < 0 || p.FatPercent < 0 || p.FatPercent >= 1 {
		return &InvalidMeasurementError{Field: "macro plan", Reason: "protein g/lb must be >= 0 and fat share in [0, 1)"}
	}
	return nil
}

// UserContext scopes every engine call to one user and one explicit day.
// The engine never reads the wall clock to decide what "today" is.
type UserContext struct {
	UserID string
	AsOf   time.Time
}

// Validate rejects an empty user or a zero as-of date.
func (u UserContext) Validate() error {
	if u.UserID == "" {
		return ErrInvalidUser
	}
	if u.AsOf.IsZero() {
		return &InvalidMeasurementError{Field: "as-of date", Reason: "an as-of date is required"}
	}
	return nil
}
