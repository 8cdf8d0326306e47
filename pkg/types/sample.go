package types

import (
	"math"
	"time"
)

// WeightSample is one raw scale reading. There is at most one per user per
// date; logging the same date again replaces the earlier reading.
type WeightSample struct {
	Date      time.Time `json:"date"`
	WeightLbs float64   `json:"weight_lbs"`
	Note      string    `json:"note,omitempty"`
}

// Validate rejects zero dates and non-positive or non-finite weights.
func (s WeightSample) Validate() error {
	if s.Date.IsZero() {
		return &InvalidMeasurementError{Field: "date", Reason: "a weight needs a date"}
	}
	if !finite(s.WeightLbs) || s.WeightLbs <= 0 {
		return InvalidValue("weight", s.WeightLbs, "weight must be a positive number of pounds")
	}
	return nil
}

// IntakeSample is one day of logged food.
type IntakeSample struct {
	Date     time.Time `json:"date"`
	Calories float64   `json:"calories"`
	ProteinG float64   `json:"protein_g"`
	FatG     float64   `json:"fat_g"`
	CarbsG   float64   `json:"carbs_g"`
}

// Validate rejects zero dates and negative or non-finite amounts. A logged
// day of zero calories is allowed (fasting).
func (s IntakeSample) Validate() error {
	if s.Date.IsZero() {
		return &InvalidMeasurementError{Field: "date", Reason: "a food log needs a date"}
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"calories", s.Calories},
		{"protein", s.ProteinG},
		{"fat", s.FatG},
		{"carbs", s.CarbsG},
	}
	for _, f := range fields {
		if !finite(f.v) || f.v < 0 {
			return InvalidValue(f.name, f.v, "amounts cannot be negative")
		}
	}
	return nil
}

// TrendPoint is one smoothed weight. Derived, never stored as source data.
type TrendPoint struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"trend_weight"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
