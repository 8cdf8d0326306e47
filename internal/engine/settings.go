package engine

import (
	"fmt"

	"github.com/mesh-intelligence/metabolic/internal/adjust"
	"github.com/mesh-intelligence/metabolic/internal/anomaly"
	"github.com/mesh-intelligence/metabolic/internal/expenditure"
	"github.com/mesh-intelligence/metabolic/internal/goal"
	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// DefaultCheckInDays is the span over which the actual weekly rate is
// measured.
const DefaultCheckInDays = 7

// Settings are the tunables of the engine. Zero fields take the package
// defaults of the stage that owns them.
type Settings struct {
	Alpha             float64 `mapstructure:"alpha" yaml:"alpha"`
	WindowDays        int     `mapstructure:"window_days" yaml:"window_days"`
	CheckInDays       int     `mapstructure:"check_in_days" yaml:"check_in_days"`
	SpikeThreshold    float64 `mapstructure:"spike_threshold" yaml:"spike_threshold"`
	Tolerance         float64 `mapstructure:"tolerance" yaml:"tolerance"`
	LookbackDays      int     `mapstructure:"lookback_days" yaml:"lookback_days"`
	MinGoalWindowDays int     `mapstructure:"min_goal_window_days" yaml:"min_goal_window_days"`
}

// DefaultSettings returns the settings with every default filled in.
func DefaultSettings() Settings {
	return Settings{
		Alpha:             trend.DefaultAlpha,
		WindowDays:        expenditure.DefaultWindowDays,
		CheckInDays:       DefaultCheckInDays,
		SpikeThreshold:    anomaly.DefaultThreshold,
		Tolerance:         adjust.DefaultTolerance,
		LookbackDays:      goal.DefaultLookbackDays,
		MinGoalWindowDays: goal.DefaultMinWindowDays,
	}
}

// withDefaults fills zero fields.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Alpha == 0 {
		s.Alpha = d.Alpha
	}
	if s.WindowDays == 0 {
		s.WindowDays = d.WindowDays
	}
	if s.CheckInDays == 0 {
		s.CheckInDays = d.CheckInDays
	}
	if s.SpikeThreshold == 0 {
		s.SpikeThreshold = d.SpikeThreshold
	}
	if s.Tolerance == 0 {
		s.Tolerance = d.Tolerance
	}
	if s.LookbackDays == 0 {
		s.LookbackDays = d.LookbackDays
	}
	if s.MinGoalWindowDays == 0 {
		s.MinGoalWindowDays = d.MinGoalWindowDays
	}
	return s
}

// Validate checks every field after defaults are applied.
func (s Settings) Validate() error {
	s = s.withDefaults()
	if err := trend.ValidateAlpha(s.Alpha); err != nil {
		return err
	}
	if err := anomaly.ValidateThreshold(s.SpikeThreshold); err != nil {
		return err
	}
	if s.WindowDays < 2 {
		return types.InvalidValue("window", float64(s.WindowDays), "the window must span at least two days")
	}
	if s.CheckInDays < 1 {
		return types.InvalidValue("check-in days", float64(s.CheckInDays), "the check-in span must be at least one day")
	}
	if s.Tolerance < 0 || s.Tolerance > 1 {
		return types.InvalidValue("tolerance", s.Tolerance, "tolerance must be between 0 and 1")
	}
	if s.LookbackDays < 8 {
		return types.InvalidValue("lookback", float64(s.LookbackDays), "the lookback must be at least 8 days")
	}
	if s.MinGoalWindowDays < 1 || s.MinGoalWindowDays > s.LookbackDays {
		return &types.InvalidMeasurementError{
			Field:  "minimum goal window",
			Value:  fmt.Sprint(s.MinGoalWindowDays),
			Reason: "it must be between 1 and the lookback",
		}
	}
	return nil
}
