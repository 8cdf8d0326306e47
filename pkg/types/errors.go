package types

import (
	"errors"
	"fmt"
	"math"
)

// Error kinds. Every typed error below unwraps to one of these, so callers
// can test with errors.Is and still show Error() to the user verbatim.
var (
	ErrInvalidMeasurement = errors.New("invalid measurement")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrDivergingGoal      = errors.New("trend diverges from goal")
	ErrLowConfidence      = errors.New("low confidence result")
)

// Store errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidUser     = errors.New("user id must not be empty")
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// DataKind names the series an InsufficientDataError refers to.
type DataKind string

const (
	KindWeight DataKind = "weight"
	KindIntake DataKind = "intake"
)

// InvalidMeasurementError rejects a sample or parameter at the boundary.
type InvalidMeasurementError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidMeasurementError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("Invalid %s: %s.", e.Field, e.Reason)
	}
	return fmt.Sprintf("Invalid %s %q: %s.", e.Field, e.Value, e.Reason)
}

func (e *InvalidMeasurementError) Unwrap() error { return ErrInvalidMeasurement }

// InvalidValue builds an InvalidMeasurementError for a numeric field.
func InvalidValue(field string, v float64, reason string) error {
	return &InvalidMeasurementError{Field: field, Value: formatNumber(v), Reason: reason}
}

// InsufficientDataError reports which series fell short and by how much.
type InsufficientDataError struct {
	Kind      DataKind
	Available int
	Required  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("Need %d days of both weight and food logs; you have %d days of %s logs.",
		e.Required, e.Available, e.Kind)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// Missing returns how many more days of the series are needed.
func (e *InsufficientDataError) Missing() int {
	if e.Available >= e.Required {
		return 0
	}
	return e.Required - e.Available
}

// DivergingGoalError is returned instead of a goal date when the trend is
// flat or heading away from the goal.
type DivergingGoalError struct {
	CurrentWeight float64
	GoalWeight    float64
	SlopePerWeek  float64
}

func (e *DivergingGoalError) Error() string {
	gap := e.GoalWeight - e.CurrentWeight
	direction := "lower"
	if gap > 0 {
		direction = "higher"
	}
	if e.SlopePerWeek == 0 {
		return fmt.Sprintf("Your weight trend is flat while your goal is %.1f lb %s; no goal date can be projected yet.",
			math.Abs(gap), direction)
	}
	return fmt.Sprintf("Your weight trend is moving %+.2f lb/week while your goal is %.1f lb %s; no goal date can be projected.",
		e.SlopePerWeek, math.Abs(gap), direction)
}

func (e *DivergingGoalError) Unwrap() error { return ErrDivergingGoal }

// LowConfidenceError accompanies a result that was computed but failed a
// sanity check. The result it travels with is still usable.
type LowConfidenceError struct {
	Reason string
}

func (e *LowConfidenceError) Error() string { return e.Reason }

func (e *LowConfidenceError) Unwrap() error { return ErrLowConfidence }

// IsLowConfidence reports whether err only flags a usable result.
func IsLowConfidence(err error) bool {
	return errors.Is(err, ErrLowConfidence)
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
