package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestTypedErrorsUnwrapToKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"invalid measurement", InvalidValue("weight", -1, "must be positive"), ErrInvalidMeasurement},
		{"insufficient data", &InsufficientDataError{Kind: KindWeight, Available: 9, Required: 14}, ErrInsufficientData},
		{"diverging goal", &DivergingGoalError{CurrentWeight: 200, GoalWeight: 180}, ErrDivergingGoal},
		{"low confidence", &LowConfidenceError{Reason: "noisy"}, ErrLowConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("compute: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Fatalf("errors.Is(%v, %v) = false", wrapped, tt.kind)
			}
		})
	}
}

func TestInsufficientDataMessage(t *testing.T) {
	err := &InsufficientDataError{Kind: KindIntake, Available: 9, Required: 14}
	want := "Need 14 days of both weight and food logs; you have 9 days of intake logs."
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Missing() != 5 {
		t.Fatalf("Missing() = %d, want 5", err.Missing())
	}
}

func TestDivergingGoalMessage(t *testing.T) {
	flat := &DivergingGoalError{CurrentWeight: 200, GoalWeight: 190}
	if !strings.Contains(flat.Error(), "flat") {
		t.Errorf("flat trend message = %q", flat.Error())
	}
	away := &DivergingGoalError{CurrentWeight: 200, GoalWeight: 190, SlopePerWeek: 0.4}
	if !strings.Contains(away.Error(), "+0.40 lb/week") || !strings.Contains(away.Error(), "10.0 lb lower") {
		t.Errorf("diverging message = %q", away.Error())
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate = %v", d)
	}

	_, err = ParseDate("09/03/2024")
	if !errors.Is(err, ErrInvalidMeasurement) {
		t.Fatalf("malformed date error = %v, want ErrInvalidMeasurement", err)
	}
}

func TestDaysBetweenTruncatesToDays(t *testing.T) {
	a := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 4, 1, 23, 59, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 31 {
		t.Fatalf("DaysBetween = %d, want 31", got)
	}
	if got := DaysBetween(b, a); got != -31 {
		t.Fatalf("DaysBetween reversed = %d, want -31", got)
	}
}

func TestInRangeOpenBounds(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !InRange(d, time.Time{}, time.Time{}) {
		t.Error("open range should contain every date")
	}
	if InRange(d, AddDays(d, 1), time.Time{}) {
		t.Error("date before from should be excluded")
	}
	if !InRange(d, d, d) {
		t.Error("bounds are inclusive")
	}
}

func TestSampleValidate(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := (WeightSample{Date: day, WeightLbs: 0}).Validate(); !errors.Is(err, ErrInvalidMeasurement) {
		t.Errorf("zero weight: %v", err)
	}
	if err := (WeightSample{WeightLbs: 180}).Validate(); !errors.Is(err, ErrInvalidMeasurement) {
		t.Errorf("zero date: %v", err)
	}
	if err := (IntakeSample{Date: day, Calories: -5}).Validate(); !errors.Is(err, ErrInvalidMeasurement) {
		t.Errorf("negative calories: %v", err)
	}
	if err := (IntakeSample{Date: day}).Validate(); err != nil {
		t.Errorf("fasting day should be valid: %v", err)
	}
}

func TestPhaseForRate(t *testing.T) {
	if PhaseForRate(-1) != PhaseCut || PhaseForRate(0.5) != PhaseBulk || PhaseForRate(0.01) != PhaseMaintain {
		t.Fatal("unexpected phase classification")
	}
}
