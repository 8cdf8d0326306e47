package adjust

import (
	"errors"
	"math"
	"testing"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func TestRecommend(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		wantChange int
		wantStatus Status
		onTrack    bool
	}{
		{
			name:       "cut losing too slowly lowers calories by 100",
			in:         Input{GoalRate: -1.0, ActualRate: -0.75, CurrentCalories: 2000, Tolerance: 0.20},
			wantChange: -100,
			wantStatus: StatusUndershoot,
		},
		{
			name:       "cut stalled lowers calories by 150",
			in:         Input{GoalRate: -1.0, ActualRate: -0.2, CurrentCalories: 2000},
			wantChange: -150,
			wantStatus: StatusUndershoot,
		},
		{
			name:       "cut gaining weight lowers calories by 150",
			in:         Input{GoalRate: -1.0, ActualRate: 0.3, CurrentCalories: 2000},
			wantChange: -150,
			wantStatus: StatusUndershoot,
		},
		{
			name:       "cut losing too fast raises calories",
			in:         Input{GoalRate: -1.0, ActualRate: -1.4, CurrentCalories: 1800},
			wantChange: 100,
			wantStatus: StatusOvershoot,
		},
		{
			name:       "cut losing far too fast raises calories by 150",
			in:         Input{GoalRate: -1.0, ActualRate: -2.0, CurrentCalories: 1800},
			wantChange: 150,
			wantStatus: StatusOvershoot,
		},
		{
			name:       "cut within tolerance holds",
			in:         Input{GoalRate: -1.0, ActualRate: -0.85, CurrentCalories: 2000},
			wantStatus: StatusOnTrack,
			onTrack:    true,
		},
		{
			name:       "bulk gaining too fast lowers calories",
			in:         Input{GoalRate: 0.5, ActualRate: 0.7, CurrentCalories: 3000},
			wantChange: -100,
			wantStatus: StatusOvershoot,
		},
		{
			name:       "bulk gaining too slowly raises calories",
			in:         Input{GoalRate: 0.5, ActualRate: 0.1, CurrentCalories: 3000},
			wantChange: 150,
			wantStatus: StatusUndershoot,
		},
		{
			name:       "maintenance inside band holds",
			in:         Input{GoalRate: 0, ActualRate: 0.4, CurrentCalories: 2400},
			wantStatus: StatusOnTrack,
			onTrack:    true,
		},
		{
			name:       "maintenance drifting up lowers calories",
			in:         Input{GoalRate: 0, ActualRate: 0.6, CurrentCalories: 2400},
			wantChange: -100,
			wantStatus: StatusDrift,
		},
		{
			name:       "maintenance dropping fast raises calories by 150",
			in:         Input{GoalRate: 0.01, ActualRate: -1.2, CurrentCalories: 2400},
			wantChange: 150,
			wantStatus: StatusDrift,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Recommend(tt.in)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if rec.CalorieChange != tt.wantChange {
				t.Errorf("CalorieChange = %d, want %d", rec.CalorieChange, tt.wantChange)
			}
			if rec.NewCalories != tt.in.CurrentCalories+tt.wantChange {
				t.Errorf("NewCalories = %d, want %d", rec.NewCalories, tt.in.CurrentCalories+tt.wantChange)
			}
			if rec.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", rec.Status, tt.wantStatus)
			}
			if rec.OnTrack != tt.onTrack {
				t.Errorf("OnTrack = %v, want %v", rec.OnTrack, tt.onTrack)
			}
			if rec.Rationale == "" {
				t.Error("Rationale is empty")
			}
		})
	}
}

func TestRecommendVariance(t *testing.T) {
	rec, err := Recommend(Input{GoalRate: -1.0, ActualRate: -0.75, CurrentCalories: 2000, Tolerance: 0.20})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if math.Abs(rec.Variance-0.25) > 1e-12 {
		t.Fatalf("Variance = %v, want 0.25", rec.Variance)
	}
	if rec.Phase != types.PhaseCut {
		t.Fatalf("Phase = %s, want cut", rec.Phase)
	}
}

func TestRecommendIsIdempotent(t *testing.T) {
	in := Input{GoalRate: -0.8, ActualRate: -0.3, CurrentCalories: 2150, Tolerance: 0.15, BodyweightLbs: 182}
	first, err := Recommend(in)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Recommend(in)
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if again != first {
			t.Fatalf("call %d = %+v, want %+v", i, again, first)
		}
	}
}

func TestRecommendRejectsInvalidInput(t *testing.T) {
	bad := []Input{
		{GoalRate: -1, ActualRate: -1, CurrentCalories: 0},
		{GoalRate: math.NaN(), ActualRate: -1, CurrentCalories: 2000},
		{GoalRate: -1, ActualRate: math.Inf(-1), CurrentCalories: 2000},
		{GoalRate: -1, ActualRate: -1, CurrentCalories: 2000, Tolerance: 1.5},
		{GoalRate: -1, ActualRate: -1, CurrentCalories: 2000, Tolerance: -0.1},
		{GoalRate: -1, ActualRate: -1, CurrentCalories: 2000, BodyweightLbs: -5},
	}
	for i, in := range bad {
		if _, err := Recommend(in); err == nil {
			t.Errorf("case %d: expected error", i)
		} else if !isInvalid(err) {
			t.Errorf("case %d: err = %v, want ErrInvalidMeasurement", i, err)
		}
	}
}

func TestSplitMacros(t *testing.T) {
	m := SplitMacros(2000, 180, MacroPlan{})
	if m.ProteinG != 180 {
		t.Errorf("ProteinG = %d, want 180", m.ProteinG)
	}
	if m.FatG != 56 {
		t.Errorf("FatG = %d, want 56", m.FatG)
	}
	if m.CarbsG != 194 {
		t.Errorf("CarbsG = %d, want 194", m.CarbsG)
	}
	if m.Calories() > 2000 || m.Calories() < 1990 {
		t.Errorf("macro calories = %d, want close to 2000", m.Calories())
	}
}

func TestSplitMacrosTightBudget(t *testing.T) {
	m := SplitMacros(800, 250, MacroPlan{ProteinPerLb: 1})
	if m.CarbsG != 0 {
		t.Errorf("CarbsG = %d, want 0", m.CarbsG)
	}
	if m.Calories() > 800 {
		t.Errorf("macro calories %d exceed budget", m.Calories())
	}
	if SplitMacros(0, 180, MacroPlan{}) != (types.Macros{}) {
		t.Error("zero calories should give zero macros")
	}
}

func isInvalid(err error) bool {
	return errors.Is(err, types.ErrInvalidMeasurement)
}
