package adjust

import (
	"math"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Default macro plan.
const (
	DefaultProteinPerLb = 1.0
	DefaultFatPercent   = 0.25
)

// MacroPlan sets protein by bodyweight and fat as a share of calories.
// Zero fields fall back to the defaults.
type MacroPlan struct {
	ProteinPerLb float64 `json:"protein_per_lb"`
	FatPercent   float64 `json:"fat_percent"`
}

// PlanFromProfile reads the macro plan stored on a profile.
func PlanFromProfile(p types.Profile) MacroPlan {
	return MacroPlan{ProteinPerLb: p.ProteinPerLb, FatPercent: p.FatPercent}
}

func (p MacroPlan) withDefaults() MacroPlan {
	if p.ProteinPerLb <= 0 {
		p.ProteinPerLb = DefaultProteinPerLb
	}
	if p.FatPercent <= 0 {
		p.FatPercent = DefaultFatPercent
	}
	return p
}

// SplitMacros divides calories into grams. Protein is fixed first from
// bodyweight, fat second from its calorie share, and carbohydrate takes the
// remainder. When protein and fat alone exceed the budget, carbs are zero
// and fat shrinks to what is left after protein.
func SplitMacros(calories int, bodyweightLbs float64, plan MacroPlan) types.Macros {
	if calories <= 0 {
		return types.Macros{}
	}
	plan = plan.withDefaults()
	budget := float64(calories)

	protein := math.Round(bodyweightLbs * plan.ProteinPerLb)
	if protein*4 > budget {
		protein = math.Floor(budget / 4)
	}
	remaining := budget - protein*4

	fat := math.Round(budget * plan.FatPercent / 9)
	if fat*9 > remaining {
		fat = math.Floor(remaining / 9)
	}
	remaining -= fat * 9

	carbs := math.Floor(remaining / 4)
	if carbs < 0 {
		carbs = 0
	}
	return types.Macros{ProteinG: int(protein), FatG: int(fat), CarbsG: int(carbs)}
}
