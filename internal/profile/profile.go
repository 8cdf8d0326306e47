// Package profile computes the formula TDEE, the static baseline that the
// adaptive estimate is compared against and clamped to.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Activity levels.
const (
	ActivitySedentary  = "sedentary"
	ActivityLight      = "light"
	ActivityModerate   = "moderate"
	ActivityActive     = "active"
	ActivityVeryActive = "very_active"
)

// DefaultActivity applies when a profile leaves the level empty.
const DefaultActivity = ActivitySedentary

const kgPerLb = 0.45359237

var multipliers = map[string]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

// Levels returns the accepted activity levels in sorted order.
func Levels() []string {
	out := make([]string, 0, len(multipliers))
	for k := range multipliers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Multiplier returns the TDEE multiplier for an activity level.
func Multiplier(level string) (float64, error) {
	if level == "" {
		level = DefaultActivity
	}
	m, ok := multipliers[strings.ToLower(level)]
	if !ok {
		return 0, &types.InvalidMeasurementError{
			Field:  "activity level",
			Value:  level,
			Reason: fmt.Sprintf("use one of %s", strings.Join(Levels(), ", ")),
		}
	}
	return m, nil
}

// AgeOn returns the age in whole years on the given day.
func AgeOn(birth, on time.Time) int {
	birth, on = types.Day(birth), types.Day(on)
	age := on.Year() - birth.Year()
	if !sameOrLaterMonthDay(on, birth) {
		age--
	}
	return age
}

func sameOrLaterMonthDay(on, birth time.Time) bool {
	if on.Month() != birth.Month() {
		return on.Month() > birth.Month()
	}
	return on.Day() >= birth.Day()
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p types.Profile, weightLbs float64, asOf time.Time) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if !(weightLbs > 0) || math.IsInf(weightLbs, 0) {
		return 0, types.InvalidValue("weight", weightLbs, "weight must be a positive number of pounds")
	}
	age := AgeOn(p.BirthDate, asOf)
	if age < 0 {
		return 0, &types.InvalidMeasurementError{Field: "birth date", Value: types.FormatDate(p.BirthDate), Reason: "the birth date is after the as-of date"}
	}

	bmr := 10*weightLbs*kgPerLb + 6.25*p.HeightCM - 5*float64(age)
	if p.Sex == types.SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	return bmr, nil
}

// FormulaTDEE returns BMR × activity multiplier for the profile at the
// given bodyweight.
func FormulaTDEE(p types.Profile, weightLbs float64, asOf time.Time) (float64, error) {
	m, err := Multiplier(p.ActivityLevel)
	if err != nil {
		return 0, err
	}
	bmr, err := BMR(p, weightLbs, asOf)
	if err != nil {
		return 0, err
	}
	return bmr * m, nil
}
