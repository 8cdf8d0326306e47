package ledger

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// WeekSummary averages the snapshots of one 7-day block.
type WeekSummary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Days          int       `json:"days"`
	TrendWeight   float64   `json:"trend_weight"`
	AdaptiveTDEE  float64   `json:"adaptive_tdee"`
	AverageIntake float64   `json:"average_intake"`
	ActualRate    float64   `json:"actual_rate"`
}

// Comparison is this week against last week. Change fields are
// current minus previous.
type Comparison struct {
	AsOf                time.Time   `json:"as_of"`
	Current             WeekSummary `json:"current"`
	Previous            WeekSummary `json:"previous"`
	TrendWeightChange   float64     `json:"trend_weight_change"`
	AdaptiveTDEEChange  float64     `json:"adaptive_tdee_change"`
	AverageIntakeChange float64     `json:"average_intake_change"`
	ActualRateChange    float64     `json:"actual_rate_change"`
}

// Compare summarizes asOf−6..asOf against asOf−13..asOf−7. Snapshots outside
// both weeks are ignored. Either week being empty is ErrNotFound.
func Compare(snapshots []types.TDEESnapshot, asOf time.Time) (Comparison, error) {
	asOf = types.Day(asOf)
	current := summarize(snapshots, types.AddDays(asOf, -6), asOf)
	previous := summarize(snapshots, types.AddDays(asOf, -13), types.AddDays(asOf, -7))
	for _, w := range []WeekSummary{current, previous} {
		if w.Days == 0 {
			return Comparison{}, fmt.Errorf("no check-ins between %s and %s: %w",
				types.FormatDate(w.From), types.FormatDate(w.To), types.ErrNotFound)
		}
	}
	return Comparison{
		AsOf:                asOf,
		Current:             current,
		Previous:            previous,
		TrendWeightChange:   current.TrendWeight - previous.TrendWeight,
		AdaptiveTDEEChange:  current.AdaptiveTDEE - previous.AdaptiveTDEE,
		AverageIntakeChange: current.AverageIntake - previous.AverageIntake,
		ActualRateChange:    current.ActualRate - previous.ActualRate,
	}, nil
}

func summarize(snapshots []types.TDEESnapshot, from, to time.Time) WeekSummary {
	w := WeekSummary{From: from, To: to}
	for _, s := range snapshots {
		if !types.InRange(s.Date, from, to) {
			continue
		}
		w.Days++
		w.TrendWeight += s.TrendWeight
		w.AdaptiveTDEE += s.AdaptiveTDEE
		w.AverageIntake += s.AverageIntake14d
		w.ActualRate += s.ActualRate
	}
	if w.Days > 0 {
		n := float64(w.Days)
		w.TrendWeight /= n
		w.AdaptiveTDEE /= n
		w.AverageIntake /= n
		w.ActualRate /= n
	}
	return w
}
