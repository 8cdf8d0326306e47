// Package trend smooths raw daily weights into an exponentially weighted
// trend line.
//
// Only days with a raw reading advance the average. A day without a reading
// has no trend point of its own; lookups for it return the last known trend
// value (carry-forward), and the next reading is blended against that value
// with the ordinary single-step weight α.
package trend

import (
	"fmt"
	"sort"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// DefaultAlpha is the smoothing factor used when none is configured.
const DefaultAlpha = 0.30

// ValidateAlpha rejects smoothing factors outside (0, 1].
func ValidateAlpha(alpha float64) error {
	if !(alpha > 0 && alpha <= 1) {
		return types.InvalidValue("smoothing factor", alpha, "alpha must be in (0, 1]")
	}
	return nil
}

// Smoother folds weight samples into a trend one at a time. Feeding the same
// samples in any batch split produces the same points as Smooth.
type Smoother struct {
	alpha  float64
	points []types.TrendPoint
}

// NewSmoother returns a Smoother with the given α.
func NewSmoother(alpha float64) (*Smoother, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	return &Smoother{alpha: alpha}, nil
}

// Add smooths one sample and returns its trend point. Samples must arrive
// in strictly increasing date order.
func (s *Smoother) Add(sample types.WeightSample) (types.TrendPoint, error) {
	if err := sample.Validate(); err != nil {
		return types.TrendPoint{}, err
	}
	day := types.Day(sample.Date)

	if len(s.points) == 0 {
		p := types.TrendPoint{Date: day, Weight: sample.WeightLbs}
		s.points = append(s.points, p)
		return p, nil
	}

	prev := s.points[len(s.points)-1]
	if !day.After(prev.Date) {
		return types.TrendPoint{}, &types.InvalidMeasurementError{
			Field:  "date",
			Value:  types.FormatDate(day),
			Reason: fmt.Sprintf("weights must be in date order with one per day; the previous reading is %s", types.FormatDate(prev.Date)),
		}
	}

	p := types.TrendPoint{
		Date:   day,
		Weight: s.alpha*sample.WeightLbs + (1-s.alpha)*prev.Weight,
	}
	s.points = append(s.points, p)
	return p, nil
}

// AddAll feeds a batch in order, stopping at the first invalid sample.
func (s *Smoother) AddAll(samples []types.WeightSample) error {
	for _, sample := range samples {
		if _, err := s.Add(sample); err != nil {
			return err
		}
	}
	return nil
}

// Series returns a snapshot of everything smoothed so far.
func (s *Smoother) Series() Series {
	return Series{points: append([]types.TrendPoint(nil), s.points...)}
}

// Smooth returns the trend for an ordered slice of raw samples. The result
// has one point per sample and its first point equals the first sample.
func Smooth(samples []types.WeightSample, alpha float64) (Series, error) {
	s, err := NewSmoother(alpha)
	if err != nil {
		return Series{}, err
	}
	if err := s.AddAll(samples); err != nil {
		return Series{}, err
	}
	return s.Series(), nil
}

// Series is an immutable, date-ordered trend.
type Series struct {
	points []types.TrendPoint
}

// NewSeries wraps already-computed points, which must be in date order.
func NewSeries(points []types.TrendPoint) Series {
	return Series{points: append([]types.TrendPoint(nil), points...)}
}

// Points returns a copy of the trend points.
func (s Series) Points() []types.TrendPoint {
	return append([]types.TrendPoint(nil), s.points...)
}

// Len returns the number of smoothed readings.
func (s Series) Len() int { return len(s.points) }

// First returns the earliest point.
func (s Series) First() (types.TrendPoint, bool) {
	if len(s.points) == 0 {
		return types.TrendPoint{}, false
	}
	return s.points[0], true
}

// Current returns the latest point.
func (s Series) Current() (types.TrendPoint, bool) {
	if len(s.points) == 0 {
		return types.TrendPoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// At returns the trend on date, carrying the last reading forward across
// days without one. It reports false for dates before the first reading.
func (s Series) At(date time.Time) (float64, bool) {
	day := types.Day(date)
	i := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(day)
	})
	if i == 0 {
		return 0, false
	}
	return s.points[i-1].Weight, true
}

// Delta returns trend(asOf) − trend(asOf − days). It fails with
// InsufficientData when the series does not reach back that far.
func (s Series) Delta(asOf time.Time, days int) (float64, error) {
	if days <= 0 {
		return 0, types.InvalidValue("lookback", float64(days), "lookback must be at least one day")
	}
	end, ok := s.At(asOf)
	if !ok {
		return 0, &types.InsufficientDataError{Kind: types.KindWeight, Available: 0, Required: days + 1}
	}
	start, ok := s.At(types.AddDays(asOf, -days))
	if !ok {
		first, _ := s.First()
		return 0, &types.InsufficientDataError{
			Kind:      types.KindWeight,
			Available: types.DaysBetween(first.Date, asOf) + 1,
			Required:  days + 1,
		}
	}
	return end - start, nil
}

// WeeklyRate returns the trend change over the days ending at asOf,
// expressed in lb/week.
func (s Series) WeeklyRate(asOf time.Time, days int) (float64, error) {
	delta, err := s.Delta(asOf, days)
	if err != nil {
		return 0, err
	}
	return delta / float64(days) * 7, nil
}

// Range returns the points dated within [from, to]. Zero bounds are open.
func (s Series) Range(from, to time.Time) Series {
	var out []types.TrendPoint
	for _, p := range s.points {
		if types.InRange(p.Date, from, to) {
			out = append(out, p)
		}
	}
	return Series{points: out}
}

// Daily expands the series to one point per calendar day in [from, to],
// filling gaps by carry-forward. Days before the first reading are omitted.
func (s Series) Daily(from, to time.Time) []types.TrendPoint {
	if len(s.points) == 0 {
		return nil
	}
	first := s.points[0].Date
	if from.IsZero() || from.Before(first) {
		from = first
	}
	if to.IsZero() {
		to = s.points[len(s.points)-1].Date
	}
	from, to = types.Day(from), types.Day(to)

	var out []types.TrendPoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		w, ok := s.At(d)
		if !ok {
			continue
		}
		out = append(out, types.TrendPoint{Date: d, Weight: w})
	}
	return out
}
