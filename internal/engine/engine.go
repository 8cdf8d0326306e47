// Package engine wires the estimation stages to a store. Every call replays
// the user's full weight history up to the as-of date, so results depend
// only on stored data and the call's UserContext.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mesh-intelligence/metabolic/internal/adjust"
	"github.com/mesh-intelligence/metabolic/internal/anomaly"
	"github.com/mesh-intelligence/metabolic/internal/expenditure"
	"github.com/mesh-intelligence/metabolic/internal/goal"
	"github.com/mesh-intelligence/metabolic/internal/ledger"
	"github.com/mesh-intelligence/metabolic/internal/metrics"
	"github.com/mesh-intelligence/metabolic/internal/trend"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Engine runs the estimation pipeline against a store.
type Engine struct {
	store    types.Store
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for ComputedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New validates settings and returns an engine over store.
func New(store types.Store, settings Settings, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:    store,
		settings: settings.withDefaults(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// AdjustmentRequest carries the optional inputs of a weekly adjustment.
// A nil GoalRate reads the profile; zero Tolerance uses the settings; zero
// CurrentCalories is resolved from the profile target, then the latest
// earlier snapshot, then the mean intake of the last check-in span.
type AdjustmentRequest struct {
	GoalRate        *float64
	Tolerance       float64
	CurrentCalories int
}

// GoalRequest carries the optional inputs of a goal projection. Zero
// GoalWeight and nil GoalRate read the profile.
type GoalRequest struct {
	GoalWeight float64
	GoalRate   *float64
}

// CheckInResult is a completed check-in.
type CheckInResult struct {
	Snapshot   types.TDEESnapshot    `json:"snapshot"`
	TDEE       expenditure.Result    `json:"tdee"`
	Adjustment adjust.Recommendation `json:"adjustment"`
}

// history is the replayed weight history up to as-of.
type history struct {
	weights []types.WeightSample
	series  trend.Series
}

func (e *Engine) loadHistory(ctx context.Context, uc types.UserContext) (history, error) {
	weights, err := e.store.WeightSamples(ctx, uc.UserID, time.Time{}, uc.AsOf)
	if err != nil {
		return history{}, fmt.Errorf("loading weights: %w", err)
	}
	if len(weights) == 0 {
		return history{}, &types.InsufficientDataError{Kind: types.KindWeight, Available: 0, Required: 1}
	}
	series, err := trend.Smooth(weights, e.settings.Alpha)
	if err != nil {
		return history{}, err
	}
	return history{weights: weights, series: series}, nil
}

// profileOrZero returns the profile, or a zero profile when none is stored.
func (e *Engine) profileOrZero(ctx context.Context, userID string) (types.Profile, error) {
	p, err := e.store.Profile(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Profile{}, nil
	}
	if err != nil {
		return types.Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

// TrendSeries returns the smoothed weight for readings in [from, to]. A
// zero to means the as-of date.
func (e *Engine) TrendSeries(ctx context.Context, uc types.UserContext, from, to time.Time) (_ []types.TrendPoint, err error) {
	defer e.observe(metrics.OpTrend, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return nil, err
	}
	h, err := e.loadHistory(ctx, uc)
	if err != nil {
		return nil, err
	}
	if to.IsZero() || to.After(uc.AsOf) {
		to = uc.AsOf
	}
	return h.series.Range(from, to).Points(), nil
}

// ComputeAdaptiveTDEE estimates expenditure over the windowDays ending at
// the as-of date. Zero windowDays uses the settings. A clamped estimate is
// returned together with a LowConfidenceError.
func (e *Engine) ComputeAdaptiveTDEE(ctx context.Context, uc types.UserContext, windowDays int) (_ expenditure.Result, err error) {
	defer e.observe(metrics.OpTDEE, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return expenditure.Result{}, err
	}
	h, err := e.loadHistory(ctx, uc)
	if err != nil {
		return expenditure.Result{}, err
	}
	return e.computeTDEE(ctx, uc, h, windowDays)
}

func (e *Engine) computeTDEE(ctx context.Context, uc types.UserContext, h history, windowDays int) (expenditure.Result, error) {
	if windowDays == 0 {
		windowDays = e.settings.WindowDays
	}
	start := types.AddDays(types.Day(uc.AsOf), -(windowDays - 1))
	intake, err := e.store.IntakeSamples(ctx, uc.UserID, start, uc.AsOf)
	if err != nil {
		return expenditure.Result{}, fmt.Errorf("loading intake: %w", err)
	}
	formula, err := e.store.FormulaTDEE(ctx, uc.UserID, uc.AsOf)
	if err != nil {
		return expenditure.Result{}, fmt.Errorf("formula TDEE: %w", err)
	}

	res, err := expenditure.Compute(expenditure.Input{
		Trend:       h.series,
		Weights:     h.weights,
		Intake:      intake,
		FormulaTDEE: formula,
		AsOf:        uc.AsOf,
		WindowDays:  windowDays,
	})
	if err != nil && !types.IsLowConfidence(err) {
		return expenditure.Result{}, err
	}
	e.logger.Debug("adaptive TDEE computed",
		"user", uc.UserID, "as_of", types.FormatDate(uc.AsOf),
		"adaptive", res.AdaptiveTDEE, "formula", res.FormulaTDEE, "clamped", res.Clamped)
	return res, err
}

// WeeklyAdjustment compares the actual rate over the check-in span with the
// goal rate and recommends a calorie change.
func (e *Engine) WeeklyAdjustment(ctx context.Context, uc types.UserContext, req AdjustmentRequest) (_ adjust.Recommendation, err error) {
	defer e.observe(metrics.OpAdjustment, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return adjust.Recommendation{}, err
	}
	h, err := e.loadHistory(ctx, uc)
	if err != nil {
		return adjust.Recommendation{}, err
	}
	return e.adjustment(ctx, uc, h, req)
}

func (e *Engine) adjustment(ctx context.Context, uc types.UserContext, h history, req AdjustmentRequest) (adjust.Recommendation, error) {
	p, err := e.profileOrZero(ctx, uc.UserID)
	if err != nil {
		return adjust.Recommendation{}, err
	}
	goalRate := p.GoalRateLbsPerWeek
	if req.GoalRate != nil {
		goalRate = *req.GoalRate
	}
	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = e.settings.Tolerance
	}

	actual, err := h.series.WeeklyRate(uc.AsOf, e.settings.CheckInDays)
	if err != nil {
		return adjust.Recommendation{}, err
	}
	current, err := e.currentCalories(ctx, uc, p, req.CurrentCalories)
	if err != nil {
		return adjust.Recommendation{}, err
	}
	bodyweight, _ := h.series.At(uc.AsOf)

	rec, err := adjust.Recommend(adjust.Input{
		GoalRate:        goalRate,
		ActualRate:      actual,
		CurrentCalories: current,
		Tolerance:       tolerance,
		BodyweightLbs:   bodyweight,
		Plan:            adjust.PlanFromProfile(p),
	})
	if err != nil {
		return adjust.Recommendation{}, err
	}
	metrics.CalorieAdjustment.Observe(float64(rec.CalorieChange))
	e.logger.Debug("weekly adjustment",
		"user", uc.UserID, "as_of", types.FormatDate(uc.AsOf),
		"goal_rate", goalRate, "actual_rate", actual, "change", rec.CalorieChange)
	return rec, nil
}

// currentCalories resolves the calorie level the adjustment starts from.
func (e *Engine) currentCalories(ctx context.Context, uc types.UserContext, p types.Profile, explicit int) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if p.CalorieTarget > 0 {
		return p.CalorieTarget, nil
	}

	prior, err := e.store.Snapshots(ctx, uc.UserID, time.Time{}, types.AddDays(uc.AsOf, -1))
	if err != nil {
		return 0, fmt.Errorf("loading snapshots: %w", err)
	}
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].RecommendedCalories > 0 {
			return prior[i].RecommendedCalories, nil
		}
	}

	from := types.AddDays(types.Day(uc.AsOf), -(e.settings.CheckInDays - 1))
	intake, err := e.store.IntakeSamples(ctx, uc.UserID, from, uc.AsOf)
	if err != nil {
		return 0, fmt.Errorf("loading intake: %w", err)
	}
	if len(intake) == 0 {
		return 0, &types.InsufficientDataError{Kind: types.KindIntake, Available: 0, Required: 1}
	}
	var total float64
	for _, s := range intake {
		total += s.Calories
	}
	return int(math.Round(total / float64(len(intake)))), nil
}

// DetectSpikes reports raw readings in [from, to] that sit at least
// threshold lb from the prior trend, newest first. Zero threshold uses the
// settings; a zero to means the as-of date.
func (e *Engine) DetectSpikes(ctx context.Context, uc types.UserContext, from, to time.Time, threshold float64) (_ []types.SpikeEvent, err error) {
	defer e.observe(metrics.OpSpikes, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return nil, err
	}
	if threshold == 0 {
		threshold = e.settings.SpikeThreshold
	}
	if to.IsZero() || to.After(uc.AsOf) {
		to = uc.AsOf
	}
	h, err := e.loadHistory(ctx, uc)
	if err != nil {
		return nil, err
	}
	events, err := anomaly.Detect(h.weights, h.series, from, to, threshold)
	if err != nil {
		return nil, err
	}
	metrics.SpikesDetectedTotal.Add(float64(len(events)))
	return events, nil
}

// PredictGoalDate projects the goal-date range from the recent trend.
func (e *Engine) PredictGoalDate(ctx context.Context, uc types.UserContext, req GoalRequest) (_ types.GoalPrediction, err error) {
	defer e.observe(metrics.OpPrediction, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return types.GoalPrediction{}, err
	}
	p, err := e.profileOrZero(ctx, uc.UserID)
	if err != nil {
		return types.GoalPrediction{}, err
	}
	goalWeight := req.GoalWeight
	if goalWeight == 0 {
		goalWeight = p.GoalWeightLbs
	}
	if goalWeight == 0 {
		return types.GoalPrediction{}, &types.InvalidMeasurementError{Field: "goal weight", Reason: "set a goal weight in your profile or pass one"}
	}
	goalRate := p.GoalRateLbsPerWeek
	if req.GoalRate != nil {
		goalRate = *req.GoalRate
	}

	h, err := e.loadHistory(ctx, uc)
	if err != nil {
		return types.GoalPrediction{}, err
	}
	lookbackStart := types.AddDays(types.Day(uc.AsOf), -(e.settings.LookbackDays - 1))
	spikes, err := anomaly.Detect(h.weights, h.series, lookbackStart, uc.AsOf, e.settings.SpikeThreshold)
	if err != nil {
		return types.GoalPrediction{}, err
	}

	return goal.Predict(goal.Input{
		Trend:         h.series,
		Spikes:        spikes,
		GoalWeight:    goalWeight,
		GoalRate:      goalRate,
		AsOf:          uc.AsOf,
		LookbackDays:  e.settings.LookbackDays,
		MinWindowDays: e.settings.MinGoalWindowDays,
	})
}

// SnapshotHistory returns stored check-ins in [from, to]. A zero to means
// the as-of date.
func (e *Engine) SnapshotHistory(ctx context.Context, uc types.UserContext, from, to time.Time) (_ []types.TDEESnapshot, err error) {
	defer e.observe(metrics.OpHistory, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return nil, err
	}
	if to.IsZero() || to.After(uc.AsOf) {
		to = uc.AsOf
	}
	return e.store.Snapshots(ctx, uc.UserID, from, to)
}

// CheckIn computes adaptive TDEE and the weekly adjustment for the as-of
// date and records them as that day's snapshot. Running it again for the
// same day replaces the snapshot and keeps its ID. A clamped TDEE is still
// recorded, at low confidence, and the LowConfidenceError is returned with
// the result.
func (e *Engine) CheckIn(ctx context.Context, uc types.UserContext, req AdjustmentRequest) (_ CheckInResult, err error) {
	defer e.observe(metrics.OpCheckIn, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return CheckInResult{}, err
	}

	h, err := e.loadHistory(ctx, uc)
	if err != nil {
		return CheckInResult{}, err
	}
	tdee, flag := e.computeTDEE(ctx, uc, h, 0)
	if flag != nil && !types.IsLowConfidence(flag) {
		return CheckInResult{}, flag
	}
	rec, err := e.adjustment(ctx, uc, h, req)
	if err != nil {
		return CheckInResult{}, err
	}

	snap := types.TDEESnapshot{
		UserID:              uc.UserID,
		Date:                types.Day(uc.AsOf),
		FormulaTDEE:         tdee.FormulaTDEE,
		AdaptiveTDEE:        tdee.AdaptiveTDEE,
		TDEEDelta:           tdee.TDEEDelta,
		AverageIntake14d:    tdee.AverageIntake,
		WeightChange14d:     tdee.WeightChange,
		TrendWeight:         tdee.TrendEnd,
		GoalRate:            rec.GoalRate,
		ActualRate:          rec.ActualRate,
		PercentDeviation:    rec.Variance * 100,
		RecommendedCalories: rec.NewCalories,
		CalorieAdjustment:   rec.CalorieChange,
		RecommendedMacros:   rec.Macros,
		Phase:               rec.Phase,
		Confidence:          tdee.Confidence,
		ComputedAt:          e.now().UTC(),
	}
	stored, err := e.store.PutSnapshot(ctx, snap)
	if err != nil {
		metrics.LedgerWritesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return CheckInResult{}, fmt.Errorf("recording check-in: %w", err)
	}
	metrics.LedgerWritesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	e.logger.Info("check-in recorded",
		"user", uc.UserID, "date", types.FormatDate(stored.Date), "snapshot_id", stored.SnapshotID,
		"adaptive_tdee", stored.AdaptiveTDEE, "calories", stored.RecommendedCalories)

	return CheckInResult{Snapshot: stored, TDEE: tdee, Adjustment: rec}, flag
}

// CompareWeeks compares the stored check-ins of the last 7 days with the
// 7 days before.
func (e *Engine) CompareWeeks(ctx context.Context, uc types.UserContext) (_ ledger.Comparison, err error) {
	defer e.observe(metrics.OpCompare, time.Now(), &err)
	if err := uc.Validate(); err != nil {
		return ledger.Comparison{}, err
	}
	snaps, err := e.store.Snapshots(ctx, uc.UserID, types.AddDays(types.Day(uc.AsOf), -13), uc.AsOf)
	if err != nil {
		return ledger.Comparison{}, err
	}
	return ledger.Compare(snaps, uc.AsOf)
}

func (e *Engine) observe(op string, start time.Time, errp *error) {
	result := Result(*errp)
	metrics.RecordOperation(op, result, start)
	if result != metrics.ResultSuccess && result != metrics.ResultLowConfidence {
		e.logger.Debug("operation failed", "operation", op, "result", result, "error", *errp)
	}
}

// Result maps an error to its metrics result label.
func Result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, types.ErrLowConfidence):
		return metrics.ResultLowConfidence
	case errors.Is(err, types.ErrInsufficientData):
		return metrics.ResultInsufficient
	case errors.Is(err, types.ErrDivergingGoal):
		return metrics.ResultDiverging
	case errors.Is(err, types.ErrInvalidMeasurement), errors.Is(err, types.ErrInvalidUser):
		return metrics.ResultInvalid
	case errors.Is(err, types.ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultFailure
	}
}
