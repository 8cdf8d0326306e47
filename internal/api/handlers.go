package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/internal/ledger"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

var errNoWriter = errors.New("this server is read-only")

// badRequestError is a malformed query parameter or body.
type badRequestError struct {
	param string
	value string
}

func (e *badRequestError) Error() string {
	return fmt.Sprintf("invalid %s parameter %q", e.param, e.value)
}

// query reads typed parameters, keeping the first failure.
type query struct {
	values url.Values
	err    error
}

func (q *query) date(name string) time.Time {
	raw := q.values.Get(name)
	if raw == "" || q.err != nil {
		return time.Time{}
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		q.err = &badRequestError{param: name, value: raw}
	}
	return d
}

func (q *query) number(name string) float64 {
	raw := q.values.Get(name)
	if raw == "" || q.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.err = &badRequestError{param: name, value: raw}
	}
	return v
}

func (q *query) numberPtr(name string) *float64 {
	if q.values.Get(name) == "" {
		return nil
	}
	v := q.number(name)
	return &v
}

func (q *query) integer(name string) int {
	raw := q.values.Get(name)
	if raw == "" || q.err != nil {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.err = &badRequestError{param: name, value: raw}
	}
	return v
}

// request parses the user, the as-of day, and the query.
func (s *Server) request(r *http.Request) (types.UserContext, *query) {
	q := &query{values: r.URL.Query()}
	asOf := q.date("as_of")
	if asOf.IsZero() {
		asOf = types.Day(s.now().UTC())
	}
	return types.UserContext{UserID: r.PathValue("user"), AsOf: asOf}, q
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	from, to := q.date("from"), q.date("to")
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	points, err := s.engine.TrendSeries(r.Context(), uc, from, to)
	s.respond(w, r, points, err)
}

func (s *Server) handleTDEE(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	window := q.integer("window")
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	res, err := s.engine.ComputeAdaptiveTDEE(r.Context(), uc, window)
	s.respond(w, r, res, err)
}

func (s *Server) adjustmentRequest(q *query) engine.AdjustmentRequest {
	return engine.AdjustmentRequest{
		GoalRate:        q.numberPtr("goal_rate"),
		Tolerance:       q.number("tolerance"),
		CurrentCalories: q.integer("current_calories"),
	}
}

func (s *Server) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	req := s.adjustmentRequest(q)
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	rec, err := s.engine.WeeklyAdjustment(r.Context(), uc, req)
	s.respond(w, r, rec, err)
}

func (s *Server) handleSpikes(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	from, to, threshold := q.date("from"), q.date("to"), q.number("threshold")
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	events, err := s.engine.DetectSpikes(r.Context(), uc, from, to, threshold)
	if events == nil {
		events = []types.SpikeEvent{}
	}
	s.respond(w, r, events, err)
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	req := engine.GoalRequest{GoalWeight: q.number("goal_weight"), GoalRate: q.numberPtr("goal_rate")}
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	pred, err := s.engine.PredictGoalDate(r.Context(), uc, req)
	s.respond(w, r, pred, err)
}

// handleSnapshots returns the ledger as JSON by default, or as a csv or
// jsonl download.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	from, to := q.date("from"), q.date("to")
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	snaps, err := s.engine.SnapshotHistory(r.Context(), uc, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	raw := q.values.Get("format")
	if raw == "" {
		if snaps == nil {
			snaps = []types.TDEESnapshot{}
		}
		s.respond(w, r, snaps, nil)
		return
	}
	format, err := ledger.ParseFormat(raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	contentType := map[ledger.Format]string{
		ledger.FormatCSV:   "text/csv",
		ledger.FormatJSON:  "application/json",
		ledger.FormatJSONL: "application/x-ndjson",
	}[format]
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "snapshots."+string(format)))
	if err := ledger.Write(w, format, snaps); err != nil {
		s.logger.Error("writing export", "user", uc.UserID, "error", err)
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	c, err := s.engine.CompareWeeks(r.Context(), uc)
	s.respond(w, r, c, err)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	uc, q := s.request(r)
	req := s.adjustmentRequest(q)
	if q.err != nil {
		s.fail(w, r, q.err)
		return
	}
	res, err := s.engine.CheckIn(r.Context(), uc, req)
	s.respond(w, r, res, err)
}

type weightBody struct {
	WeightLbs float64 `json:"weight_lbs"`
	Note      string  `json:"note"`
}

type intakeBody struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// sampleRequest parses the user and date path values and decodes the body
// into v when v is non-nil.
func (s *Server) sampleRequest(r *http.Request, v any) (string, time.Time, error) {
	if s.writer == nil {
		return "", time.Time{}, errNoWriter
	}
	raw := r.PathValue("date")
	date, err := types.ParseDate(raw)
	if err != nil {
		return "", time.Time{}, &badRequestError{param: "date", value: raw}
	}
	if v != nil {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return "", time.Time{}, &badRequestError{param: "body", value: err.Error()}
		}
	}
	return r.PathValue("user"), date, nil
}

func (s *Server) handlePutWeight(w http.ResponseWriter, r *http.Request) {
	var body weightBody
	user, date, err := s.sampleRequest(r, &body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sample := types.WeightSample{Date: date, WeightLbs: body.WeightLbs, Note: body.Note}
	if err := s.writer.PutWeight(r.Context(), user, sample); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, sample, nil)
}

func (s *Server) handleDeleteWeight(w http.ResponseWriter, r *http.Request) {
	user, date, err := s.sampleRequest(r, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.writer.DeleteWeight(r.Context(), user, date); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutIntake(w http.ResponseWriter, r *http.Request) {
	var body intakeBody
	user, date, err := s.sampleRequest(r, &body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sample := types.IntakeSample{Date: date, Calories: body.Calories, ProteinG: body.ProteinG, FatG: body.FatG, CarbsG: body.CarbsG}
	if err := s.writer.PutIntake(r.Context(), user, sample); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, sample, nil)
}
