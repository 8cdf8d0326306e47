// Package api serves the engine over HTTP. Every route is scoped to one
// user and one as-of day; as_of defaults to today in UTC.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/internal/ledger"
	"github.com/mesh-intelligence/metabolic/internal/metrics"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Server holds the HTTP handlers.
type Server struct {
	engine *engine.Engine
	writer types.SampleWriter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the clock that supplies the default as-of day.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithWriter enables the sample logging routes.
func WithWriter(w types.SampleWriter) Option {
	return func(s *Server) { s.writer = w }
}

// NewServer returns a server over e.
func NewServer(e *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: e, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler, /metrics included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, WrapHandler(endpoint, h))
	}

	route("GET /v1/users/{user}/trend", metrics.EndpointTrend, s.handleTrend)
	route("GET /v1/users/{user}/tdee", metrics.EndpointTDEE, s.handleTDEE)
	route("GET /v1/users/{user}/adjustment", metrics.EndpointAdjustment, s.handleAdjustment)
	route("GET /v1/users/{user}/spikes", metrics.EndpointSpikes, s.handleSpikes)
	route("GET /v1/users/{user}/prediction", metrics.EndpointPrediction, s.handlePrediction)
	route("GET /v1/users/{user}/snapshots", metrics.EndpointSnapshots, s.handleSnapshots)
	route("GET /v1/users/{user}/compare", metrics.EndpointCompare, s.handleCompare)
	route("POST /v1/users/{user}/checkins", metrics.EndpointCheckIn, s.handleCheckIn)
	route("PUT /v1/users/{user}/weights/{date}", metrics.EndpointWeights, s.handlePutWeight)
	route("DELETE /v1/users/{user}/weights/{date}", metrics.EndpointWeights, s.handleDeleteWeight)
	route("PUT /v1/users/{user}/intakes/{date}", metrics.EndpointIntakes, s.handlePutIntake)

	route("GET /health", metrics.EndpointHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// envelope is the body of every JSON success response. Warning carries a
// low-confidence note when the result was still usable.
type envelope struct {
	Data    any    `json:"data"`
	Warning string `json:"warning,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// respond writes data, or the error when err does not merely flag a
// low-confidence result.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil && !types.IsLowConfidence(err) {
		s.fail(w, r, err)
		return
	}
	body := envelope{Data: data}
	if err != nil {
		body.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad), errors.Is(err, ledger.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidMeasurement),
		errors.Is(err, types.ErrInvalidUser),
		errors.Is(err, types.ErrInsufficientData),
		errors.Is(err, types.ErrDivergingGoal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNoWriter):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
