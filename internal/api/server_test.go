package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/internal/ledger"
	"github.com/mesh-intelligence/metabolic/internal/ledger/ledgertest"
	"github.com/mesh-intelligence/metabolic/internal/metrics"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return types.AddDays(day0, n) }

// newTestServer seeds 28 days of flat weight and intake for u1; "today" is
// day 27.
func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *ledger.Memory) {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewMemory()
	require.NoError(t, store.PutProfile(ctx, ledgertest.Profile("u1")))
	for i := 0; i < 28; i++ {
		require.NoError(t, store.PutWeight(ctx, "u1", types.WeightSample{Date: day(i), WeightLbs: 200}))
		require.NoError(t, store.PutIntake(ctx, "u1", types.IntakeSample{Date: day(i), Calories: 2000}))
	}

	e, err := engine.New(store, engine.Settings{})
	require.NoError(t, err)
	opts = append([]Option{WithClock(func() time.Time { return day(27).Add(15 * time.Hour) })}, opts...)
	srv := httptest.NewServer(NewServer(e, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type result[T any] struct {
	Data    T      `json:"data"`
	Warning string `json:"warning"`
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(metrics.EndpointHealth, "200"))

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(metrics.EndpointHealth, "200"))
	assert.Equal(t, before+1, after)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/health", "")

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestTDEE(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/users/u1/tdee", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[result[map[string]any]](t, resp)
	assert.InDelta(t, 2000, got.Data["adaptive_tdee"], 1e-6)
	assert.Empty(t, got.Warning)
}

func TestTDEE_AsOfBeforeWindow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/users/u1/tdee?as_of=2024-01-05", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	got := decode[errorBody](t, resp)
	assert.Contains(t, got.Error, "Need 14 days")
}

func TestBadParameters(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/users/u1/trend?from=yesterday",
		"/v1/users/u1/tdee?window=two",
		"/v1/users/u1/adjustment?goal_rate=fast",
		"/v1/users/u1/spikes?threshold=x",
		"/v1/users/u1/snapshots?format=xml",
	} {
		resp := do(t, http.MethodGet, srv.URL+path, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestAdjustment(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/users/u1/adjustment?current_calories=2200", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[result[map[string]any]](t, resp)
	assert.Equal(t, 2050.0, got.Data["new_calories"])
}

func TestPredictionDiverging(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/users/u1/prediction", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	got := decode[errorBody](t, resp)
	assert.Contains(t, got.Error, "flat")
}

func TestSpikesEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/users/u1/spikes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[result[[]types.SpikeEvent]](t, resp)
	assert.NotNil(t, got.Data)
	assert.Empty(t, got.Data)
}

func TestCheckInThenSnapshots(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/users/u1/checkins", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[result[engine.CheckInResult]](t, resp)
	assert.Equal(t, 1750, res.Data.Snapshot.RecommendedCalories)

	resp = do(t, http.MethodGet, srv.URL+"/v1/users/u1/snapshots", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[result[[]types.TDEESnapshot]](t, resp)
	require.Len(t, list.Data, 1)
	assert.Equal(t, res.Data.Snapshot.SnapshotID, list.Data[0].SnapshotID)

	resp = do(t, http.MethodGet, srv.URL+"/v1/users/u1/snapshots?format=csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	snaps, err := ledger.ReadCSV(resp.Body)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1750, snaps[0].RecommendedCalories)
}

func TestCompareWithoutCheckIns(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/v1/users/u1/compare", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSampleRoutes(t *testing.T) {
	t.Run("read-only without a writer", func(t *testing.T) {
		srv, _ := newTestServer(t)
		resp := do(t, http.MethodPut, srv.URL+"/v1/users/u1/weights/2024-01-29", `{"weight_lbs": 199.5}`)
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("put and delete weight", func(t *testing.T) {
		store := ledger.NewMemory()
		e, err := engine.New(store, engine.Settings{})
		require.NoError(t, err)
		srv := httptest.NewServer(NewServer(e, WithWriter(store)).Handler())
		defer srv.Close()
		ctx := context.Background()

		resp := do(t, http.MethodPut, srv.URL+"/v1/users/u1/weights/2024-01-29", `{"weight_lbs": 199.5, "note": "am"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		weights, err := store.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, weights, 1)
		assert.Equal(t, 199.5, weights[0].WeightLbs)

		resp = do(t, http.MethodPut, srv.URL+"/v1/users/u1/weights/2024-01-29", `{"weight_lbs": -3}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		resp = do(t, http.MethodPut, srv.URL+"/v1/users/u1/intakes/2024-01-29", `{"calories": 2100, "protein_g": 150}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = do(t, http.MethodDelete, srv.URL+"/v1/users/u1/weights/2024-01-29", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp = do(t, http.MethodDelete, srv.URL+"/v1/users/u1/weights/2024-01-29", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = do(t, http.MethodPut, srv.URL+"/v1/users/u1/weights/29-01-2024", `{"weight_lbs": 199}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&badRequestError{param: "x"}, http.StatusBadRequest},
		{ledger.ErrUnknownFormat, http.StatusBadRequest},
		{types.ErrNotFound, http.StatusNotFound},
		{&types.InsufficientDataError{}, http.StatusUnprocessableEntity},
		{&types.DivergingGoalError{}, http.StatusUnprocessableEntity},
		{types.ErrInvalidUser, http.StatusUnprocessableEntity},
		{errNoWriter, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
