package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/metabolic/internal/ledger/ledgertest"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func attach(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackendContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledgertest.Store {
		return attach(t, t.TempDir())
	})
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: filepath.Join(tmpDir, "nested"),
	}

	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	dbPath := filepath.Join(tmpDir, "nested", types.DefaultDatabaseName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("%s not created", types.DefaultDatabaseName)
	}
	if b.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", b.Path(), dbPath)
	}

	if err := b.Attach(config); err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestBackend_AttachRejectsBadConfig(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(types.Config{DataDir: t.TempDir()}); err != types.ErrBackendEmpty {
		t.Errorf("expected ErrBackendEmpty, got %v", err)
	}
	if err := b.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()}); err != types.ErrBackendUnknown {
		t.Errorf("expected ErrBackendUnknown, got %v", err)
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}

	ctx := context.Background()
	if err := b.PutWeight(ctx, "u1", types.WeightSample{Date: day0, WeightLbs: 180}); err != types.ErrBackendDetached {
		t.Errorf("PutWeight after Detach: expected ErrBackendDetached, got %v", err)
	}
	if _, err := b.Snapshots(ctx, "u1", time.Time{}, time.Time{}); err != types.ErrBackendDetached {
		t.Errorf("Snapshots after Detach: expected ErrBackendDetached, got %v", err)
	}
	if _, err := b.FormulaTDEE(ctx, "u1", day0); err == nil {
		t.Error("FormulaTDEE after Detach: expected error")
	}
}

func TestBackend_DataSurvivesReattach(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	require.NoError(t, b.PutWeight(ctx, "u1", types.WeightSample{Date: day0, WeightLbs: 181.2}))
	saved, err := b.PutSnapshot(ctx, types.TDEESnapshot{UserID: "u1", Date: day0, AdaptiveTDEE: 2400})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	weights, err := b.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, weights, 1)
	assert.Equal(t, 181.2, weights[0].WeightLbs)

	snap, err := b.Snapshot(ctx, "u1", day0)
	require.NoError(t, err)
	assert.Equal(t, saved.SnapshotID, snap.SnapshotID)
}

func TestBackend_DumpRestore(t *testing.T) {
	ctx := context.Background()
	src := attach(t, t.TempDir())

	require.NoError(t, src.PutProfile(ctx, ledgertest.Profile("u1")))
	for i := 0; i < 5; i++ {
		d := types.AddDays(day0, i)
		require.NoError(t, src.PutWeight(ctx, "u1", types.WeightSample{Date: d, WeightLbs: 180 - float64(i)/4, Note: "am"}))
		require.NoError(t, src.PutIntake(ctx, "u1", types.IntakeSample{Date: d, Calories: 1900, ProteinG: 160}))
	}
	snap, err := src.PutSnapshot(ctx, types.TDEESnapshot{
		UserID: "u1", Date: types.AddDays(day0, 4), AdaptiveTDEE: 2210.5,
		RecommendedCalories: 1800, Phase: types.PhaseCut, Confidence: types.ConfidenceMedium,
		ComputedAt: time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	backup := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, src.Dump(ctx, backup))
	for _, f := range []string{"profiles.jsonl", "weights.jsonl", "intakes.jsonl", "snapshots.jsonl"} {
		assert.FileExists(t, filepath.Join(backup, f))
	}

	// A malformed line is skipped, not fatal.
	f, err := os.OpenFile(filepath.Join(backup, "weights.jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{broken\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dst := attach(t, t.TempDir())
	stats, err := dst.Restore(ctx, backup)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Loaded["weights"])
	assert.Equal(t, 5, stats.Loaded["intakes"])
	assert.Equal(t, 1, stats.Loaded["profiles"])
	assert.Equal(t, 1, stats.Loaded["snapshots"])

	wantWeights, err := src.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	gotWeights, err := dst.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, wantWeights, gotWeights)

	gotProfile, err := dst.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ledgertest.Profile("u1"), gotProfile)

	gotSnap, err := dst.Snapshot(ctx, "u1", types.AddDays(day0, 4))
	require.NoError(t, err)
	assert.Equal(t, snap, gotSnap)
}

func TestBackend_RestoreSkipsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write := func(name string, lines ...string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0644))
	}
	write("weights.jsonl",
		`{"user_id":"u1","date":"2024-01-01","weight_lbs":180.5,"note":""}`,
		`{"user_id":"u1","date":"2024-01-02","weight_lbs":-3,"note":""}`,
		`{"user_id":"u2","date":"2024-1-5","weight_lbs":170,"note":""}`,
		`{"user_id":"","date":"2024-01-03","weight_lbs":170,"note":""}`,
		`{"user_id":"u1","date":"2024-01-04","note":""}`,
	)
	write("intakes.jsonl",
		`{"user_id":"u1","date":"2024-01-01","calories":2000,"protein_g":150,"fat_g":60,"carbs_g":200}`,
		`{"user_id":"u1","date":"2024-01-02","calories":-50,"protein_g":0,"fat_g":0,"carbs_g":0}`,
	)
	write("profiles.jsonl",
		`{"user_id":"u3","sex":"robot","birth_date":"1990-04-02","height_cm":170,"activity_level":"light","goal_weight_lbs":150,"goal_rate":-0.5,"calorie_target":1900,"protein_per_lb":0.9,"fat_percent":0.3,"updated_at":"2024-01-01T00:00:00Z"}`,
	)
	write("snapshots.jsonl",
		`{"snapshot_id":"s1","user_id":"u1","date":"01/05/2024","computed_at":"2024-01-05T08:00:00Z"}`,
	)

	b := attach(t, t.TempDir())
	stats, err := b.Restore(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded["weights"])
	assert.Equal(t, 1, stats.Loaded["intakes"])
	assert.Equal(t, 0, stats.Loaded["profiles"])
	assert.Equal(t, 0, stats.Loaded["snapshots"])
	assert.Equal(t, 7, stats.Skipped)

	// Restored data stays readable.
	weights, err := b.WeightSamples(ctx, "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, weights, 1)
	assert.Equal(t, 180.5, weights[0].WeightLbs)

	weights, err = b.WeightSamples(ctx, "u2", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, weights)

	_, err = b.Profile(ctx, "u3")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBackend_RestoreMissingDir(t *testing.T) {
	b := attach(t, t.TempDir())
	stats, err := b.Restore(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, stats.Loaded)
}

func TestRangeClause(t *testing.T) {
	where, args := rangeClause("u1", time.Time{}, time.Time{})
	assert.Equal(t, "user_id = ?", where)
	assert.Equal(t, []any{"u1"}, args)

	where, args = rangeClause("u1", day0, types.AddDays(day0, 6))
	assert.Equal(t, "user_id = ? AND date >= ? AND date <= ?", where)
	assert.Equal(t, []any{"u1", "2024-01-01", "2024-01-07"}, args)
}
