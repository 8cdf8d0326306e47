package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// upsertSnapshot replaces every value column on conflict but never the
// snapshot_id, so a recomputed day keeps its identity.
var upsertSnapshot = func() string {
	var sets []string
	for _, c := range snapshotColumns {
		if c == "snapshot_id" || c == "user_id" || c == "date" {
			continue
		}
		sets = append(sets, c+" = excluded."+c)
	}
	return fmt.Sprintf(
		"INSERT INTO snapshots (%s) VALUES (%s) ON CONFLICT(user_id, date) DO UPDATE SET %s RETURNING snapshot_id",
		strings.Join(snapshotColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(snapshotColumns)), ", "),
		strings.Join(sets, ", "),
	)
}()

var selectSnapshot = "SELECT " + strings.Join(snapshotColumns, ", ") + " FROM snapshots"

// PutSnapshot stores s under (UserID, Date) in a single statement. A new
// snapshot without an ID gets a UUID v7; a replaced one keeps its ID.
func (b *Backend) PutSnapshot(ctx context.Context, s types.TDEESnapshot) (types.TDEESnapshot, error) {
	if err := s.Validate(); err != nil {
		return types.TDEESnapshot{}, err
	}
	if s.SnapshotID == "" {
		s.SnapshotID = generateUUID()
	}
	s.Date = types.Day(s.Date)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.TDEESnapshot{}, types.ErrBackendDetached
	}

	var id string
	err := b.db.QueryRowContext(ctx, upsertSnapshot,
		s.SnapshotID, s.UserID, types.FormatDate(s.Date),
		s.FormulaTDEE, s.AdaptiveTDEE, s.TDEEDelta,
		s.AverageIntake14d, s.WeightChange14d, s.TrendWeight,
		s.GoalRate, s.ActualRate, s.PercentDeviation,
		s.RecommendedCalories, s.CalorieAdjustment,
		s.RecommendedMacros.ProteinG, s.RecommendedMacros.FatG, s.RecommendedMacros.CarbsG,
		string(s.Phase), string(s.Confidence), s.ComputedAt.UTC().Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return types.TDEESnapshot{}, fmt.Errorf("storing snapshot for %s: %w", types.FormatDate(s.Date), err)
	}
	s.SnapshotID = id
	return s, nil
}

// Snapshot returns ErrNotFound when nothing is stored for the key.
func (b *Backend) Snapshot(ctx context.Context, userID string, date time.Time) (types.TDEESnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.TDEESnapshot{}, types.ErrBackendDetached
	}

	row := b.db.QueryRowContext(ctx, selectSnapshot+" WHERE user_id = ? AND date = ?", userID, types.FormatDate(date))
	s, err := hydrateSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.TDEESnapshot{}, types.ErrNotFound
	}
	if err != nil {
		return types.TDEESnapshot{}, fmt.Errorf("getting snapshot for %s: %w", types.FormatDate(date), err)
	}
	return s, nil
}

// Snapshots returns the snapshots in [from, to] in date order.
func (b *Backend) Snapshots(ctx context.Context, userID string, from, to time.Time) ([]types.TDEESnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	where, args := rangeClause(userID, from, to)
	rows, err := b.db.QueryContext(ctx, selectSnapshot+" WHERE "+where+" ORDER BY date", args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.TDEESnapshot
	for rows.Next() {
		s, err := hydrateSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateSnapshot(row scanner) (types.TDEESnapshot, error) {
	var (
		s                 types.TDEESnapshot
		date, computed    string
		phase, confidence string
	)
	err := row.Scan(
		&s.SnapshotID, &s.UserID, &date,
		&s.FormulaTDEE, &s.AdaptiveTDEE, &s.TDEEDelta,
		&s.AverageIntake14d, &s.WeightChange14d, &s.TrendWeight,
		&s.GoalRate, &s.ActualRate, &s.PercentDeviation,
		&s.RecommendedCalories, &s.CalorieAdjustment,
		&s.RecommendedMacros.ProteinG, &s.RecommendedMacros.FatG, &s.RecommendedMacros.CarbsG,
		&phase, &confidence, &computed,
	)
	if err != nil {
		return types.TDEESnapshot{}, err
	}
	if s.Date, err = types.ParseDate(date); err != nil {
		return types.TDEESnapshot{}, err
	}
	if s.ComputedAt, err = time.Parse(time.RFC3339Nano, computed); err != nil {
		return types.TDEESnapshot{}, fmt.Errorf("parsing computed_at: %w", err)
	}
	s.Phase = types.Phase(phase)
	s.Confidence = types.Confidence(confidence)
	return s, nil
}
