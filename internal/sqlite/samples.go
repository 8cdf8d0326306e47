package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// PutWeight stores or replaces the reading for s.Date.
func (b *Backend) PutWeight(ctx context.Context, userID string, s types.WeightSample) error {
	if userID == "" {
		return types.ErrInvalidUser
	}
	if err := s.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO weights (user_id, date, weight_lbs, note) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET weight_lbs = excluded.weight_lbs, note = excluded.note`,
		userID, types.FormatDate(s.Date), s.WeightLbs, s.Note,
	)
	if err != nil {
		return fmt.Errorf("storing weight for %s: %w", types.FormatDate(s.Date), err)
	}
	return nil
}

// DeleteWeight removes the reading for date.
func (b *Backend) DeleteWeight(ctx context.Context, userID string, date time.Time) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	res, err := b.db.ExecContext(ctx,
		"DELETE FROM weights WHERE user_id = ? AND date = ?", userID, types.FormatDate(date))
	if err != nil {
		return fmt.Errorf("deleting weight for %s: %w", types.FormatDate(date), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// PutIntake stores or replaces the food log for s.Date.
func (b *Backend) PutIntake(ctx context.Context, userID string, s types.IntakeSample) error {
	if userID == "" {
		return types.ErrInvalidUser
	}
	if err := s.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO intakes (user_id, date, calories, protein_g, fat_g, carbs_g) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
		   calories = excluded.calories, protein_g = excluded.protein_g,
		   fat_g = excluded.fat_g, carbs_g = excluded.carbs_g`,
		userID, types.FormatDate(s.Date), s.Calories, s.ProteinG, s.FatG, s.CarbsG,
	)
	if err != nil {
		return fmt.Errorf("storing intake for %s: %w", types.FormatDate(s.Date), err)
	}
	return nil
}

// WeightSamples returns the readings in [from, to] in date order.
func (b *Backend) WeightSamples(ctx context.Context, userID string, from, to time.Time) ([]types.WeightSample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	where, args := rangeClause(userID, from, to)
	rows, err := b.db.QueryContext(ctx,
		"SELECT date, weight_lbs, note FROM weights WHERE "+where+" ORDER BY date", args...)
	if err != nil {
		return nil, fmt.Errorf("querying weights: %w", err)
	}
	defer rows.Close()

	var out []types.WeightSample
	for rows.Next() {
		var (
			s    types.WeightSample
			date string
		)
		if err := rows.Scan(&date, &s.WeightLbs, &s.Note); err != nil {
			return nil, fmt.Errorf("scanning weight: %w", err)
		}
		if s.Date, err = types.ParseDate(date); err != nil {
			return nil, fmt.Errorf("stored weight date: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// IntakeSamples returns the food logs in [from, to] in date order.
func (b *Backend) IntakeSamples(ctx context.Context, userID string, from, to time.Time) ([]types.IntakeSample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	where, args := rangeClause(userID, from, to)
	rows, err := b.db.QueryContext(ctx,
		"SELECT date, calories, protein_g, fat_g, carbs_g FROM intakes WHERE "+where+" ORDER BY date", args...)
	if err != nil {
		return nil, fmt.Errorf("querying intakes: %w", err)
	}
	defer rows.Close()

	var out []types.IntakeSample
	for rows.Next() {
		var (
			s    types.IntakeSample
			date string
		)
		if err := rows.Scan(&date, &s.Calories, &s.ProteinG, &s.FatG, &s.CarbsG); err != nil {
			return nil, fmt.Errorf("scanning intake: %w", err)
		}
		if s.Date, err = types.ParseDate(date); err != nil {
			return nil, fmt.Errorf("stored intake date: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// rangeClause builds "user_id = ? [AND date >= ?] [AND date <= ?]". Zero
// bounds are left open.
func rangeClause(userID string, from, to time.Time) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{userID}
	if !from.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, types.FormatDate(from))
	}
	if !to.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, types.FormatDate(to))
	}
	return strings.Join(conds, " AND "), args
}
