package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/metabolic/internal/profile"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// PutProfile stores or replaces a profile.
func (b *Backend) PutProfile(ctx context.Context, p types.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, sex, birth_date, height_cm, activity_level, goal_weight_lbs,
		   goal_rate, calorie_target, protein_per_lb, fat_percent, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   sex = excluded.sex, birth_date = excluded.birth_date, height_cm = excluded.height_cm,
		   activity_level = excluded.activity_level, goal_weight_lbs = excluded.goal_weight_lbs,
		   goal_rate = excluded.goal_rate, calorie_target = excluded.calorie_target,
		   protein_per_lb = excluded.protein_per_lb, fat_percent = excluded.fat_percent,
		   updated_at = excluded.updated_at`,
		p.UserID, p.Sex, types.FormatDate(p.BirthDate), p.HeightCM, p.ActivityLevel, p.GoalWeightLbs,
		p.GoalRateLbsPerWeek, p.CalorieTarget, p.ProteinPerLb, p.FatPercent,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing profile %s: %w", p.UserID, err)
	}
	return nil
}

// Profile returns ErrNotFound when the user has no profile.
func (b *Backend) Profile(ctx context.Context, userID string) (types.Profile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Profile{}, types.ErrBackendDetached
	}

	var (
		p     types.Profile
		birth string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT user_id, sex, birth_date, height_cm, activity_level, goal_weight_lbs,
		   goal_rate, calorie_target, protein_per_lb, fat_percent
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Sex, &birth, &p.HeightCM, &p.ActivityLevel, &p.GoalWeightLbs,
		&p.GoalRateLbsPerWeek, &p.CalorieTarget, &p.ProteinPerLb, &p.FatPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Profile{}, types.ErrNotFound
	}
	if err != nil {
		return types.Profile{}, fmt.Errorf("getting profile %s: %w", userID, err)
	}
	if p.BirthDate, err = types.ParseDate(birth); err != nil {
		return types.Profile{}, fmt.Errorf("stored birth date: %w", err)
	}
	return p, nil
}

// FormulaTDEE applies the profile formula to the latest reading on or
// before asOf.
func (b *Backend) FormulaTDEE(ctx context.Context, userID string, asOf time.Time) (float64, error) {
	p, err := b.Profile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("profile for %s: %w", userID, err)
	}

	weight, err := b.latestWeight(ctx, userID, asOf)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &types.InsufficientDataError{Kind: types.KindWeight, Available: 0, Required: 1}
	}
	if err != nil {
		return 0, fmt.Errorf("latest weight for %s: %w", userID, err)
	}
	return profile.FormulaTDEE(p, weight, asOf)
}

func (b *Backend) latestWeight(ctx context.Context, userID string, asOf time.Time) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrBackendDetached
	}

	var weight float64
	err := b.db.QueryRowContext(ctx,
		"SELECT weight_lbs FROM weights WHERE user_id = ? AND date <= ? ORDER BY date DESC LIMIT 1",
		userID, types.FormatDate(asOf),
	).Scan(&weight)
	return weight, err
}
