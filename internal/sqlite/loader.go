package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// RestoreStats counts the rows loaded per table and the records skipped.
type RestoreStats struct {
	Loaded  map[string]int
	Skipped int
}

// Restore loads a Dump directory. Loading is transactional: either every
// file is applied or the database is unchanged. Rows replace existing rows
// with the same key. Missing files are treated as empty; malformed records
// and records that violate a constraint are skipped and counted. Unknown
// fields are ignored.
func (b *Backend) Restore(ctx context.Context, dir string) (RestoreStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return RestoreStats{}, types.ErrBackendDetached
	}

	stats := RestoreStats{Loaded: make(map[string]int)}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning restore transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range dumpTables {
		records, err := readJSONL(filepath.Join(dir, t.file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("reading %s: %w", t.file, err)
		}
		loaded, skipped, err := insertRecords(ctx, tx, t.table, t.columns, t.check, records)
		if err != nil {
			return stats, fmt.Errorf("loading %s into %s: %w", t.file, t.table, err)
		}
		stats.Loaded[t.table] = loaded
		stats.Skipped += skipped
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("committing restore transaction: %w", err)
	}
	return stats, nil
}

// insertRecords inserts JSONL records into table. Only the listed columns
// are read from each record, and records that fail check are skipped.
func insertRecords(ctx context.Context, tx *sql.Tx, table string, columns []string, check func(record) error, records []json.RawMessage) (loaded, skipped int, err error) {
	insertSQL := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj record
		if err := json.Unmarshal(rec, &obj); err != nil || obj == nil {
			skipped++
			continue
		}
		if err := check(obj); err != nil {
			skipped++
			continue
		}
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = obj[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			skipped++
			continue
		}
		loaded++
	}
	return loaded, skipped, nil
}

// record is one decoded JSONL row keyed by column name.
type record map[string]any

func (r record) str(col string) string {
	s, _ := r[col].(string)
	return s
}

// num returns a numeric column. A missing or non-numeric value is NaN so
// the typed Validate rejects it.
func (r record) num(col string) float64 {
	v, ok := r[col].(float64)
	if !ok {
		return math.NaN()
	}
	return v
}

// date parses a date column, which must be stored in canonical
// YYYY-MM-DD form for range queries to match it.
func (r record) date(col string) (time.Time, error) {
	raw := r.str(col)
	d, err := types.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if types.FormatDate(d) != raw {
		return time.Time{}, &types.InvalidMeasurementError{Field: col, Value: raw, Reason: "dates must look like 2024-01-31"}
	}
	return d, nil
}

func (r record) user() error {
	if r.str("user_id") == "" {
		return types.ErrInvalidUser
	}
	return nil
}

func checkWeight(r record) error {
	if err := r.user(); err != nil {
		return err
	}
	d, err := r.date("date")
	if err != nil {
		return err
	}
	return types.WeightSample{Date: d, WeightLbs: r.num("weight_lbs")}.Validate()
}

func checkIntake(r record) error {
	if err := r.user(); err != nil {
		return err
	}
	d, err := r.date("date")
	if err != nil {
		return err
	}
	return types.IntakeSample{
		Date:     d,
		Calories: r.num("calories"),
		ProteinG: r.num("protein_g"),
		FatG:     r.num("fat_g"),
		CarbsG:   r.num("carbs_g"),
	}.Validate()
}

func checkProfile(r record) error {
	birth, err := r.date("birth_date")
	if err != nil {
		return err
	}
	target := r.num("calorie_target")
	if math.IsNaN(target) || math.IsInf(target, 0) || target != math.Trunc(target) {
		return types.InvalidValue("calorie target", target, "calorie target must be a whole number")
	}
	return types.Profile{
		UserID:             r.str("user_id"),
		Sex:                r.str("sex"),
		BirthDate:          birth,
		HeightCM:           r.num("height_cm"),
		GoalWeightLbs:      r.num("goal_weight_lbs"),
		GoalRateLbsPerWeek: r.num("goal_rate"),
		CalorieTarget:      int(target),
		ProteinPerLb:       r.num("protein_per_lb"),
		FatPercent:         r.num("fat_percent"),
	}.Validate()
}

func checkSnapshot(r record) error {
	if r.str("snapshot_id") == "" {
		return &types.InvalidMeasurementError{Field: "snapshot_id", Reason: "a snapshot needs an id"}
	}
	d, err := r.date("date")
	if err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339Nano, r.str("computed_at")); err != nil {
		return &types.InvalidMeasurementError{Field: "computed_at", Value: r.str("computed_at"), Reason: "timestamps must be RFC 3339"}
	}
	return types.TDEESnapshot{UserID: r.str("user_id"), Date: d}.Validate()
}
