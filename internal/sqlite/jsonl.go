package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// dumpTables maps each table to its backup file. Restore loads them in this
// order.
var dumpTables = []struct {
	file    string
	table   string
	columns []string
	check   func(record) error
}{
	{"profiles.jsonl", "profiles", profileColumns, checkProfile},
	{"weights.jsonl", "weights", weightColumns, checkWeight},
	{"intakes.jsonl", "intakes", intakeColumns, checkIntake},
	{"snapshots.jsonl", "snapshots", snapshotColumns, checkSnapshot},
}

// Dump writes every table to a JSONL file in dir, one row per line keyed
// by column name. Each file is replaced atomically.
func (b *Backend) Dump(ctx context.Context, dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrBackendDetached
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	for _, t := range dumpTables {
		records, err := b.dumpTable(ctx, t.table, t.columns)
		if err != nil {
			return err
		}
		if err := writeJSONL(filepath.Join(dir, t.file), records); err != nil {
			return fmt.Errorf("writing %s: %w", t.file, err)
		}
	}
	return nil
}

func (b *Backend) dumpTable(ctx context.Context, table string, columns []string) ([]json.RawMessage, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(columns, ", "), table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		obj := make(map[string]any, len(columns))
		for i, c := range columns {
			if raw, ok := values[i].([]byte); ok {
				values[i] = string(raw)
			}
			obj[c] = values[i]
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", table, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, append(json.RawMessage(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	abort := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		w.Write(rec)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return abort(fmt.Errorf("writing records: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return abort(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
