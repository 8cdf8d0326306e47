package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// ErrUnknownFormat is returned for a format other than csv, json or jsonl.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name, or a file name whose extension names
// one.
func ParseFormat(s string) (Format, error) {
	if ext := filepath.Ext(s); ext != "" {
		s = ext[1:]
	}
	s = strings.ToLower(s)
	switch f := Format(s); f {
	case FormatCSV, FormatJSON, FormatJSONL:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

var csvHeader = []string{
	"snapshot_id", "user_id", "date",
	"formula_tdee", "adaptive_tdee", "tdee_delta",
	"average_intake_14d", "weight_change_14d", "trend_weight",
	"goal_rate", "actual_rate", "percent_deviation",
	"recommended_calories", "calorie_adjustment",
	"protein_g", "fat_g", "carbs_g",
	"phase", "confidence", "computed_at",
}

// Write encodes snapshots to w in the given format.
func Write(w io.Writer, f Format, snapshots []types.TDEESnapshot) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, snapshots)
	case FormatJSON:
		return WriteJSON(w, snapshots)
	case FormatJSONL:
		return WriteJSONL(w, snapshots)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}

// Read decodes snapshots from r in the given format.
func Read(r io.Reader, f Format) ([]types.TDEESnapshot, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		return ReadJSON(r)
	case FormatJSONL:
		return ReadJSONL(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}

// WriteCSV writes a header row and one row per snapshot.
func WriteCSV(w io.Writer, snapshots []types.TDEESnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, s := range snapshots {
		row := []string{
			s.SnapshotID, s.UserID, types.FormatDate(s.Date),
			ff(s.FormulaTDEE), ff(s.AdaptiveTDEE), ff(s.TDEEDelta),
			ff(s.AverageIntake14d), ff(s.WeightChange14d), ff(s.TrendWeight),
			ff(s.GoalRate), ff(s.ActualRate), ff(s.PercentDeviation),
			strconv.Itoa(s.RecommendedCalories), strconv.Itoa(s.CalorieAdjustment),
			strconv.Itoa(s.RecommendedMacros.ProteinG), strconv.Itoa(s.RecommendedMacros.FatG), strconv.Itoa(s.RecommendedMacros.CarbsG),
			string(s.Phase), string(s.Confidence), s.ComputedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", types.FormatDate(s.Date), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ReadCSV parses the output of WriteCSV. Columns are matched by header name
// and unknown columns are ignored.
func ReadCSV(r io.Reader) ([]types.TDEESnapshot, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	var out []types.TDEESnapshot
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		p := csvRow{rec: rec, col: col}
		s := types.TDEESnapshot{
			SnapshotID:          p.str("snapshot_id"),
			UserID:              p.str("user_id"),
			Date:                p.date("date"),
			FormulaTDEE:         p.number("formula_tdee"),
			AdaptiveTDEE:        p.number("adaptive_tdee"),
			TDEEDelta:           p.number("tdee_delta"),
			AverageIntake14d:    p.number("average_intake_14d"),
			WeightChange14d:     p.number("weight_change_14d"),
			TrendWeight:         p.number("trend_weight"),
			GoalRate:            p.number("goal_rate"),
			ActualRate:          p.number("actual_rate"),
			PercentDeviation:    p.number("percent_deviation"),
			RecommendedCalories: p.integer("recommended_calories"),
			CalorieAdjustment:   p.integer("calorie_adjustment"),
			RecommendedMacros: types.Macros{
				ProteinG: p.integer("protein_g"),
				FatG:     p.integer("fat_g"),
				CarbsG:   p.integer("carbs_g"),
			},
			Phase:      types.Phase(p.str("phase")),
			Confidence: types.Confidence(p.str("confidence")),
			ComputedAt: p.timestamp("computed_at"),
		}
		if p.err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, p.err)
		}
		out = append(out, s)
	}
}

// csvRow reads typed fields from one record, keeping the first error.
type csvRow struct {
	rec []string
	col map[string]int
	err error
}

func (p *csvRow) str(name string) string {
	i, ok := p.col[name]
	if !ok || i >= len(p.rec) {
		return ""
	}
	return p.rec[i]
}

func (p *csvRow) number(name string) float64 {
	s := p.str(name)
	if s == "" || p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (p *csvRow) integer(name string) int {
	s := p.str(name)
	if s == "" || p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (p *csvRow) date(name string) time.Time {
	s := p.str(name)
	if s == "" || p.err != nil {
		return time.Time{}
	}
	d, err := types.ParseDate(s)
	if err != nil {
		p.err = err
	}
	return d
}

func (p *csvRow) timestamp(name string) time.Time {
	s := p.str(name)
	if s == "" || p.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return t
}

// WriteJSON writes the snapshots as one indented JSON array.
func WriteJSON(w io.Writer, snapshots []types.TDEESnapshot) error {
	if snapshots == nil {
		snapshots = []types.TDEESnapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshots)
}

// ReadJSON reads a JSON array of snapshots.
func ReadJSON(r io.Reader) ([]types.TDEESnapshot, error) {
	var out []types.TDEESnapshot
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding snapshots: %w", err)
	}
	return out, nil
}

// WriteJSONL writes one snapshot per line.
func WriteJSONL(w io.Writer, snapshots []types.TDEESnapshot) error {
	bw := bufio.NewWriter(w)
	for _, s := range snapshots {
		line, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding snapshot %s: %w", types.FormatDate(s.Date), err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadJSONL reads one snapshot per line. Blank and malformed lines are
// skipped.
func ReadJSONL(r io.Reader) ([]types.TDEESnapshot, error) {
	var out []types.TDEESnapshot
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var s types.TDEESnapshot
		if err := json.Unmarshal(line, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning snapshots: %w", err)
	}
	return out, nil
}

// ExportFile writes snapshots to path atomically: the data goes to a temp
// file in the same directory, is synced, and then renamed over path.
func ExportFile(path string, f Format, snapshots []types.TDEESnapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if err := Write(bw, f, snapshots); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
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

// ImportFile reads snapshots from path, choosing the format by extension.
func ImportFile(path string) ([]types.TDEESnapshot, error) {
	f, err := ParseFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()
	return Read(file, f)
}

// Import writes snapshots into l and returns how many were stored. It
// stops at the first snapshot the ledger rejects.
func Import(ctx context.Context, l types.Ledger, snapshots []types.TDEESnapshot) (int, error) {
	for i, s := range snapshots {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := l.PutSnapshot(ctx, s); err != nil {
			return i, fmt.Errorf("importing snapshot for %s: %w", types.FormatDate(s.Date), err)
		}
	}
	return len(snapshots), nil
}
