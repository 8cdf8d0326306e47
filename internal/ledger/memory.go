// Package ledger holds the snapshot history: an in-memory store, week over
// week comparison, and the CSV, JSON and JSONL export formats.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/metabolic/internal/profile"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.Store        = (*Memory)(nil)
	_ types.SampleWriter = (*Memory)(nil)
)

type key struct {
	user string
	day  string
}

// Memory is a mutex-guarded types.Store. Values are copied in and out, so
// callers never share state with the store.
type Memory struct {
	mu        sync.RWMutex
	weights   map[key]types.WeightSample
	intakes   map[key]types.IntakeSample
	profiles  map[string]types.Profile
	snapshots map[key]types.TDEESnapshot
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		weights:   make(map[key]types.WeightSample),
		intakes:   make(map[key]types.IntakeSample),
		profiles:  make(map[string]types.Profile),
		snapshots: make(map[key]types.TDEESnapshot),
	}
}

func keyFor(userID string, date time.Time) key {
	return key{user: userID, day: types.FormatDate(date)}
}

// PutWeight stores or replaces the reading for s.Date.
func (m *Memory) PutWeight(ctx context.Context, userID string, s types.WeightSample) error {
	if userID == "" {
		return types.ErrInvalidUser
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.Date = types.Day(s.Date)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights[keyFor(userID, s.Date)] = s
	return nil
}

// DeleteWeight removes the reading for date.
func (m *Memory) DeleteWeight(ctx context.Context, userID string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyFor(userID, date)
	if _, ok := m.weights[k]; !ok {
		return types.ErrNotFound
	}
	delete(m.weights, k)
	return nil
}

// PutIntake stores or replaces the food log for s.Date.
func (m *Memory) PutIntake(ctx context.Context, userID string, s types.IntakeSample) error {
	if userID == "" {
		return types.ErrInvalidUser
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.Date = types.Day(s.Date)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intakes[keyFor(userID, s.Date)] = s
	return nil
}

// PutProfile stores or replaces a profile.
func (m *Memory) PutProfile(ctx context.Context, p types.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.BirthDate = types.Day(p.BirthDate)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

// Profile returns ErrNotFound when the user has no profile.
func (m *Memory) Profile(ctx context.Context, userID string) (types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return types.Profile{}, types.ErrNotFound
	}
	return p, nil
}

// WeightSamples returns the readings in [from, to] in date order.
func (m *Memory) WeightSamples(ctx context.Context, userID string, from, to time.Time) ([]types.WeightSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.WeightSample
	for k, s := range m.weights {
		if k.user == userID && types.InRange(s.Date, from, to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// IntakeSamples returns the food logs in [from, to] in date order.
func (m *Memory) IntakeSamples(ctx context.Context, userID string, from, to time.Time) ([]types.IntakeSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.IntakeSample
	for k, s := range m.intakes {
		if k.user == userID && types.InRange(s.Date, from, to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// FormulaTDEE applies the profile formula to the latest reading on or
// before asOf.
func (m *Memory) FormulaTDEE(ctx context.Context, userID string, asOf time.Time) (float64, error) {
	p, err := m.Profile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("profile for %s: %w", userID, err)
	}
	weights, err := m.WeightSamples(ctx, userID, time.Time{}, asOf)
	if err != nil {
		return 0, err
	}
	if len(weights) == 0 {
		return 0, &types.InsufficientDataError{Kind: types.KindWeight, Available: 0, Required: 1}
	}
	return profile.FormulaTDEE(p, weights[len(weights)-1].WeightLbs, asOf)
}

// PutSnapshot stores s under (UserID, Date). A replaced snapshot keeps its
// SnapshotID; a new one gets a UUID v7 unless s carries an ID.
func (m *Memory) PutSnapshot(ctx context.Context, s types.TDEESnapshot) (types.TDEESnapshot, error) {
	if err := s.Validate(); err != nil {
		return types.TDEESnapshot{}, err
	}
	s.Date = types.Day(s.Date)
	k := keyFor(s.UserID, s.Date)

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.snapshots[k]; ok {
		s.SnapshotID = prev.SnapshotID
	} else if s.SnapshotID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return types.TDEESnapshot{}, fmt.Errorf("generating snapshot id: %w", err)
		}
		s.SnapshotID = id.String()
	}
	m.snapshots[k] = s
	return s, nil
}

// Snapshot returns ErrNotFound when nothing is stored for the key.
func (m *Memory) Snapshot(ctx context.Context, userID string, date time.Time) (types.TDEESnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[keyFor(userID, date)]
	if !ok {
		return types.TDEESnapshot{}, types.ErrNotFound
	}
	return s, nil
}

// Snapshots returns the snapshots in [from, to] in date order.
func (m *Memory) Snapshots(ctx context.Context, userID string, from, to time.Time) ([]types.TDEESnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.TDEESnapshot
	for k, s := range m.snapshots {
		if k.user == userID && types.InRange(s.Date, from, to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
