package types

import (
	"context"
	"time"
)

// Source and ledger ports. A zero from or to bound in a range query is open.

// WeightSource reads raw weight samples in ascending date order.
type WeightSource interface {
	WeightSamples(ctx context.Context, userID string, from, to time.Time) ([]WeightSample, error)
}

// IntakeSource reads daily intake samples in ascending date order.
type IntakeSource interface {
	IntakeSamples(ctx context.Context, userID string, from, to time.Time) ([]IntakeSample, error)
}

// FormulaSource supplies the formula-based (BMR × activity) TDEE.
type FormulaSource interface {
	FormulaTDEE(ctx context.Context, userID string, asOf time.Time) (float64, error)
}

// ProfileSource reads a user's profile. Returns ErrNotFound when absent.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

// Ledger stores TDEESnapshots keyed by (UserID, Date).
//
// PutSnapshot is atomic: a concurrent reader sees either the previous
// snapshot for the key or the new one, never a mix. Replacing a snapshot
// keeps its SnapshotID; the stored snapshot is returned.
type Ledger interface {
	PutSnapshot(ctx context.Context, s TDEESnapshot) (TDEESnapshot, error)

	// Snapshot returns ErrNotFound if nothing is stored for the key.
	Snapshot(ctx context.Context, userID string, date time.Time) (TDEESnapshot, error)

	// Snapshots returns the range in ascending date order.
	Snapshots(ctx context.Context, userID string, from, to time.Time) ([]TDEESnapshot, error)
}

// Store is everything the engine reads from and writes to.
type Store interface {
	WeightSource
	IntakeSource
	FormulaSource
	ProfileSource
	Ledger
}

// SampleWriter records the raw inputs. Writing a date that already holds a
// sample replaces it.
type SampleWriter interface {
	PutWeight(ctx context.Context, userID string, s WeightSample) error
	PutIntake(ctx context.Context, userID string, s IntakeSample) error

	// DeleteWeight returns ErrNotFound if no sample exists for the date.
	DeleteWeight(ctx context.Context, userID string, date time.Time) error

	PutProfile(ctx context.Context, p Profile) error
}

// Backend is a durable store with an attach lifecycle.
type Backend interface {
	Store
	SampleWriter

	// Attach opens the store described by config. It returns
	// ErrAlreadyAttached when called twice without Detach.
	Attach(config Config) error

	// Detach releases the store. Calls after the first are no-ops.
	Detach() error
}
