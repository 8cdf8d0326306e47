// Package types defines the data model, error kinds and store interfaces of
// the metabolic estimation engine: weight and intake samples, trend points,
// TDEE snapshots, spike events and goal predictions.
//
// The computation packages under internal/ depend only on this package, so
// any store that satisfies WeightSource, IntakeSource, FormulaSource and
// Ledger can back the engine.
package types
