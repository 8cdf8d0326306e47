// Shared helpers for coach CLI commands.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/internal/ledger"
	"github.com/mesh-intelligence/metabolic/internal/sqlite"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// usageError is a bad argument or flag value.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode maps an error to the process exit status. Problems with the
// user's input or data exit 1; everything else exits 2.
func exitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &usage),
		errors.Is(err, types.ErrInvalidMeasurement),
		errors.Is(err, types.ErrInvalidUser),
		errors.Is(err, types.ErrInsufficientData),
		errors.Is(err, types.ErrDivergingGoal),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, ledger.ErrUnknownFormat):
		return exitUserError
	default:
		return exitSysError
	}
}

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must defer backend.Detach().
func attachBackend() (*sqlite.Backend, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg.Store(dataDir)); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}

// session is an attached backend, the engine over it, and the scoped user.
type session struct {
	backend *sqlite.Backend
	engine  *engine.Engine
	uc      types.UserContext
}

// withSession runs fn against a freshly attached backend and detaches it
// afterwards.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s session) error) error {
	uc, err := userContext()
	if err != nil {
		return err
	}
	backend, err := attachBackend()
	if err != nil {
		return err
	}
	defer backend.Detach()

	e, err := engine.New(backend, cfg.Engine)
	if err != nil {
		return fmt.Errorf("engine settings: %w", err)
	}
	return fn(cmd.Context(), session{backend: backend, engine: e, uc: uc})
}

// warn prints a low-confidence flag and clears it; other errors pass
// through.
func warn(cmd *cobra.Command, err error) error {
	if err != nil && types.IsLowConfidence(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		return nil
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// optionalDate parses an optional YYYY-MM-DD flag value.
func optionalDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := types.ParseDate(value)
	if err != nil {
		return time.Time{}, usagef("--%s: %v", name, err)
	}
	return d, nil
}
