// Root command for the coach CLI.
package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic"
	"github.com/mesh-intelligence/metabolic/internal/config"
	"github.com/mesh-intelligence/metabolic/internal/paths"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagUser      string
	flagAsOf      string
	flagJSON      bool
)

// cfg is the configuration loaded by PersistentPreRunE so all subcommands
// can use it.
var cfg config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coach",
		Short:         "Coach estimates your real energy expenditure and adjusts your calories weekly",
		Version:       metabolic.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := resolveConfigDir()
			if err != nil {
				return err
			}
			loaded, err := config.Load(configDir)
			if err != nil {
				return err
			}
			cfg = loaded
			if flagUser != "" {
				cfg.User = flagUser
			}
			slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir/metabolic)")
	pf.StringVar(&flagDataDir, "data-dir", "", "data directory (default: platform data dir/metabolic)")
	pf.StringVar(&flagUser, "user", "", "user id (default: user from config.yaml)")
	pf.StringVar(&flagAsOf, "as-of", "", "day to compute for, YYYY-MM-DD (default: today)")
	pf.BoolVar(&flagJSON, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newLogCmd(),
		newProfileCmd(),
		newTrendCmd(),
		newTDEECmd(),
		newAdjustCmd(),
		newSpikesCmd(),
		newPredictCmd(),
		newCheckInCmd(),
		newHistoryCmd(),
		newExportCmd(),
		newImportCmd(),
		newCompareCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newServeCmd(),
	)
	return root
}

// resolveDataDir returns the data directory following the precedence:
// --data-dir flag > config.yaml data_dir > METABOLIC_DATA_DIR env > platform default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, cfg.DataDir)
}

// resolveConfigDir returns the configuration directory following the precedence:
// --config-dir flag > METABOLIC_CONFIG_DIR env > DefaultConfigDir().
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// userContext scopes a command to the configured user and the --as-of day.
func userContext() (types.UserContext, error) {
	asOf := types.Day(time.Now().UTC())
	if flagAsOf != "" {
		d, err := types.ParseDate(flagAsOf)
		if err != nil {
			return types.UserContext{}, err
		}
		asOf = d
	}
	if cfg.User == "" {
		return types.UserContext{}, fmt.Errorf("no user: %w", types.ErrInvalidUser)
	}
	return types.UserContext{UserID: cfg.User, AsOf: asOf}, nil
}
