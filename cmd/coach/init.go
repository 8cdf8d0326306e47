// Init command for the coach CLI.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// PersistentPreRunE has already written config.yaml if it was missing.
			configDir, err := resolveConfigDir()
			if err != nil {
				return err
			}
			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Coach initialized")
			fmt.Fprintln(out, "  config:  ", filepath.Join(configDir, config.FileName))
			fmt.Fprintln(out, "  database:", backend.Path())
			fmt.Fprintln(out, "  user:    ", cfg.User)
			return nil
		},
	}
}
