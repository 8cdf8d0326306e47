// Backup and restore commands copy the whole database to and from JSONL.
package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dir>",
		Short: "Dump every table to JSONL files in dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Dump(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Backup written to", args[0])
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <dir>",
		Short: "Load a backup directory; records replace rows with the same key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			stats, err := backend.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tables := make([]string, 0, len(stats.Loaded))
			for t := range stats.Loaded {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			w := cmd.OutOrStdout()
			for _, t := range tables {
				fmt.Fprintf(w, "%-10s %d\n", t, stats.Loaded[t])
			}
			if stats.Skipped > 0 {
				fmt.Fprintf(w, "skipped %d malformed records\n", stats.Skipped)
			}
			return nil
		},
	}
}
