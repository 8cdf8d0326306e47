// History, export and import commands work on the snapshot ledger.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/ledger"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newHistoryCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded check-ins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := optionalDate("from", from)
			if err != nil {
				return err
			}
			toDate, err := optionalDate("to", to)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				snaps, err := s.engine.SnapshotHistory(ctx, s.uc, fromDate, toDate)
				if err != nil {
					return err
				}
				if flagJSON {
					return ledger.WriteJSON(cmd.OutOrStdout(), snaps)
				}
				w := cmd.OutOrStdout()
				if len(snaps) == 0 {
					fmt.Fprintln(w, "No check-ins.")
					return nil
				}
				fmt.Fprintf(w, "%-10s  %7s  %6s  %6s  %8s  %6s  %s\n", "date", "trend", "tdee", "intake", "rate", "kcal", "confidence")
				for _, sn := range snaps {
					fmt.Fprintf(w, "%-10s  %7.2f  %6.0f  %6.0f  %+8.2f  %6d  %s\n",
						types.FormatDate(sn.Date), sn.TrendWeight, sn.AdaptiveTDEE, sn.AverageIntake14d,
						sn.ActualRate, sn.RecommendedCalories, sn.Confidence)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default: --as-of)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write check-ins to a csv, json or jsonl file",
		Long: `Write the user's check-ins up to --as-of to a file. The format comes from
--format, or else from the file extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format == "" {
				format = path
			}
			f, err := ledger.ParseFormat(format)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				snaps, err := s.engine.SnapshotHistory(ctx, s.uc, time.Time{}, s.uc.AsOf)
				if err != nil {
					return err
				}
				if err := ledger.ExportFile(path, f, snaps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d check-ins to %s\n", len(snaps), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "csv, json or jsonl")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load check-ins from a csv, json or jsonl export",
		Long: `Load check-ins from an export file. Each record replaces the stored
check-in of the same user and day; the file's user ids are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := ledger.ImportFile(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				n, err := ledger.Import(ctx, s.backend, snaps)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d check-ins\n", n, len(snaps))
				return err
			})
		},
	}
}
