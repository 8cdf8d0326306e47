// Trend command prints the smoothed weight series.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newTrendCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Print the smoothed weight trend",
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
				points, err := s.engine.TrendSeries(ctx, s.uc, fromDate, toDate)
				if err != nil {
					return err
				}
				if flagJSON {
					return printJSON(cmd.OutOrStdout(), points)
				}
				weights, err := s.backend.WeightSamples(ctx, s.uc.UserID, fromDate, s.uc.AsOf)
				if err != nil {
					return err
				}
				raw := make(map[string]float64, len(weights))
				for _, w := range weights {
					raw[types.FormatDate(w.Date)] = w.WeightLbs
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-10s  %7s  %7s\n", "date", "scale", "trend")
				for _, p := range points {
					d := types.FormatDate(p.Date)
					fmt.Fprintf(w, "%-10s  %7.1f  %7.2f\n", d, raw[d], p.Weight)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default: --as-of)")
	return cmd
}
