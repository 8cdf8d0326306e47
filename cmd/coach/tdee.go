// TDEE command prints the adaptive expenditure estimate.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newTDEECmd() *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "tdee",
		Short: "Estimate your real daily energy expenditure from the last window of logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s session) error {
				res, err := s.engine.ComputeAdaptiveTDEE(ctx, s.uc, window)
				if err != nil && !types.IsLowConfidence(err) {
					return err
				}
				if flagJSON {
					if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
						return perr
					}
					return warn(cmd, err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Window:         %s to %s (%d days)\n",
					types.FormatDate(res.WindowStart), types.FormatDate(res.AsOf), res.WindowDays)
				fmt.Fprintf(w, "Average intake: %.0f kcal/day\n", res.AverageIntake)
				fmt.Fprintf(w, "Trend change:   %+.2f lb\n", res.WeightChange)
				fmt.Fprintf(w, "Adaptive TDEE:  %.0f kcal/day\n", res.AdaptiveTDEE)
				fmt.Fprintf(w, "Formula TDEE:   %.0f kcal/day\n", res.FormulaTDEE)
				fmt.Fprintf(w, "Confidence:     %s\n", res.Confidence)
				fmt.Fprintln(w, res.Narrative())
				return warn(cmd, err)
			})
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "window in days (default: engine.window_days)")
	return cmd
}
