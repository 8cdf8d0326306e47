// Compare command puts this week's check-ins next to last week's.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Compare the last 7 days of check-ins with the 7 days before",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s session) error {
				c, err := s.engine.CompareWeeks(ctx, s.uc)
				if err != nil {
					return err
				}
				if flagJSON {
					return printJSON(cmd.OutOrStdout(), c)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-14s  %22s  %22s  %8s\n", "",
					types.FormatDate(c.Previous.From)+".."+types.FormatDate(c.Previous.To),
					types.FormatDate(c.Current.From)+".."+types.FormatDate(c.Current.To), "change")
				row := func(name, format string, prev, cur, change float64) {
					fmt.Fprintf(w, "%-14s  %22s  %22s  %8s\n", name,
						fmt.Sprintf(format, prev), fmt.Sprintf(format, cur), fmt.Sprintf("%+.2f", change))
				}
				row("trend weight", "%.2f", c.Previous.TrendWeight, c.Current.TrendWeight, c.TrendWeightChange)
				row("adaptive TDEE", "%.0f", c.Previous.AdaptiveTDEE, c.Current.AdaptiveTDEE, c.AdaptiveTDEEChange)
				row("intake", "%.0f", c.Previous.AverageIntake, c.Current.AverageIntake, c.AverageIntakeChange)
				row("rate lb/week", "%+.2f", c.Previous.ActualRate, c.Current.ActualRate, c.ActualRateChange)
				return nil
			})
		},
	}
}
