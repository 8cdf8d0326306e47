// Predict command projects the goal date.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newPredictCmd() *cobra.Command {
	var goalWeight, goalRate float64
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Project when you reach your goal weight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := engine.GoalRequest{GoalWeight: goalWeight}
			if cmd.Flags().Changed("goal-rate") {
				req.GoalRate = &goalRate
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				pred, err := s.engine.PredictGoalDate(ctx, s.uc, req)
				if err != nil {
					return err
				}
				if flagJSON {
					return printJSON(cmd.OutOrStdout(), pred)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Trend weight:   %.1f lb, goal %.1f lb\n", pred.CurrentWeight, pred.GoalWeight)
				fmt.Fprintf(w, "Current pace:   %+.2f lb/week\n", pred.Slope*7)
				fmt.Fprintf(w, "Best case:      %s\n", types.FormatDate(pred.BestDate))
				fmt.Fprintf(w, "At this pace:   %s\n", types.FormatDate(pred.CurrentDate))
				fmt.Fprintf(w, "Worst case:     %s\n", formatOptionalDate(pred.WorstDate, "not at the slowest recent pace"))
				if pred.PlannedDate != nil {
					fmt.Fprintf(w, "On plan:        %s\n", types.FormatDate(*pred.PlannedDate))
				}
				fmt.Fprintf(w, "Confidence:     %s\n", pred.Confidence)
				for _, r := range pred.Reasons {
					fmt.Fprintln(w, "  -", r)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&goalWeight, "goal-weight", 0, "goal weight in lb (default: profile)")
	cmd.Flags().Float64Var(&goalRate, "goal-rate", 0, "planned lb/week (default: profile)")
	return cmd
}

func formatOptionalDate(d *time.Time, none string) string {
	if d == nil {
		return none
	}
	return types.FormatDate(*d)
}
