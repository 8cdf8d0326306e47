// Adjust and check-in commands apply the weekly calorie adjustment.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/adjust"
	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

// adjustFlags are shared by adjust and checkin.
type adjustFlags struct {
	goalRate  float64
	tolerance float64
	calories  int
}

func (f *adjustFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.goalRate, "goal-rate", 0, "goal rate in lb/week (default: profile)")
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", 0, "accepted miss as a fraction of the goal rate (default: engine.tolerance)")
	cmd.Flags().IntVar(&f.calories, "calories", 0, "current daily calories (default: profile target, then last check-in, then recent intake)")
}

func (f *adjustFlags) request(cmd *cobra.Command) engine.AdjustmentRequest {
	req := engine.AdjustmentRequest{Tolerance: f.tolerance, CurrentCalories: f.calories}
	if cmd.Flags().Changed("goal-rate") {
		rate := f.goalRate
		req.GoalRate = &rate
	}
	return req
}

func newAdjustCmd() *cobra.Command {
	var flags adjustFlags
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Recommend this week's calorie change without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s session) error {
				rec, err := s.engine.WeeklyAdjustment(ctx, s.uc, flags.request(cmd))
				if err != nil {
					return err
				}
				if flagJSON {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				printRecommendation(cmd.OutOrStdout(), rec)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newCheckInCmd() *cobra.Command {
	var flags adjustFlags
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Compute TDEE and the weekly adjustment and record them for the --as-of day",
		Long: `Compute adaptive TDEE and the weekly adjustment for the --as-of day and
record them in the ledger. Checking in again on the same day replaces that
day's record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s session) error {
				res, err := s.engine.CheckIn(ctx, s.uc, flags.request(cmd))
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
				fmt.Fprintf(w, "Check-in %s recorded (%s)\n", types.FormatDate(res.Snapshot.Date), res.Snapshot.SnapshotID)
				fmt.Fprintf(w, "Adaptive TDEE:  %.0f kcal/day (%s confidence)\n", res.TDEE.AdaptiveTDEE, res.TDEE.Confidence)
				fmt.Fprintln(w, res.TDEE.Narrative())
				printRecommendation(w, res.Adjustment)
				return warn(cmd, err)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func printRecommendation(w io.Writer, rec adjust.Recommendation) {
	fmt.Fprintf(w, "Phase:          %s\n", rec.Phase)
	fmt.Fprintf(w, "Goal rate:      %+.2f lb/week\n", rec.GoalRate)
	fmt.Fprintf(w, "Actual rate:    %+.2f lb/week\n", rec.ActualRate)
	fmt.Fprintf(w, "Calories:       %d -> %d (%+d)\n", rec.CurrentCalories, rec.NewCalories, rec.CalorieChange)
	fmt.Fprintf(w, "Macros:         %dg protein, %dg fat, %dg carbs\n", rec.Macros.ProteinG, rec.Macros.FatG, rec.Macros.CarbsG)
	fmt.Fprintln(w, rec.Rationale)
}
