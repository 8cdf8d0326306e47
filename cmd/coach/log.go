// Log commands record raw weight and intake samples.
package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a weigh-in or a day of food",
	}
	cmd.AddCommand(newLogWeightCmd(), newLogIntakeCmd(), newLogDeleteWeightCmd())
	return cmd
}

// parseAmount parses a positional numeric argument.
func parseAmount(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, usagef("%s must be a number, got %q", name, s)
	}
	return v, nil
}

func newLogWeightCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "weight <lbs>",
		Short: "Record the scale reading for the --as-of day",
		Long: `Record the scale reading for the --as-of day (default today).
Logging the same day again replaces the earlier reading.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lbs, err := parseAmount("weight", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				sample := types.WeightSample{Date: s.uc.AsOf, WeightLbs: lbs, Note: note}
				if err := s.backend.PutWeight(ctx, s.uc.UserID, sample); err != nil {
					return err
				}
				if flagJSON {
					return printJSON(cmd.OutOrStdout(), sample)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %.1f lb for %s\n", lbs, types.FormatDate(s.uc.AsOf))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-text note")
	return cmd
}

func newLogIntakeCmd() *cobra.Command {
	var protein, fat, carbs float64
	cmd := &cobra.Command{
		Use:   "intake <kcal>",
		Short: "Record the day's food total for the --as-of day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kcal, err := parseAmount("calories", args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				sample := types.IntakeSample{Date: s.uc.AsOf, Calories: kcal, ProteinG: protein, FatG: fat, CarbsG: carbs}
				if err := s.backend.PutIntake(ctx, s.uc.UserID, sample); err != nil {
					return err
				}
				if flagJSON {
					return printJSON(cmd.OutOrStdout(), sample)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %.0f kcal for %s\n", kcal, types.FormatDate(s.uc.AsOf))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&protein, "protein", 0, "protein grams")
	cmd.Flags().Float64Var(&fat, "fat", 0, "fat grams")
	cmd.Flags().Float64Var(&carbs, "carbs", 0, "carbohydrate grams")
	return cmd
}

func newLogDeleteWeightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm-weight <date>",
		Short: "Delete the weigh-in of a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := types.ParseDate(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s session) error {
				err := s.backend.DeleteWeight(ctx, s.uc.UserID, date)
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("no weigh-in on %s: %w", types.FormatDate(date), err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted weigh-in for %s\n", types.FormatDate(date))
				return nil
			})
		},
	}
}
