// Profile commands manage the per-user body data and goal.
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/internal/profile"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile and goal",
	}
	cmd.AddCommand(newProfileSetCmd(), newProfileShowCmd())
	return cmd
}

func newProfileSetCmd() *cobra.Command {
	var (
		sex, birth, activity string
		height, goalWeight   float64
		goalRate             float64
		proteinPerLb, fatPct float64
		calorieTarget        int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update the profile; unset flags keep their stored value",
		Long: fmt.Sprintf(`Create or update the profile. Flags that are not given keep their
stored value.

Activity levels: %s.
Goal rate is signed lb/week: -1 loses a pound a week, 0 maintains.`, strings.Join(profile.Levels(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s session) error {
				p, err := s.backend.Profile(ctx, s.uc.UserID)
				if err != nil && !errors.Is(err, types.ErrNotFound) {
					return err
				}
				p.UserID = s.uc.UserID

				f := cmd.Flags()
				if f.Changed("sex") {
					p.Sex = strings.ToLower(sex)
				}
				if f.Changed("birth-date") {
					d, err := types.ParseDate(birth)
					if err != nil {
						return err
					}
					p.BirthDate = d
				}
				if f.Changed("height-cm") {
					p.HeightCM = height
				}
				if f.Changed("activity") {
					p.ActivityLevel = strings.ToLower(activity)
				}
				if f.Changed("goal-weight") {
					p.GoalWeightLbs = goalWeight
				}
				if f.Changed("goal-rate") {
					p.GoalRateLbsPerWeek = goalRate
				}
				if f.Changed("calorie-target") {
					p.CalorieTarget = calorieTarget
				}
				if f.Changed("protein-per-lb") {
					p.ProteinPerLb = proteinPerLb
				}
				if f.Changed("fat-percent") {
					p.FatPercent = fatPct / 100
				}
				if _, err := profile.Multiplier(p.ActivityLevel); err != nil {
					return err
				}
				if err := s.backend.PutProfile(ctx, p); err != nil {
					return err
				}
				return printProfile(ctx, cmd, s, p)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&sex, "sex", "", "male or female")
	f.StringVar(&birth, "birth-date", "", "birth date, YYYY-MM-DD")
	f.Float64Var(&height, "height-cm", 0, "height in centimetres")
	f.StringVar(&activity, "activity", "", "activity level")
	f.Float64Var(&goalWeight, "goal-weight", 0, "goal weight in lb")
	f.Float64Var(&goalRate, "goal-rate", 0, "goal rate in lb/week, negative to lose")
	f.IntVar(&calorieTarget, "calorie-target", 0, "current daily calorie target")
	f.Float64Var(&proteinPerLb, "protein-per-lb", 0, "protein grams per lb of bodyweight")
	f.Float64Var(&fatPct, "fat-percent", 0, "share of calories from fat, in percent")
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the profile and its formula TDEE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s session) error {
				p, err := s.backend.Profile(ctx, s.uc.UserID)
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("no profile for %q, run coach profile set: %w", s.uc.UserID, err)
				}
				if err != nil {
					return err
				}
				return printProfile(ctx, cmd, s, p)
			})
		},
	}
}

func printProfile(ctx context.Context, cmd *cobra.Command, s session, p types.Profile) error {
	formula, formulaErr := s.backend.FormulaTDEE(ctx, s.uc.UserID, s.uc.AsOf)
	if flagJSON {
		out := map[string]any{"profile": p}
		if formulaErr == nil {
			out["formula_tdee"] = formula
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "User:           %s\n", p.UserID)
	fmt.Fprintf(w, "Sex:            %s\n", p.Sex)
	fmt.Fprintf(w, "Birth date:     %s\n", types.FormatDate(p.BirthDate))
	fmt.Fprintf(w, "Height:         %.1f cm\n", p.HeightCM)
	fmt.Fprintf(w, "Activity:       %s\n", p.ActivityLevel)
	fmt.Fprintf(w, "Goal weight:    %.1f lb\n", p.GoalWeightLbs)
	fmt.Fprintf(w, "Goal rate:      %+.2f lb/week (%s)\n", p.GoalRateLbsPerWeek, types.PhaseForRate(p.GoalRateLbsPerWeek))
	fmt.Fprintf(w, "Calorie target: %d kcal\n", p.CalorieTarget)
	if formulaErr == nil {
		fmt.Fprintf(w, "Formula TDEE:   %.0f kcal/day\n", formula)
	} else {
		fmt.Fprintf(w, "Formula TDEE:   n/a (%v)\n", formulaErr)
	}
	return nil
}
