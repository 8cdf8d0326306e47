// Spikes command lists scale readings far from trend.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/metabolic/pkg/types"
)

func newSpikesCmd() *cobra.Command {
	var from, to string
	var threshold float64
	cmd := &cobra.Command{
		Use:   "spikes",
		Short: "List readings that sit far from trend, with likely causes",
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
				if fromDate.IsZero() {
					fromDate = types.AddDays(s.uc.AsOf, -27)
				}
				events, err := s.engine.DetectSpikes(ctx, s.uc, fromDate, toDate, threshold)
				if err != nil {
					return err
				}
				if flagJSON {
					if events == nil {
						events = []types.SpikeEvent{}
					}
					return printJSON(cmd.OutOrStdout(), events)
				}
				w := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(w, "No spikes.")
					return nil
				}
				for _, e := range events {
					state := "open"
					if e.Resolved {
						state = "resolved"
					}
					codes := make([]string, len(e.Causes))
					for i, c := range e.Causes {
						codes[i] = c.Code
					}
					fmt.Fprintf(w, "%s  %6.1f lb vs trend %6.2f (%+.1f)  %-8s  %s\n",
						types.FormatDate(e.Date), e.RawWeight, e.TrendWeight, e.Deviation, state, strings.Join(codes, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default: 28 days before --as-of)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default: --as-of)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "deviation in lb (default: engine.spike_threshold)")
	return cmd
}
