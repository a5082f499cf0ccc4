package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/reliability"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EstimateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <circuit>",
		Short: "Print maintenance overhead between correction markers",
		Long: `Schedule a circuit and report how many swaps, shuttles and operations
each qubit performs between consecutive correction markers.

Example:
  qecc stats --policy overlapped circuits/adder.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)
	opts.bindRate(cmd)

	return cmd
}

// StatsView is the JSON payload of the stats command.
type StatsView struct {
	Policy   schedule.Policy      `json:"policy"`
	Code     string               `json:"code"`
	Rate     float64              `json:"rate"`
	Elapsed  int64                `json:"elapsed"`
	Swaps    schedule.SwapStats   `json:"swap_reasons"`
	Overhead reliability.Overhead `json:"overhead"`
}

func renderStats(v StatsView) string {
	var sb strings.Builder
	o := v.Overhead
	fmt.Fprintf(&sb, "policy %s  code %s  rate %g  elapsed %d\n", v.Policy, v.Code, v.Rate, v.Elapsed)
	fmt.Fprintf(&sb, "success       %.6g\n", o.Success)
	fmt.Fprintf(&sb, "corrections   %d\n", o.Corrections)
	fmt.Fprintf(&sb, "shuttles      %d\n", o.Shuttles)
	fmt.Fprintf(&sb, "swaps         %d (move %d, stop %d, rotation %d, close %d, far %d)\n",
		o.Swaps, v.Swaps.Move, v.Swaps.Stop, v.Swaps.Rotation, v.Swaps.Close, v.Swaps.Far)
	sb.WriteString("between corrections:\n")
	fmt.Fprintf(&sb, "  ops         mean %.3f  std %.3f\n", o.Ops.Mean, o.Ops.Std)
	fmt.Fprintf(&sb, "  swaps       mean %.3f  std %.3f\n", o.SwapsBetween.Mean, o.SwapsBetween.Std)
	fmt.Fprintf(&sb, "  shuttles    mean %.3f  std %.3f\n", o.ShuttlesBetween.Mean, o.ShuttlesBetween.Std)
	return sb.String()
}

func runStats(opts *EstimateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	prep, res, model, err := opts.evaluate(f, cmd, path)
	if err != nil {
		return err
	}
	overhead, err := model.Overhead(res.Schedule, opts.Rate)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeEstimate, "overhead evaluation failed", err)
	}

	view := StatsView{
		Policy:   prep.policy,
		Code:     prep.code.String(),
		Rate:     opts.Rate,
		Elapsed:  res.Elapsed,
		Swaps:    res.Swaps,
		Overhead: overhead,
	}
	return f.Result(renderStats(view), view)
}
