package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/reliability"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// EstimateOptions holds flags for the estimate and stats commands.
type EstimateOptions struct {
	*RootOptions
	runFlags
	Rate float64
}

func (o *EstimateOptions) bindRate(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.Rate, "rate", 1e-3, "baseline two-qubit error rate in [0, 1]")
}

// NewEstimateCommand creates the estimate command.
func NewEstimateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EstimateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "estimate <circuit>",
		Short: "Estimate the success probability of a scheduled circuit",
		Long: `Schedule a circuit and estimate the probability that it completes
without an uncorrectable error at the given baseline error rate.

The per-repetition probability is raised to the circuit's repetition
multiplier; elapsed time is scaled by it. The baseline policy is always
evaluated without error correction.

Example:
  qecc estimate --code c17 --rate 1e-4 circuits/qft.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)
	opts.bindRate(cmd)

	return cmd
}

// EstimateView is the JSON payload of the estimate command.
type EstimateView struct {
	Policy       schedule.Policy `json:"policy"`
	Code         string          `json:"code"`
	Rate         float64         `json:"rate"`
	Repeat       int             `json:"repeat"`
	Success      float64         `json:"success"`
	Extrapolated float64         `json:"extrapolated"`
	Elapsed      int64           `json:"elapsed"`
	TotalElapsed int64           `json:"total_elapsed"`
	Truncated    bool            `json:"truncated"`
}

func renderEstimate(v EstimateView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "policy        %s\n", v.Policy)
	fmt.Fprintf(&sb, "code          %s\n", v.Code)
	fmt.Fprintf(&sb, "rate          %g\n", v.Rate)
	fmt.Fprintf(&sb, "success       %.6g\n", v.Success)
	fmt.Fprintf(&sb, "success^%-5d %.6g\n", v.Repeat, v.Extrapolated)
	fmt.Fprintf(&sb, "elapsed       %d (total %d)\n", v.Elapsed, v.TotalElapsed)
	if v.Truncated {
		sb.WriteString("truncated     true\n")
	}
	return sb.String()
}

// evaluate schedules the circuit and builds the model for its code.
func (o *EstimateOptions) evaluate(f *OutputFormatter, cmd *cobra.Command, path string) (*prepared, *schedule.Result, *reliability.Model, error) {
	prep, err := o.prepare(f, cmd, path, newLogger(o.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := reliability.New(prep.code)
	if err != nil {
		return nil, nil, nil, f.Fail(ExitCommandError, ErrCodeEstimate, "invalid code", err)
	}
	res, err := prep.execute(f)
	if err != nil {
		return nil, nil, nil, err
	}
	return prep, res, model, nil
}

func runEstimate(opts *EstimateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	prep, res, model, err := opts.evaluate(f, cmd, path)
	if err != nil {
		return err
	}
	p, err := model.SuccessProbability(res.Schedule, opts.Rate)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeEstimate, "reliability estimate failed", err)
	}

	repeat := prep.circuit.Repeat()
	view := EstimateView{
		Policy:       prep.policy,
		Code:         prep.code.String(),
		Rate:         opts.Rate,
		Repeat:       repeat,
		Success:      p,
		Extrapolated: reliability.Extrapolate(p, repeat),
		Elapsed:      res.Elapsed,
		TotalElapsed: res.Elapsed * int64(repeat),
		Truncated:    res.Truncated,
	}
	return f.Result(renderEstimate(view), view)
}
