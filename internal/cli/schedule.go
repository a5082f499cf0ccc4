package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	runFlags
	Compact bool
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule <circuit>",
		Short: "Schedule a circuit and print the per-qubit tapes",
		Long: `Schedule a circuit and print every qubit's timed tape, including the
swaps, shuttles and correction markers the scheduler inserted.

Use "-" to read the circuit from stdin.

Example:
  qecc schedule --policy overlapped --sector-size 3 circuits/adder.txt
  qecc schedule --compact --seed 7 circuits/qft.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "print one symbol per entry")

	return cmd
}

// EntryView is one scheduled entry in JSON output.
type EntryView struct {
	Kind    circuit.Kind `json:"kind"`
	Start   int64        `json:"start"`
	Partner *int         `json:"partner,omitempty"`
}

// ScheduleView is the JSON payload of the schedule command.
type ScheduleView struct {
	Policy    schedule.Policy    `json:"policy"`
	Elapsed   int64              `json:"elapsed"`
	Rounds    int                `json:"rounds"`
	Truncated bool               `json:"truncated"`
	Swaps     schedule.SwapStats `json:"swaps"`
	Tapes     [][]EntryView      `json:"tapes"`
}

func newScheduleView(res *schedule.Result) ScheduleView {
	s := res.Schedule
	tapes := make([][]EntryView, s.NumQubits())
	for q := range tapes {
		tapes[q] = make([]EntryView, 0, s.Len(q))
		for i, e := range s.Tape(q) {
			v := EntryView{Kind: e.Kind, Start: e.Start}
			if ref, ok := s.Partner(q, i); ok {
				v.Partner = &ref.Qubit
			}
			tapes[q] = append(tapes[q], v)
		}
	}
	return ScheduleView{
		Policy:    res.Policy,
		Elapsed:   res.Elapsed,
		Rounds:    res.Rounds,
		Truncated: res.Truncated,
		Swaps:     res.Swaps,
		Tapes:     tapes,
	}
}

func renderSchedule(v ScheduleView, compact bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "policy %s  elapsed %d  rounds %d  swaps %d  truncated %t\n",
		v.Policy, v.Elapsed, v.Rounds, v.Swaps.Total(), v.Truncated)
	for q, tape := range v.Tapes {
		fmt.Fprintf(&sb, "q%-3d", q)
		for _, e := range tape {
			if compact {
				sb.WriteString(e.Kind.Symbol())
				continue
			}
			fmt.Fprintf(&sb, " %s@%d", e.Kind, e.Start)
			if e.Partner != nil {
				fmt.Fprintf(&sb, "(q%d)", *e.Partner)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func runSchedule(opts *ScheduleOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	prep, err := opts.prepare(f, cmd, path, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	res, err := prep.execute(f)
	if err != nil {
		return err
	}
	view := newScheduleView(res)
	return f.Result(renderSchedule(view, opts.Compact), view)
}
