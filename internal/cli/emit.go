package cli

import (
	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Dialect string
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit <circuit>",
		Short: "Re-emit a circuit in canonical order",
		Long: `Parse a circuit and write it back in the textual format, in an order
that respects every qubit's tape and lists each two-qubit gate once.

Example:
  qecc emit --dialect generic circuits/bell.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "native", "circuit dialect (native|generic)")

	return cmd
}

// EmitView is the JSON payload of the emit command.
type EmitView struct {
	Dialect string `json:"dialect"`
	Qubits  int    `json:"qubits"`
	Circuit string `json:"circuit"`
}

func runEmit(opts *EmitOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c, err := readCircuit(f, cmd, path, opts.Dialect)
	if err != nil {
		return err
	}
	text, err := circuit.EmitString(c)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to emit circuit", err)
	}
	return f.Result(text, EmitView{Dialect: c.Dialect().String(), Qubits: c.NumQubits(), Circuit: text})
}
