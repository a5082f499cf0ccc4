package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/store"
	"github.com/WestGround/qecc-iontrap-chip/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Database    string
	MetricsFile string

	// IDGenerator allows overriding the sweep/run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator sweep.RunIDGenerator
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep <plan>",
		Short: "Run an experiment plan",
		Long: `Run every combination of policy, code, sector size and iteration named
by a YAML or CUE plan, evaluating each schedule at every error rate.

Results print as a table. With --db they are also stored in SQLite; with
--metrics-file run counters are written in the Prometheus text format.

Example:
  qecc sweep plans/qft.yaml
  qecc sweep --db results.db --metrics-file sweep.prom plans/qft.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for results")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	return cmd
}

func runSweep(opts *SweepOptions, planPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	plan, err := sweep.LoadPlan(planPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodePlan, fmt.Sprintf("failed to load plan %s", planPath), err)
	}
	c, err := readCircuit(f, cmd, plan.CircuitPath(), plan.Dialect)
	if err != nil {
		return err
	}

	ids := opts.IDGenerator
	if ids == nil {
		ids = sweep.UUIDv7Generator{}
	}
	metrics := sweep.NewMetrics()
	runner := sweep.NewRunner(
		sweep.WithIDGenerator(ids),
		sweep.WithMetrics(metrics),
		sweep.WithLogger(logger),
	)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, plan, c)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeSchedule, fmt.Sprintf("sweep %s failed", plan.Name), err)
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFile, "failed to write metrics", err)
		}
		f.VerboseLog("Wrote metrics to %s", opts.MetricsFile)
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		if err := st.WriteReport(ctx, report); err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to store report", err)
		}
		logger.Info("report stored", "sweep", report.ID, "db", opts.Database, "rows", len(report.Rows))
	}

	text := fmt.Sprintf("sweep %s (%s)\n%s\n", report.Name, report.ID, renderRows(lipgloss.NewRenderer(cmd.OutOrStdout()), report.Rows))
	return f.Result(text, report)
}

// renderRows draws sweep rows as a bordered table.
func renderRows(r *lipgloss.Renderer, rows []sweep.Row) string {
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("iter", "policy", "code", "sector", "rate", "success", "elapsed", "swaps", "truncated")
	for _, row := range rows {
		t.Row(
			strconv.Itoa(row.Iteration),
			row.Policy,
			row.Code,
			strconv.Itoa(row.SectorSize),
			strconv.FormatFloat(row.Rate, 'g', -1, 64),
			strconv.FormatFloat(row.Success, 'g', 6, 64),
			strconv.FormatInt(row.Elapsed, 10),
			strconv.Itoa(row.Swaps),
			strconv.FormatBool(row.Truncated),
		)
	}
	return t.Render()
}
