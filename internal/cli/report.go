package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	SweepID  string
	Curve    bool
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List stored sweeps or print one sweep's rows",
		Long: `Read sweep results stored by "qecc sweep --db".

Without --sweep, lists every stored sweep, oldest first. With --sweep, prints
that sweep's rows in their original order. With --sweep and --curve, prints
the success curve: rows averaged over iterations.

Example:
  qecc report --db results.db
  qecc report --db results.db --sweep 0190f6c2-...
  qecc report --db results.db --sweep 0190f6c2-... --curve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SweepID, "sweep", "", "sweep ID to print")
	cmd.Flags().BoolVar(&opts.Curve, "curve", false, "average the sweep's rows over iterations")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	r := lipgloss.NewRenderer(cmd.OutOrStdout())
	if opts.SweepID == "" {
		sweeps, err := st.ListSweeps(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to list sweeps", err)
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return r.NewStyle().Padding(0, 1) }).
			Headers("id", "name", "circuit", "seed", "created", "rows")
		for _, s := range sweeps {
			t.Row(s.ID, s.Name, s.Circuit, strconv.FormatUint(s.Seed, 10),
				s.CreatedAt.Format("2006-01-02 15:04:05"), strconv.Itoa(s.Rows))
		}
		return f.Result(fmt.Sprintf("%d sweep(s)\n%s\n", len(sweeps), t.Render()), sweeps)
	}

	if opts.Curve {
		points, err := st.Curve(ctx, opts.SweepID)
		if errors.Is(err, store.ErrSweepNotFound) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("sweep not found: %s", opts.SweepID), err)
		}
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to read curve", err)
		}
		return f.Result(renderCurve(r, points)+"\n", points)
	}

	report, err := st.ReadReport(ctx, opts.SweepID)
	if errors.Is(err, store.ErrSweepNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("sweep not found: %s", opts.SweepID), err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read sweep", err)
	}
	text := fmt.Sprintf("sweep %s (%s)\n%s\n", report.Name, report.ID, renderRows(r, report.Rows))
	return f.Result(text, report)
}

func renderCurve(r *lipgloss.Renderer, points []store.CurvePoint) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return r.NewStyle().Padding(0, 1) }).
		Headers("policy", "code", "sector", "rate", "runs", "success", "elapsed", "truncated")
	for _, p := range points {
		t.Row(
			p.Policy,
			p.Code,
			strconv.Itoa(p.SectorSize),
			strconv.FormatFloat(p.Rate, 'g', -1, 64),
			strconv.Itoa(p.Runs),
			strconv.FormatFloat(p.Success, 'g', 6, 64),
			strconv.FormatFloat(p.Elapsed, 'f', 1, 64),
			strconv.Itoa(p.Truncated),
		)
	}
	return t.Render()
}
