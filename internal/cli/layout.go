package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/layout"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// LayoutOptions holds flags for the layout command.
type LayoutOptions struct {
	*RootOptions
	runFlags
	MaxRounds int
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LayoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "layout <circuit>",
		Short: "Render the shuttle trace round by round",
		Long: `Schedule a circuit and render the chain at the end of every round: the
logical qubit in each physical slot, sector boundaries, the shuttle offset
and direction. Slots in correction (vertical) sectors are bracketed.

Example:
  qecc layout --max-rounds 20 circuits/qft.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", 0, "render at most this many rounds (0 renders all)")

	return cmd
}

// RoundView is one traced round in JSON output.
type RoundView struct {
	Round  int   `json:"round"`
	Time   int64 `json:"time"`
	Offset int   `json:"offset"`
	Right  bool  `json:"right"`
	// Layout[p] is the logical qubit at physical slot p.
	Layout []int `json:"layout"`
	// Vertical lists the physical slots inside correction sectors.
	Vertical []int `json:"vertical,omitempty"`
}

// LayoutView is the JSON payload of the layout command.
type LayoutView struct {
	Policy     schedule.Policy `json:"policy"`
	SectorSize int             `json:"sector_size"`
	Rounds     []RoundView     `json:"rounds"`
	Elapsed    int64           `json:"elapsed"`
}

type layoutStyles struct {
	frame    lipgloss.Style
	header   lipgloss.Style
	vertical lipgloss.Style
}

func newLayoutStyles(r *lipgloss.Renderer) layoutStyles {
	return layoutStyles{
		frame: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1),
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff9e64")),
		vertical: r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
	}
}

// renderChain draws one round: slots separated by spaces, a bar at every
// sector boundary, vertical slots bracketed.
func renderChain(g layout.Geometry, rv RoundView, st layoutStyles) string {
	vertical := make(map[int]bool, len(rv.Vertical))
	for _, p := range rv.Vertical {
		vertical[p] = true
	}
	var sb strings.Builder
	prev := -1
	for p, l := range rv.Layout {
		sector := g.SectorOf(p, rv.Offset)
		if p > 0 {
			sb.WriteByte(' ')
			if sector != prev {
				sb.WriteString("| ")
			}
		}
		prev = sector
		cell := strconv.Itoa(l)
		if vertical[p] {
			sb.WriteString(st.vertical.Render("[" + cell + "]"))
			continue
		}
		sb.WriteString(cell)
	}
	return sb.String()
}

func renderLayout(g layout.Geometry, v LayoutView, st layoutStyles) string {
	var sb strings.Builder
	sb.WriteString(st.header.Render(fmt.Sprintf("%s  sector size %d  elapsed %d", v.Policy, v.SectorSize, v.Elapsed)))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "%5s %8s %3s %6s  %s\n", "round", "time", "dir", "offset", "chain")
	for _, rv := range v.Rounds {
		dir := "->"
		if !rv.Right {
			dir = "<-"
		}
		fmt.Fprintf(&sb, "%5d %8d %3s %6d  %s\n", rv.Round, rv.Time, dir, rv.Offset, renderChain(g, rv, st))
	}
	return st.frame.Render(strings.TrimSuffix(sb.String(), "\n")) + "\n"
}

func runLayout(opts *LayoutOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	prep, err := opts.prepare(f, cmd, path, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	shape := layout.ShapePlain
	if prep.policy.Corrected() {
		shape = layout.ShapeCorrected
	}
	g, err := layout.NewGeometry(shape, prep.params.SectorSize)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeFlags, "invalid --sector-size", err)
	}

	var rounds []RoundView
	trace := schedule.WithTrace(func(s schedule.Snapshot) {
		if opts.MaxRounds > 0 && len(rounds) >= opts.MaxRounds {
			return
		}
		rounds = append(rounds, RoundView{
			Round:    s.Round,
			Time:     s.Time,
			Offset:   s.Offset,
			Right:    s.Right,
			Layout:   s.Layout,
			Vertical: g.VerticalSlots(s.Offset, len(s.Layout)),
		})
	})
	res, err := prep.execute(f, trace)
	if err != nil {
		return err
	}

	view := LayoutView{
		Policy:     prep.policy,
		SectorSize: prep.params.SectorSize,
		Rounds:     rounds,
		Elapsed:    res.Elapsed,
	}
	st := newLayoutStyles(lipgloss.NewRenderer(cmd.OutOrStdout()))
	return f.Result(renderLayout(g, view, st), view)
}
