package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/reliability"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// runFlags are the scheduling flags shared by every command that schedules
// a single circuit.
type runFlags struct {
	Dialect        string
	Policy         string
	Code           string
	SectorSize     int
	EmptySectors   int
	CorrectionTime int64
	Seed           uint64
	FallbackDepth  int
	TimeCeiling    int64
}

func (rf *runFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&rf.Dialect, "dialect", "native", "circuit dialect (native|generic)")
	fl.StringVar(&rf.Policy, "policy", "balanced", "scheduling policy (balanced|baseline|overlapped)")
	fl.StringVar(&rf.Code, "code", reliability.Code7.Name, "error-correcting code preset (c7|c17|c31)")
	fl.IntVar(&rf.SectorSize, "sector-size", 2, "horizontal slots per sector")
	fl.IntVar(&rf.EmptySectors, "empty-sectors", schedule.DefaultEmptySectors, "buffer sectors past the end of the chain")
	fl.Int64Var(&rf.CorrectionTime, "correction-time", 0, "correction round duration (0 uses the code's)")
	fl.Uint64Var(&rf.Seed, "seed", 0, "seed for repeat-until-success coin flips (random when unset)")
	fl.IntVar(&rf.FallbackDepth, "fallback-depth", 0, "repeat bound for rotations without one (0 rejects them)")
	fl.Int64Var(&rf.TimeCeiling, "time-ceiling", schedule.DefaultTimeCeiling, "stop and mark the run truncated past this time")
}

// prepared is a parsed circuit plus everything needed to schedule it.
type prepared struct {
	circuit *circuit.Circuit
	policy  schedule.Policy
	code    reliability.Code
	params  schedule.Params
	opts    []schedule.Option
}

// loadCircuit parses the circuit at path; "-" reads r.
func loadCircuit(path string, dialect circuit.Dialect, r io.Reader) (*circuit.Circuit, error) {
	if path == "-" {
		return circuit.Parse(r, dialect)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return circuit.Parse(file, dialect)
}

// readCircuit loads the circuit and reports failures through f.
func readCircuit(f *OutputFormatter, cmd *cobra.Command, path, dialectName string) (*circuit.Circuit, error) {
	dialect, err := circuit.ParseDialect(dialectName)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeFlags, "invalid --dialect", err)
	}
	c, err := loadCircuit(path, dialect, cmd.InOrStdin())
	switch {
	case circuit.IsParseError(err):
		return nil, f.Fail(ExitCommandError, ErrCodeParse, fmt.Sprintf("failed to parse %s", path), err)
	case errors.Is(err, os.ErrNotExist):
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("circuit not found: %s", path), err)
	case err != nil:
		return nil, f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to read %s", path), err)
	}
	f.VerboseLog("Loaded %s: %d qubits, %d instances, repeat %d", path, c.NumQubits(), c.NumInstances(), c.Repeat())
	return c, nil
}

func (rf *runFlags) prepare(f *OutputFormatter, cmd *cobra.Command, path string, logger *slog.Logger) (*prepared, error) {
	policy, err := schedule.ParsePolicy(rf.Policy)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeFlags, "invalid --policy", err)
	}
	code := reliability.Uncorrected
	if policy.Corrected() {
		var ok bool
		if code, ok = reliability.LookupCode(rf.Code); !ok {
			return nil, f.Fail(ExitCommandError, ErrCodeFlags, fmt.Sprintf("unknown --code %q", rf.Code), nil)
		}
	}
	if rf.CorrectionTime > 0 {
		code.CorrectionTime = rf.CorrectionTime
	}

	c, err := readCircuit(f, cmd, path, rf.Dialect)
	if err != nil {
		return nil, err
	}

	opts := []schedule.Option{
		schedule.WithLogger(logger),
		schedule.WithTimeCeiling(rf.TimeCeiling),
		schedule.WithFallbackDepth(rf.FallbackDepth),
	}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, schedule.WithSeed(rf.Seed))
	}
	return &prepared{
		circuit: c,
		policy:  policy,
		code:    code,
		params: schedule.Params{
			SectorSize:     rf.SectorSize,
			EmptySectors:   rf.EmptySectors,
			CorrectionTime: code.CorrectionTime,
		},
		opts: opts,
	}, nil
}

// execute schedules the prepared circuit, with opts appended.
func (p *prepared) execute(f *OutputFormatter, opts ...schedule.Option) (*schedule.Result, error) {
	res, err := schedule.Run(p.policy, p.circuit, p.params, append(p.opts, opts...)...)
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeSchedule, fmt.Sprintf("%s scheduling failed", p.policy), err)
	}
	f.VerboseLog("Scheduled with %s: elapsed %d over %d rounds, %d swaps", p.policy, res.Elapsed, res.Rounds, res.Swaps.Total())
	return res, nil
}
