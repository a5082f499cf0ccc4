package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/WestGround/qecc-iontrap-chip/internal/sweep"
)

// SweepInfo summarizes a stored sweep.
type SweepInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Circuit   string    `json:"circuit"`
	Seed      uint64    `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
}

// ListSweeps returns every stored sweep, oldest first.
// Ties order by ID COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store holds no sweeps.
func (s *Store) ListSweeps(ctx context.Context) ([]SweepInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.circuit, s.seed, s.created_at,
		       (SELECT COUNT(*) FROM results r WHERE r.sweep_id = s.id)
		FROM sweeps s
		ORDER BY s.created_at ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}
	defer rows.Close()

	out := []SweepInfo{}
	for rows.Next() {
		info, err := scanSweep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweeps: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSweep(sc scanner) (SweepInfo, error) {
	var (
		info    SweepInfo
		seed    int64
		created string
	)
	if err := sc.Scan(&info.ID, &info.Name, &info.Circuit, &seed, &created, &info.Rows); err != nil {
		return SweepInfo{}, fmt.Errorf("scan sweep: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return SweepInfo{}, fmt.Errorf("sweep %s: parse created_at: %w", info.ID, err)
	}
	info.Seed = uint64(seed)
	info.CreatedAt = t
	return info, nil
}

// ReadSweep returns the summary of one sweep, or ErrSweepNotFound.
func (s *Store) ReadSweep(ctx context.Context, id string) (SweepInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.circuit, s.seed, s.created_at,
		       (SELECT COUNT(*) FROM results r WHERE r.sweep_id = s.id)
		FROM sweeps s
		WHERE s.id = ?
	`, id)
	info, err := scanSweep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SweepInfo{}, fmt.Errorf("%w: %s", ErrSweepNotFound, id)
	}
	return info, err
}

// ReadRows returns the rows of one sweep in the order they were written.
//
// Returns an empty slice (not nil) if the sweep has no rows or does not
// exist.
func (s *Store) ReadRows(ctx context.Context, sweepID string) ([]sweep.Row, error) {
	return s.queryRows(ctx, "sweep_id = ?", sweepID)
}

// RunRows returns the rows of one scheduling run, one per error rate, in
// the order they were written.
func (s *Store) RunRows(ctx context.Context, runID string) ([]sweep.Row, error) {
	return s.queryRows(ctx, "run_id = ?", runID)
}

func (s *Store) queryRows(ctx context.Context, where string, arg any) ([]sweep.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, iteration, policy, code, sector_size, rate, success, elapsed, truncated, rounds, swaps
		FROM results
		WHERE `+where+`
		ORDER BY sweep_id, seq ASC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []sweep.Row{}
	for rows.Next() {
		var r sweep.Row
		if err := rows.Scan(&r.RunID, &r.Iteration, &r.Policy, &r.Code, &r.SectorSize,
			&r.Rate, &r.Success, &r.Elapsed, &r.Truncated, &r.Rounds, &r.Swaps); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// ReadReport reassembles a stored report, or returns ErrSweepNotFound.
func (s *Store) ReadReport(ctx context.Context, id string) (*sweep.Report, error) {
	info, err := s.ReadSweep(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.ReadRows(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sweep.Report{
		ID:        info.ID,
		Name:      info.Name,
		Circuit:   info.Circuit,
		Seed:      info.Seed,
		CreatedAt: info.CreatedAt,
		Rows:      rows,
	}, nil
}
