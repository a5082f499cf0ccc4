package store

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/WestGround/qecc-iontrap-chip/internal/sweep"
)

// WriteReport stores a report and all its rows in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a report with an
// ID already present is silently ignored.
//
// The seed is stored bit-for-bit as a signed integer.
func (s *Store) WriteReport(ctx context.Context, r *sweep.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write report: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweeps (id, name, circuit, seed, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		norm.NFC.String(r.Name),
		norm.NFC.String(r.Circuit),
		int64(r.Seed),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write report %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(sweep_id, seq, run_id, iteration, policy, code, sector_size, rate, success, elapsed, truncated, rounds, swaps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write report %s: prepare: %w", r.ID, err)
	}
	defer stmt.Close()

	for i, row := range r.Rows {
		_, err := stmt.ExecContext(ctx,
			r.ID,
			i,
			row.RunID,
			row.Iteration,
			norm.NFC.String(row.Policy),
			norm.NFC.String(row.Code),
			row.SectorSize,
			row.Rate,
			row.Success,
			row.Elapsed,
			row.Truncated,
			row.Rounds,
			row.Swaps,
		)
		if err != nil {
			return fmt.Errorf("write report %s: row %d: %w", r.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write report %s: commit: %w", r.ID, err)
	}
	return nil
}
