package store

import (
	"context"
	"fmt"
)

// CurvePoint is one point of a success curve: the mean outcome of every
// iteration that ran the same policy, code and sector size, at one rate.
type CurvePoint struct {
	Policy     string  `json:"policy"`
	Code       string  `json:"code"`
	SectorSize int     `json:"sector_size"`
	Rate       float64 `json:"rate"`
	Runs       int     `json:"runs"`
	Success    float64 `json:"success"`
	Elapsed    float64 `json:"elapsed"`
	Truncated  int     `json:"truncated"`
}

// Curve averages a sweep's rows over iterations. Points are ordered by
// policy, code, sector size and rate. Returns ErrSweepNotFound for an
// unknown sweep.
func (s *Store) Curve(ctx context.Context, sweepID string) ([]CurvePoint, error) {
	if _, err := s.ReadSweep(ctx, sweepID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT policy, code, sector_size, rate,
		       COUNT(*), AVG(success), AVG(elapsed), SUM(truncated)
		FROM results
		WHERE sweep_id = ?
		GROUP BY policy, code, sector_size, rate
		ORDER BY policy COLLATE BINARY, code COLLATE BINARY, sector_size, rate
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query curve: %w", err)
	}
	defer rows.Close()

	out := []CurvePoint{}
	for rows.Next() {
		var p CurvePoint
		if err := rows.Scan(&p.Policy, &p.Code, &p.SectorSize, &p.Rate,
			&p.Runs, &p.Success, &p.Elapsed, &p.Truncated); err != nil {
			return nil, fmt.Errorf("scan curve point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curve: %w", err)
	}
	return out, nil
}
