// Package store provides SQLite-backed persistence for sweep reports.
//
// The store holds two tables:
//   - sweeps: one record per report (name, circuit, seed, creation time)
//   - results: the report's rows, keyed by (sweep_id, seq)
//
// Writes are idempotent: rewriting a report with the same ID leaves the
// store unchanged. Reads return rows in seq order, which is the report's
// own row order, so a report read back compares equal to the one written.
//
// Curve aggregates a sweep's rows over iterations, the mean success and
// elapsed time per policy, code, sector size and rate.
//
// Labels (sweep name, circuit path, policy and code names) are normalized
// to NFC before they are written.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema version lives in user_version. Open applies each pending
// migration in its own transaction and refuses databases newer than it
// knows.
package store
