// Package schedule places a circuit onto the zoned ion-trap chain.
//
// Every policy runs in discrete rounds over the same machinery: a sector
// geometry from package layout, a dependency frontier over per-qubit
// cursors, swap selection at horizontal block boundaries, and a shuttle
// that advances the sector partition once per round.
//
// Policies:
//   - Balanced: lock-step execution with a correction sweep every round.
//     Clifford-type operations run in horizontal sectors, rotations in
//     vertical sectors.
//   - Baseline: no correction sectors; every single-qubit operation runs
//     immediately and two-qubit operations wait for sector alignment.
//   - Overlapped: vertical qubits run at most one rotation and are then
//     corrected while horizontal qubits execute inside the same time budget.
//
// A run is single-threaded. The only randomness is the repeat-until-success
// expansion of rotations, drawn from an explicit *rand.Rand (see WithRand and
// WithSeed). Independent runs share no state and may run concurrently.
package schedule
