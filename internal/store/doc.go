// Package store provides SQLite-backed durable storage for inference runs.
//
// The store keeps three tables:
//   - factors: content-addressed factor bodies (canonical JSON)
//   - runs: one row per query, pointing at its answer factor
//   - calls: the join/eliminate trace of each run
//
// # Invariants
//
// Content Identity
//   - factors.id is factor.ContentID of the stored body
//   - Writing the same factor twice is a no-op (ON CONFLICT DO NOTHING)
//
// Logical Ordering
//   - Call order uses seq INTEGER (logical clock), never timestamps
//   - Reads always ORDER BY seq ASC; runs are listed by id, which is a
//     time-sortable UUIDv7
//
// Atomic Runs
//   - WriteRun stores the answer, the run row and every call in a single
//     transaction
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
