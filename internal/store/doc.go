// Package store provides SQLite-backed storage for the match log.
//
// The log is append-only and holds:
//   - Runs: one row per monitoring session, with the property hash
//   - Matches: one row per match reported by the engine during a run
//
// Engine state (bindings, nodes, monitors) is never persisted.
//
// # Ordering
//
// Matches are read ORDER BY seq ASC, id ASC COLLATE BINARY, so listings
// are identical across re-runs of the same trace.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Match IDs are computed by ir.MatchID over canonical JSON.
package store
