// Package store provides the SQLite-backed execution journal.
//
// Every search the executor runs can be appended as an Execution record:
// the target index, the canonical compiled document and its hash, the
// scroll settings, and the outcome (total hits, took, status, error).
//
// # Ordering
//
// Records carry a seq INTEGER assigned at insert time. All reads order by
// seq ASC, id ASC COLLATE BINARY, never by created_at, so listings are
// stable across clock skew.
//
// # Identity
//
// Record IDs are UUIDv7. Documents are stored as canonical JSON and keyed
// by ir.DocumentHash, so the same query written twice shares one hash.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
