// Package store provides a SQLite-backed exhaustion ledger.
//
// The ledger is an append-only table of observations recorded by
// repetition matchers. Each slot is addressed by (scope, path, kind) and
// its entries carry a 1-based seq that increases by one per append.
//
// # Guarantees
//
//   - Entries are never rewritten: UPDATE and DELETE are rejected by triggers
//   - Append assigns seq and reads the slot back in one transaction, so two
//     appends to one slot never observe the same length
//   - Reads order by seq, and replays order slots by path then kind
//     (COLLATE BINARY), so output is identical across runs
//   - Values are stored as canonical JSON with a domain-separated hash
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
