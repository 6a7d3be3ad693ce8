// Package store provides the entity store for refgraph.
//
// The store is the only component that mutates records. It exposes one
// Collection per entity kind plus an append-only mutation Journal, with two
// interchangeable backends:
//   - Memory: maps guarded by sync.RWMutex, insertion order tracked explicitly
//   - SQLite: JSON documents in a single records table, one transaction per op
//
// # Guarantees
//
//   - Every Collection operation is atomic and safe for concurrent use
//   - Records handed out are copies; mutating them never changes stored state
//   - FindMany returns records in insertion order and never returns nil
//   - Absence is reported with ok=false, never with an error
//
// Multi-record consistency (cascades, subscription bookkeeping) is NOT a store
// concern; the engine serializes those on top of these primitives.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite allows one writer at a time
package store
