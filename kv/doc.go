// Package kv defines the byte-oriented transactional key-value contract the
// forum ledger runs on.
//
// A [Store] hands out two kinds of handles:
//
//   - [Reader] inside [Store.View], a consistent read-only snapshot
//   - [Txn] inside [Store.Update], where every Set commits together or not at all
//
// If the function passed to Update returns an error, or the commit itself
// fails, no write from that invocation becomes visible.
//
// # Backends
//
//   - kv/memory - ordered in-process map, for tests and ephemeral runs
//   - kv/pebble - local LSM store
//   - kv/sqlite - single-table SQLite store
//   - kv/dynamo - DynamoDB with optimistic revision checks
//
// # Errors
//
//   - [ErrNotFound] - no value stored at the key
//   - [ErrConflict] - a concurrent writer invalidated the transaction's reads
//   - [ErrClosed] - the store was closed
//   - [ErrEmptyKey] - keys must be non-empty
package kv
