// Package forum implements a minimal discussion-forum ledger over a
// transactional key-value store.
//
// Callers create threads and append elements (replies) beneath a thread.
// Thread ids come from one global counter; element ids come from a counter
// scoped to the thread id. Both start at 1, increase by exactly 1 per create,
// and never repeat. A counter already at the maximum uint64 value rejects the
// create with [ErrCounterOverflow] and nothing is written.
//
// # Atomicity
//
// Each create runs inside one kv.Store Update: the counter read, the counter
// write and the record write commit together or not at all.
//
// # Caller Identity
//
// The authenticated [Principal] is passed explicitly to every state-changing
// call and stored verbatim as the record's author. Transports reject requests
// that carry no principal before they reach the ledger.
//
// # Known Gaps
//
// Element creation does not check that the thread exists, so replies can be
// attached to thread ids that were never created. CreateThread does not return
// the assigned id; without concurrent creates, [Ledger.ThreadCount] read
// afterwards is the only way to learn it. Both are kept as-is pending a product decision.
//
// # Errors
//
//   - [ErrCounterOverflow] - counter at maximum, create rejected
//   - [ErrNotFound] - no record at the requested id
//   - [ErrInvalidRequest] - envelope names zero or several operations
//   - [ErrCorruptRecord] - stored bytes cannot be decoded
//   - [ErrUnauthenticated] - transport received no caller identity
package forum
