package kv

import "context"

// Reader reads from a consistent view of the store.
type Reader interface {
	// Get returns a copy of the value at key, or ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Has reports whether a value is stored at key.
	Has(key []byte) (bool, error)
}

// Txn is a read-write handle scoped to a single Update call.
// Reads observe the transaction's own earlier writes.
type Txn interface {
	Reader

	// Set writes or overwrites the value at key.
	Set(key, value []byte) error
}

// Store is a transactional byte key-value store.
type Store interface {
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(Reader) error) error

	// Update runs fn in a transaction and commits its writes atomically.
	// Nothing is written if fn returns an error.
	Update(ctx context.Context, fn func(Txn) error) error

	// Close releases the store's resources.
	Close() error
}

// CheckKey rejects keys a backend cannot store.
func CheckKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return nil
}

// Clone returns a copy of b that does not alias backend memory.
func Clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
