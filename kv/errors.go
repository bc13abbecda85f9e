package kv

import "errors"

var (
	// ErrNotFound is returned by Get when no value is stored at the key.
	ErrNotFound = errors.New("kv: key not found")

	// ErrConflict is returned when a concurrent commit invalidated a transaction's reads.
	ErrConflict = errors.New("kv: transaction conflict")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kv: store is closed")

	// ErrReadOnly is returned when a write reaches a handle obtained from View.
	ErrReadOnly = errors.New("kv: read-only transaction")

	// ErrEmptyKey is returned when a key has zero length.
	ErrEmptyKey = errors.New("kv: empty key")
)
