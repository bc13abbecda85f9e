package forum

import "errors"

var (
	// ErrCounterOverflow is returned when a thread or element counter is already
	// at its maximum value. Nothing is written.
	ErrCounterOverflow = errors.New("forum: counter overflow")

	// ErrNotFound is returned when no record is stored for the requested id.
	ErrNotFound = errors.New("forum: record not found")

	// ErrInvalidRequest is returned for envelopes that name zero or several operations,
	// or that cannot be decoded.
	ErrInvalidRequest = errors.New("forum: invalid request")

	// ErrUnauthenticated is returned by transports when the host supplies no
	// caller identity.
	ErrUnauthenticated = errors.New("forum: unauthenticated caller")

	// ErrCorruptRecord is returned when a stored value cannot be decoded.
	ErrCorruptRecord = errors.New("forum: corrupt stored value")
)
