// Package keys lays out ledger entries in the key-value store.
//
// Every key is a namespace followed by fixed-width big-endian ids, so keys in
// one namespace sort in numeric order:
//
//	thread_count                           global thread counter
//	thread_elem_count:<thread>             element counter for one thread
//	threads:<thread>                       thread record
//	thread_elem:<thread><element>          element record
package keys

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Namespaces.
const (
	ThreadCount        = "thread_count"
	ThreadElementCount = "thread_elem_count:"
	Threads            = "threads:"
	ThreadElements     = "thread_elem:"
)

// ErrMalformed is returned by Parse for keys outside the layout.
var ErrMalformed = errors.New("keys: malformed key")

// Kind identifies which entry a key addresses.
type Kind int

const (
	KindUnknown Kind = iota
	KindThreadCounter
	KindElementCounter
	KindThread
	KindThreadElement
)

func (k Kind) String() string {
	switch k {
	case KindThreadCounter:
		return "thread_counter"
	case KindElementCounter:
		return "element_counter"
	case KindThread:
		return "thread"
	case KindThreadElement:
		return "thread_element"
	default:
		return "unknown"
	}
}

// ThreadCounterKey is the key of the global thread counter.
func ThreadCounterKey() []byte {
	return []byte(ThreadCount)
}

// ElementCounterKey is the key of the element counter scoped to threadID.
func ElementCounterKey(threadID uint64) []byte {
	return appendID([]byte(ThreadElementCount), threadID)
}

// ThreadKey is the key of the thread record with the given id.
func ThreadKey(id uint64) []byte {
	return appendID([]byte(Threads), id)
}

// ThreadElementKey is the key of element elementID under threadID.
func ThreadElementKey(threadID, elementID uint64) []byte {
	return appendID(appendID([]byte(ThreadElements), threadID), elementID)
}

func appendID(b []byte, id uint64) []byte {
	return binary.BigEndian.AppendUint64(b, id)
}

// Parsed is a decoded ledger key.
type Parsed struct {
	Kind      Kind
	ThreadID  uint64
	ElementID uint64
}

func (p Parsed) String() string {
	switch p.Kind {
	case KindThreadCounter:
		return ThreadCount
	case KindElementCounter:
		return fmt.Sprintf("%s%d", ThreadElementCount, p.ThreadID)
	case KindThread:
		return fmt.Sprintf("%s%d", Threads, p.ThreadID)
	case KindThreadElement:
		return fmt.Sprintf("%s%d:%d", ThreadElements, p.ThreadID, p.ElementID)
	default:
		return "unknown"
	}
}

// Parse decodes a key produced by this package.
// Namespaces are checked longest first because "thread_elem_count:" and
// "thread_elem:" share a prefix.
func Parse(key []byte) (Parsed, error) {
	switch {
	case bytes.Equal(key, []byte(ThreadCount)):
		return Parsed{Kind: KindThreadCounter}, nil

	case bytes.HasPrefix(key, []byte(ThreadElementCount)):
		rest := key[len(ThreadElementCount):]
		if len(rest) != 8 {
			return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, key)
		}
		return Parsed{Kind: KindElementCounter, ThreadID: binary.BigEndian.Uint64(rest)}, nil

	case bytes.HasPrefix(key, []byte(ThreadElements)):
		rest := key[len(ThreadElements):]
		if len(rest) != 16 {
			return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, key)
		}
		return Parsed{
			Kind:      KindThreadElement,
			ThreadID:  binary.BigEndian.Uint64(rest[:8]),
			ElementID: binary.BigEndian.Uint64(rest[8:]),
		}, nil

	case bytes.HasPrefix(key, []byte(Threads)):
		rest := key[len(Threads):]
		if len(rest) != 8 {
			return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, key)
		}
		return Parsed{Kind: KindThread, ThreadID: binary.BigEndian.Uint64(rest)}, nil
	}

	return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, key)
}
