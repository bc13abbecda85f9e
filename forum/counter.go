package forum

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/jacentio/forumledger/internal/keys"
	"github.com/jacentio/forumledger/kv"
)

// counter is a monotonic id sequence persisted at one key.
// The stored value is the last id handed out; an absent key means 0.
type counter struct {
	key   []byte
	scope string
}

// threadCounter is the global sequence of thread ids.
func threadCounter() counter {
	return counter{key: keys.ThreadCounterKey(), scope: "thread"}
}

// elementCounter is the sequence of element ids under threadID. It exists
// independently of whether the thread does.
func elementCounter(threadID uint64) counter {
	return counter{key: keys.ElementCounterKey(threadID), scope: "element"}
}

// load returns the current value.
func (c counter) load(r kv.Reader) (uint64, error) {
	raw, err := r.Get(c.key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s counter: %w", c.scope, err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: %s counter is %d bytes", ErrCorruptRecord, c.scope, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// store persists v as the current value.
func (c counter) store(tx kv.Txn, v uint64) error {
	if err := tx.Set(c.key, binary.BigEndian.AppendUint64(nil, v)); err != nil {
		return fmt.Errorf("save %s counter: %w", c.scope, err)
	}
	return nil
}

// advance allocates the next id. At math.MaxUint64 it returns
// ErrCounterOverflow without writing.
func (c counter) advance(tx kv.Txn) (uint64, error) {
	current, err := c.load(tx)
	if err != nil {
		return 0, err
	}
	if current == math.MaxUint64 {
		return 0, fmt.Errorf("%w: %s counter at %d", ErrCounterOverflow, c.scope, current)
	}
	next := current + 1
	if err := c.store(tx, next); err != nil {
		return 0, err
	}
	return next, nil
}
