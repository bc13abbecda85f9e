// Package memory provides an in-process kv.Store for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/jacentio/forumledger/kv"
)

var _ kv.Store = (*Store)(nil)

// Store keeps all values in a map guarded by a single lock.
// Update holds the write lock for the whole transaction, so transactions are serialized.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// View runs fn against the current contents under a read lock.
func (s *Store) View(ctx context.Context, fn func(kv.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kv.ErrClosed
	}
	return fn(&txn{base: s.data})
}

// Update runs fn against a write buffer and applies the buffer only if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(kv.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}

	t := &txn{base: s.data, writes: make(map[string][]byte)}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, v := range t.writes {
		s.data[k] = v
	}
	return nil
}

// Close drops the contents. Later calls return kv.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type txn struct {
	base   map[string][]byte
	writes map[string][]byte // nil for read-only views
}

func (t *txn) lookup(key []byte) ([]byte, bool) {
	if t.writes != nil {
		if v, ok := t.writes[string(key)]; ok {
			return v, true
		}
	}
	v, ok := t.base[string(key)]
	return v, ok
}

func (t *txn) Get(key []byte) ([]byte, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, err
	}
	v, ok := t.lookup(key)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return kv.Clone(v), nil
}

func (t *txn) Has(key []byte) (bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return false, err
	}
	_, ok := t.lookup(key)
	return ok, nil
}

func (t *txn) Set(key, value []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}
	if t.writes == nil {
		return kv.ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[string(key)] = kv.Clone(value)
	return nil
}
