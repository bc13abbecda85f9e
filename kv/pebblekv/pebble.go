// Package pebblekv provides a kv.Store on a local Pebble LSM database.
package pebblekv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/jacentio/forumledger/kv"
)

var _ kv.Store = (*Store)(nil)

// Config holds configuration for a Pebble store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database on an in-memory filesystem.
	InMemory bool

	// Sync fsyncs the WAL on every commit.
	// Default: true
	Sync bool
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, Sync: true}
}

// Store serializes Update calls; each runs against an indexed batch that is
// committed in one write.
type Store struct {
	db     *pebble.DB
	config Config

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the database described by config.
func Open(config Config) (*Store, error) {
	opts := &pebble.Options{}
	dir := config.Path
	if config.InMemory {
		opts.FS = vfs.NewMem()
		dir = ""
	} else if dir == "" {
		return nil, errors.New("pebble: path is required")
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %q: %w", dir, err)
	}
	return &Store{db: db, config: config}, nil
}

func (s *Store) writeOptions() *pebble.WriteOptions {
	if s.config.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// View runs fn against a point-in-time snapshot.
func (s *Store) View(ctx context.Context, fn func(kv.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return kv.ErrClosed
	}
	snap := s.db.NewSnapshot()
	s.mu.Unlock()
	defer snap.Close()

	return fn(&reader{get: snap.Get})
}

// Update runs fn against an indexed batch and commits it if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(kv.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&txn{reader: reader{get: batch.Get}, batch: batch}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}
	if err := batch.Commit(s.writeOptions()); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type reader struct {
	get func(key []byte) ([]byte, io.Closer, error)
}

func (r *reader) Get(key []byte) ([]byte, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, err
	}
	v, closer, err := r.get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := kv.Clone(v)
	if out == nil {
		out = []byte{}
	}
	return out, closer.Close()
}

func (r *reader) Has(key []byte) (bool, error) {
	_, err := r.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type txn struct {
	reader
	batch *pebble.Batch
}

func (t *txn) Set(key, value []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}
	return t.batch.Set(key, value, nil)
}
