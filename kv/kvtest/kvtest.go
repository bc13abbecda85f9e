// Package kvtest holds a conformance suite every kv.Store backend runs.
package kvtest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jacentio/forumledger/kv"
)

// errAbort is returned from Update callbacks to force a rollback.
var errAbort = errors.New("kvtest: abort")

// Run exercises the kv.Store contract against stores created by open.
// Each subtest gets a fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) kv.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s kv.Store)
	}{
		{"GetMissing", testGetMissing},
		{"SetThenGet", testSetThenGet},
		{"ReadOwnWrites", testReadOwnWrites},
		{"Overwrite", testOverwrite},
		{"RollbackOnError", testRollbackOnError},
		{"EmptyKey", testEmptyKey},
		{"ViewIsReadOnly", testViewIsReadOnly},
		{"BinaryKeys", testBinaryKeys},
		{"ReturnedValueIsCopy", testReturnedValueIsCopy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			tt.fn(t, s)
		})
	}
}

func set(t *testing.T, s kv.Store, key, value string) {
	t.Helper()
	err := s.Update(context.Background(), func(tx kv.Txn) error {
		return tx.Set([]byte(key), []byte(value))
	})
	if err != nil {
		t.Fatalf("Update(Set %q) failed: %v", key, err)
	}
}

func get(t *testing.T, s kv.Store, key string) ([]byte, error) {
	t.Helper()
	var out []byte
	err := s.View(context.Background(), func(r kv.Reader) error {
		v, err := r.Get([]byte(key))
		out = v
		return err
	})
	return out, err
}

func testGetMissing(t *testing.T, s kv.Store) {
	_, err := get(t, s, "missing")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	err = s.View(context.Background(), func(r kv.Reader) error {
		ok, err := r.Has([]byte("missing"))
		if err != nil {
			return err
		}
		if ok {
			t.Error("expected Has to report false for a missing key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testSetThenGet(t *testing.T, s kv.Store) {
	set(t, s, "alpha", "one")

	v, err := get(t, s, "alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(v) != "one" {
		t.Errorf("expected 'one', got %q", v)
	}

	err = s.View(context.Background(), func(r kv.Reader) error {
		ok, err := r.Has([]byte("alpha"))
		if err != nil {
			return err
		}
		if !ok {
			t.Error("expected Has to report true after Set")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testReadOwnWrites(t *testing.T, s kv.Store) {
	err := s.Update(context.Background(), func(tx kv.Txn) error {
		if err := tx.Set([]byte("k"), []byte("v1")); err != nil {
			return err
		}
		v, err := tx.Get([]byte("k"))
		if err != nil {
			return err
		}
		if string(v) != "v1" {
			t.Errorf("expected uncommitted write 'v1', got %q", v)
		}
		ok, err := tx.Has([]byte("k"))
		if err != nil {
			return err
		}
		if !ok {
			t.Error("expected Has to see uncommitted write")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func testOverwrite(t *testing.T, s kv.Store) {
	set(t, s, "k", "first")
	set(t, s, "k", "second")

	v, err := get(t, s, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(v) != "second" {
		t.Errorf("expected 'second', got %q", v)
	}
}

func testRollbackOnError(t *testing.T, s kv.Store) {
	set(t, s, "counter", "1")

	err := s.Update(context.Background(), func(tx kv.Txn) error {
		if err := tx.Set([]byte("counter"), []byte("2")); err != nil {
			return err
		}
		if err := tx.Set([]byte("record"), []byte("new")); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	v, err := get(t, s, "counter")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(v) != "1" {
		t.Errorf("expected counter to stay '1' after rollback, got %q", v)
	}
	if _, err := get(t, s, "record"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected record to be absent after rollback, got %v", err)
	}
}

func testEmptyKey(t *testing.T, s kv.Store) {
	err := s.Update(context.Background(), func(tx kv.Txn) error {
		return tx.Set(nil, []byte("v"))
	})
	if !errors.Is(err, kv.ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey from Set, got %v", err)
	}

	_, err = get(t, s, "")
	if !errors.Is(err, kv.ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey from Get, got %v", err)
	}
}

func testViewIsReadOnly(t *testing.T, s kv.Store) {
	err := s.View(context.Background(), func(r kv.Reader) error {
		tx, ok := r.(kv.Txn)
		if !ok {
			return nil
		}
		return tx.Set([]byte("k"), []byte("v"))
	})
	if err != nil && !errors.Is(err, kv.ErrReadOnly) {
		t.Errorf("expected nil or ErrReadOnly, got %v", err)
	}
	if _, err := get(t, s, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected no write through View, got %v", err)
	}
}

func testBinaryKeys(t *testing.T, s kv.Store) {
	keys := [][]byte{
		{0x00},
		{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		append([]byte("ns:"), 0x00, 0x01),
	}

	err := s.Update(context.Background(), func(tx kv.Txn) error {
		for i, k := range keys {
			if err := tx.Set(k, []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = s.View(context.Background(), func(r kv.Reader) error {
		for i, k := range keys {
			v, err := r.Get(k)
			if err != nil {
				return err
			}
			if !bytes.Equal(v, []byte{byte(i)}) {
				t.Errorf("key %x: expected %x, got %x", k, []byte{byte(i)}, v)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testReturnedValueIsCopy(t *testing.T, s kv.Store) {
	set(t, s, "k", "abc")

	v, err := get(t, s, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	v[0] = 'x'

	again, err := get(t, s, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(again) != "abc" {
		t.Errorf("expected stored value to be unaffected by caller mutation, got %q", again)
	}
}
