package forum

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jacentio/forumledger/internal/keys"
	"github.com/jacentio/forumledger/kv"
)

// Records are written unconditionally. Ids are unique only because the
// counters are their sole source.

func saveThread(tx kv.Txn, id uint64, t Thread) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal thread %d: %w", id, err)
	}
	if err := tx.Set(keys.ThreadKey(id), b); err != nil {
		return fmt.Errorf("save thread %d: %w", id, err)
	}
	return nil
}

func saveElement(tx kv.Txn, threadID, elementID uint64, e ThreadElement) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal element %d/%d: %w", threadID, elementID, err)
	}
	if err := tx.Set(keys.ThreadElementKey(threadID, elementID), b); err != nil {
		return fmt.Errorf("save element %d/%d: %w", threadID, elementID, err)
	}
	return nil
}

func loadThread(r kv.Reader, id uint64) (Thread, error) {
	var t Thread
	if err := loadRecord(r, keys.ThreadKey(id), &t); err != nil {
		return Thread{}, fmt.Errorf("load thread %d: %w", id, err)
	}
	return t, nil
}

func loadElement(r kv.Reader, threadID, elementID uint64) (ThreadElement, error) {
	var e ThreadElement
	if err := loadRecord(r, keys.ThreadElementKey(threadID, elementID), &e); err != nil {
		return ThreadElement{}, fmt.Errorf("load element %d/%d: %w", threadID, elementID, err)
	}
	return e, nil
}

func loadRecord(r kv.Reader, key []byte, out any) error {
	raw, err := r.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}
