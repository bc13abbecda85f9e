package forum

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jacentio/forumledger/internal/keys"
	"github.com/jacentio/forumledger/kv"
	"github.com/jacentio/forumledger/kv/memory"
	"github.com/jacentio/forumledger/kv/pebblekv"
	"github.com/jacentio/forumledger/kv/sqlitekv"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()
	s := memory.New()
	return New(s, quietLogger()), s
}

// backends opens every local kv backend so ledger behavior is checked on each.
func backends(t *testing.T) map[string]kv.Store {
	t.Helper()

	peb, err := pebblekv.Open(pebblekv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("pebble Open() failed: %v", err)
	}
	t.Cleanup(func() { peb.Close() })

	lite, err := sqlitekv.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("sqlite Open() failed: %v", err)
	}
	t.Cleanup(func() { lite.Close() })

	return map[string]kv.Store{
		"memory": memory.New(),
		"pebble": peb,
		"sqlite": lite,
	}
}

func setCounter(t *testing.T, s kv.Store, key []byte, v uint64) {
	t.Helper()
	err := s.Update(context.Background(), func(tx kv.Txn) error {
		return tx.Set(key, binary.BigEndian.AppendUint64(nil, v))
	})
	if err != nil {
		t.Fatalf("seed counter failed: %v", err)
	}
}

// --- Scenario ---

func TestScenario(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := New(store, quietLogger())

			id, err := l.createThread(ctx, "alice", "Hello", "World")
			if err != nil {
				t.Fatalf("CreateThread failed: %v", err)
			}
			if id != 1 {
				t.Errorf("expected thread id 1, got %d", id)
			}

			e1, err := l.createThreadElement(ctx, "bob", 1, "first reply")
			if err != nil {
				t.Fatalf("CreateThreadElement failed: %v", err)
			}
			e2, err := l.createThreadElement(ctx, "alice", 1, "second reply")
			if err != nil {
				t.Fatalf("CreateThreadElement failed: %v", err)
			}
			if e1 != 1 || e2 != 2 {
				t.Errorf("expected elements (1,1) and (1,2), got (1,%d) and (1,%d)", e1, e2)
			}

			got, err := l.GetThread(ctx, 1)
			if err != nil {
				t.Fatalf("GetThread(1) failed: %v", err)
			}
			want := Thread{Title: "Hello", Description: "World", Author: "alice"}
			if got != want {
				t.Errorf("expected %+v, got %+v", want, got)
			}

			reply, err := l.GetThreadElement(ctx, 1, 1)
			if err != nil {
				t.Fatalf("GetThreadElement(1,1) failed: %v", err)
			}
			if reply != (ThreadElement{Content: "first reply", Author: "bob"}) {
				t.Errorf("unexpected element (1,1): %+v", reply)
			}

			if _, err := l.GetThread(ctx, 2); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound for thread 2, got %v", err)
			}
		})
	}
}

// --- Identifier Properties ---

func TestThreadIDsAreGapless(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for want := uint64(1); want <= 50; want++ {
		id, err := l.createThread(ctx, "alice", "t", "d")
		if err != nil {
			t.Fatalf("create %d failed: %v", want, err)
		}
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}

	n, err := l.ThreadCount(ctx)
	if err != nil {
		t.Fatalf("ThreadCount failed: %v", err)
	}
	if n != 50 {
		t.Errorf("expected ThreadCount 50, got %d", n)
	}
}

func TestElementIDsArePerThread(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	// Interleave threads 5 and 7; neither exists as a Thread record.
	order := []uint64{5, 7, 7, 5, 5, 7, 5, 7, 7, 7}
	next := map[uint64]uint64{5: 1, 7: 1}

	for i, threadID := range order {
		id, err := l.createThreadElement(ctx, "bob", threadID, "reply")
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if id != next[threadID] {
			t.Errorf("step %d thread %d: expected element %d, got %d", i, threadID, next[threadID], id)
		}
		next[threadID]++
	}

	for threadID, want := range map[uint64]uint64{5: 4, 7: 6} {
		n, err := l.ElementCount(ctx, threadID)
		if err != nil {
			t.Fatalf("ElementCount(%d) failed: %v", threadID, err)
		}
		if n != want {
			t.Errorf("thread %d: expected %d elements, got %d", threadID, want, n)
		}
	}

	// Element counters do not touch the thread counter.
	if n, _ := l.ThreadCount(ctx); n != 0 {
		t.Errorf("expected ThreadCount 0, got %d", n)
	}
}

func TestConcurrentCreatesAreGapless(t *testing.T) {
	const writers = 20

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			threads, elems := createConcurrently(t, New(store, quietLogger()), writers)
			assertIDRange(t, "thread", threads, writers)
			assertIDRange(t, "element", elems, writers)
		})
	}
}

// createConcurrently runs n goroutines that each create one thread and one
// element on thread 1, and returns the ids they were assigned.
func createConcurrently(t *testing.T, l *Ledger, n int) (threads, elems []uint64) {
	t.Helper()
	ctx := context.Background()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(chan error, 2*n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tid, err := l.createThread(ctx, "alice", "t", "d")
			if err != nil {
				errs <- err
				return
			}
			eid, err := l.createThreadElement(ctx, "bob", 1, "reply")
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			threads = append(threads, tid)
			elems = append(elems, eid)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent create failed: %v", err)
	}
	return threads, elems
}

// assertIDRange checks that ids is exactly {1..n}.
func assertIDRange(t *testing.T, what string, ids []uint64, n int) {
	t.Helper()
	if len(ids) != n {
		t.Fatalf("expected %d %s ids, got %d", n, what, len(ids))
	}
	seen := make(map[uint64]bool, n)
	for _, id := range ids {
		if id < 1 || id > uint64(n) {
			t.Errorf("%s id %d outside 1..%d", what, id, n)
		}
		if seen[id] {
			t.Errorf("%s id %d assigned twice", what, id)
		}
		seen[id] = true
	}
}

func TestCreateThreadElement_NoThreadCheck(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	if err := l.CreateThreadElement(ctx, "bob", 999, "orphan"); err != nil {
		t.Fatalf("expected element under a missing thread to be accepted, got %v", err)
	}
	e, err := l.GetThreadElement(ctx, 999, 1)
	if err != nil {
		t.Fatalf("GetThreadElement failed: %v", err)
	}
	if e.Content != "orphan" {
		t.Errorf("expected 'orphan', got %q", e.Content)
	}
	if _, err := l.GetThread(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected thread 999 to remain absent, got %v", err)
	}
}

func TestCreateThreadElement_ThreadIDZero(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, err := l.createThreadElement(ctx, "bob", 0, "zero")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected element 1, got %d", id)
	}
}

// --- Overflow ---

func TestCreateThread_Overflow(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	setCounter(t, s, keys.ThreadCounterKey(), math.MaxUint64)

	err := l.CreateThread(ctx, "alice", "t", "d")
	if !errors.Is(err, ErrCounterOverflow) {
		t.Fatalf("expected ErrCounterOverflow, got %v", err)
	}

	n, err := l.ThreadCount(ctx)
	if err != nil {
		t.Fatalf("ThreadCount failed: %v", err)
	}
	if n != math.MaxUint64 {
		t.Errorf("expected counter unchanged at max, got %d", n)
	}
	if s.Len() != 1 {
		t.Errorf("expected only the counter key to be stored, got %d keys", s.Len())
	}

	// After the harness resets the counter, allocation resumes from it.
	setCounter(t, s, keys.ThreadCounterKey(), 5)
	id, err := l.createThread(ctx, "alice", "t", "d")
	if err != nil {
		t.Fatalf("create after reset failed: %v", err)
	}
	if id != 6 {
		t.Errorf("expected id 6, got %d", id)
	}
}

func TestCreateThread_OneBelowMax(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	setCounter(t, s, keys.ThreadCounterKey(), math.MaxUint64-1)

	id, err := l.createThread(ctx, "alice", "last", "d")
	if err != nil {
		t.Fatalf("expected the last id to be allocatable, got %v", err)
	}
	if id != math.MaxUint64 {
		t.Errorf("expected id MaxUint64, got %d", id)
	}
	if _, err := l.createThread(ctx, "alice", "t", "d"); !errors.Is(err, ErrCounterOverflow) {
		t.Errorf("expected ErrCounterOverflow, got %v", err)
	}
}

func TestCreateThreadElement_Overflow(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	setCounter(t, s, keys.ElementCounterKey(3), math.MaxUint64)

	err := l.CreateThreadElement(ctx, "bob", 3, "reply")
	if !errors.Is(err, ErrCounterOverflow) {
		t.Fatalf("expected ErrCounterOverflow, got %v", err)
	}
	n, err := l.ElementCount(ctx, 3)
	if err != nil {
		t.Fatalf("ElementCount failed: %v", err)
	}
	if n != math.MaxUint64 {
		t.Errorf("expected counter unchanged at max, got %d", n)
	}

	// Other threads keep their own counters.
	id, err := l.createThreadElement(ctx, "bob", 4, "reply")
	if err != nil {
		t.Fatalf("create under thread 4 failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected element 1 under thread 4, got %d", id)
	}
}

// --- Atomicity ---

var errDisk = errors.New("disk full")

// failingStore fails every Set whose key starts with prefix.
type failingStore struct {
	kv.Store
	prefix []byte
}

func (f *failingStore) Update(ctx context.Context, fn func(kv.Txn) error) error {
	return f.Store.Update(ctx, func(tx kv.Txn) error {
		return fn(&failingTxn{Txn: tx, prefix: f.prefix})
	})
}

type failingTxn struct {
	kv.Txn
	prefix []byte
}

func (f *failingTxn) Set(key, value []byte) error {
	if bytes.HasPrefix(key, f.prefix) {
		return errDisk
	}
	return f.Txn.Set(key, value)
}

func TestCreateThread_SaveFailureRollsBackCounter(t *testing.T) {
	mem := memory.New()
	l := New(&failingStore{Store: mem, prefix: []byte(keys.Threads)}, quietLogger())
	ctx := context.Background()

	err := l.CreateThread(ctx, "alice", "t", "d")
	if !errors.Is(err, errDisk) {
		t.Fatalf("expected errDisk, got %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("expected nothing persisted, got %d keys", mem.Len())
	}

	// The next successful create still gets id 1.
	ok := New(mem, quietLogger())
	id, err := ok.createThread(ctx, "alice", "t", "d")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected id 1 after rolled-back attempt, got %d", id)
	}
}

func TestCreateThreadElement_SaveFailureRollsBackCounter(t *testing.T) {
	mem := memory.New()
	l := New(&failingStore{Store: mem, prefix: []byte(keys.ThreadElements)}, quietLogger())

	err := l.CreateThreadElement(context.Background(), "bob", 1, "reply")
	if !errors.Is(err, errDisk) {
		t.Fatalf("expected errDisk, got %v", err)
	}
	n, err := l.ElementCount(context.Background(), 1)
	if err != nil {
		t.Fatalf("ElementCount failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected element counter 0, got %d", n)
	}
}

// --- Reads ---

func TestGetThread_NeverAssigned(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	if err := l.CreateThread(ctx, "alice", "t", "d"); err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}

	for _, id := range []uint64{0, 2, 3, math.MaxUint64} {
		if _, err := l.GetThread(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetThread(%d): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestGetThread_DoesNotMutate(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	if err := l.CreateThread(ctx, "alice", "t", "d"); err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	before := s.Len()

	for i := 0; i < 5; i++ {
		_, _ = l.GetThread(ctx, 1)
		_, _ = l.GetThread(ctx, 42)
	}
	if s.Len() != before {
		t.Errorf("expected %d keys after reads, got %d", before, s.Len())
	}
	if n, _ := l.ThreadCount(ctx); n != 1 {
		t.Errorf("expected ThreadCount 1, got %d", n)
	}
}

func TestCorruptCounter(t *testing.T) {
	l, s := newTestLedger(t)
	err := s.Update(context.Background(), func(tx kv.Txn) error {
		return tx.Set(keys.ThreadCounterKey(), []byte{1, 2, 3})
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := l.CreateThread(context.Background(), "alice", "t", "d"); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestCorruptRecord(t *testing.T) {
	l, s := newTestLedger(t)
	err := s.Update(context.Background(), func(tx kv.Txn) error {
		return tx.Set(keys.ThreadKey(1), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := l.GetThread(context.Background(), 1); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

// --- Logging ---

func TestLedgerLogs(t *testing.T) {
	var buf bytes.Buffer
	l := New(memory.New(), slog.New(slog.NewTextHandler(&buf, nil)))

	if err := l.CreateThread(context.Background(), "alice", "t", "d"); err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "thread created") || !strings.Contains(out, "threadID=1") {
		t.Errorf("expected creation log with threadID=1, got %q", out)
	}
}

func TestNew_NilLogger(t *testing.T) {
	l := New(memory.New(), nil)
	if l.logger == nil {
		t.Error("expected default logger")
	}
}
