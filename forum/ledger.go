package forum

import (
	"context"
	"log/slog"

	"github.com/jacentio/forumledger/kv"
)

// Operation names used in logs and metrics.
const (
	opCreateThread        = "create_thread"
	opCreateThreadElement = "create_thread_elem"
	opGetThread           = "get_thread"
	opGetThreadElement    = "get_thread_elem"
)

// Ledger applies forum operations to a kv.Store.
// Each create runs the counter advance and the record save in one
// Update, so both land or neither does.
type Ledger struct {
	store   kv.Store
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Ledger. A nil logger falls back to slog.Default().
func New(store kv.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		logger: logger,
	}
}

// SetMetrics sets the collectors operations are reported to.
func (l *Ledger) SetMetrics(m *Metrics) {
	l.metrics = m
}

// CreateThread stores a new thread authored by caller under the next thread id.
// The assigned id is not returned.
func (l *Ledger) CreateThread(ctx context.Context, caller Principal, title, description string) error {
	_, err := l.createThread(ctx, caller, title, description)
	return err
}

func (l *Ledger) createThread(ctx context.Context, caller Principal, title, description string) (uint64, error) {
	var id uint64
	err := l.store.Update(ctx, func(tx kv.Txn) error {
		var err error
		id, err = threadCounter().advance(tx)
		if err != nil {
			return err
		}
		return saveThread(tx, id, Thread{
			Title:       title,
			Description: description,
			Author:      caller,
		})
	})
	l.metrics.observe(opCreateThread, err)
	if err != nil {
		l.logger.Warn("create thread failed", "author", caller, "error", err)
		return 0, err
	}

	l.logger.Info("thread created", "threadID", id, "author", caller)
	return id, nil
}

// CreateThreadElement stores a reply under threadID with the next element id
// for that thread. threadID is not checked against existing threads.
func (l *Ledger) CreateThreadElement(ctx context.Context, caller Principal, threadID uint64, content string) error {
	_, err := l.createThreadElement(ctx, caller, threadID, content)
	return err
}

func (l *Ledger) createThreadElement(ctx context.Context, caller Principal, threadID uint64, content string) (uint64, error) {
	var elementID uint64
	err := l.store.Update(ctx, func(tx kv.Txn) error {
		var err error
		elementID, err = elementCounter(threadID).advance(tx)
		if err != nil {
			return err
		}
		return saveElement(tx, threadID, elementID, ThreadElement{
			Content: content,
			Author:  caller,
		})
	})
	l.metrics.observe(opCreateThreadElement, err)
	if err != nil {
		l.logger.Warn("create thread element failed",
			"threadID", threadID,
			"author", caller,
			"error", err,
		)
		return 0, err
	}

	l.logger.Info("thread element created",
		"threadID", threadID,
		"elementID", elementID,
		"author", caller,
	)
	return elementID, nil
}

// GetThread returns the thread stored at id, or ErrNotFound.
func (l *Ledger) GetThread(ctx context.Context, id uint64) (Thread, error) {
	var t Thread
	err := l.store.View(ctx, func(r kv.Reader) error {
		var err error
		t, err = loadThread(r, id)
		return err
	})
	l.metrics.observe(opGetThread, err)
	return t, err
}

// GetThreadElement returns element elementID of threadID, or ErrNotFound.
func (l *Ledger) GetThreadElement(ctx context.Context, threadID, elementID uint64) (ThreadElement, error) {
	var e ThreadElement
	err := l.store.View(ctx, func(r kv.Reader) error {
		var err error
		e, err = loadElement(r, threadID, elementID)
		return err
	})
	l.metrics.observe(opGetThreadElement, err)
	return e, err
}

// ThreadCount returns how many threads have been created, which is also the
// last assigned thread id.
func (l *Ledger) ThreadCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := l.store.View(ctx, func(r kv.Reader) error {
		var err error
		n, err = threadCounter().load(r)
		return err
	})
	return n, err
}

// ElementCount returns how many elements have been created under threadID.
func (l *Ledger) ElementCount(ctx context.Context, threadID uint64) (uint64, error) {
	var n uint64
	err := l.store.View(ctx, func(r kv.Reader) error {
		var err error
		n, err = elementCounter(threadID).load(r)
		return err
	})
	return n, err
}
