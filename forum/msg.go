package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// ExecuteMsg is the state-changing request envelope. Exactly one field is set.
//
//	{"create_thread":{"title":"Hello","description":"World"}}
//	{"create_thread_elem":{"thread_id":1,"content":"first reply"}}
type ExecuteMsg struct {
	CreateThread     *CreateThreadMsg     `json:"create_thread,omitempty"`
	CreateThreadElem *CreateThreadElemMsg `json:"create_thread_elem,omitempty"`
}

// CreateThreadMsg carries the fields of a new thread.
type CreateThreadMsg struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateThreadElemMsg carries a reply to a thread.
type CreateThreadElemMsg struct {
	ThreadID uint64 `json:"thread_id"`
	Content  string `json:"content"`
}

// QueryMsg is the read-only request envelope. Exactly one field is set.
//
//	{"thread":{"id":1}}
//	{"thread_elem":{"thread_id":1,"elem_id":2}}
type QueryMsg struct {
	Thread     *ThreadQuery     `json:"thread,omitempty"`
	ThreadElem *ThreadElemQuery `json:"thread_elem,omitempty"`
}

// ThreadQuery selects a thread by id.
type ThreadQuery struct {
	ID uint64 `json:"id"`
}

// ThreadElemQuery selects one element of a thread.
type ThreadElemQuery struct {
	ThreadID uint64 `json:"thread_id"`
	ElemID   uint64 `json:"elem_id"`
}

// Validate checks that exactly one operation is named.
func (m ExecuteMsg) Validate() error {
	n := 0
	if m.CreateThread != nil {
		n++
	}
	if m.CreateThreadElem != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("%w: execute message names %d operations", ErrInvalidRequest, n)
	}
	return nil
}

// Validate checks that exactly one query is named.
func (m QueryMsg) Validate() error {
	n := 0
	if m.Thread != nil {
		n++
	}
	if m.ThreadElem != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("%w: query message names %d queries", ErrInvalidRequest, n)
	}
	return nil
}

// DecodeExecuteMsg parses and validates an execute envelope.
func DecodeExecuteMsg(raw []byte) (ExecuteMsg, error) {
	var m ExecuteMsg
	if err := decodeStrict(raw, &m); err != nil {
		return ExecuteMsg{}, err
	}
	return m, m.Validate()
}

// DecodeQueryMsg parses and validates a query envelope.
func DecodeQueryMsg(raw []byte) (QueryMsg, error) {
	var m QueryMsg
	if err := decodeStrict(raw, &m); err != nil {
		return QueryMsg{}, err
	}
	return m, m.Validate()
}

func decodeStrict(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after message", ErrInvalidRequest)
	}
	return nil
}

// Execute applies a state-changing envelope on behalf of caller.
func (l *Ledger) Execute(ctx context.Context, caller Principal, msg ExecuteMsg) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	switch {
	case msg.CreateThread != nil:
		return l.CreateThread(ctx, caller, msg.CreateThread.Title, msg.CreateThread.Description)
	default:
		return l.CreateThreadElement(ctx, caller, msg.CreateThreadElem.ThreadID, msg.CreateThreadElem.Content)
	}
}

// Query answers a read-only envelope with the JSON-encoded record.
func (l *Ledger) Query(ctx context.Context, msg QueryMsg) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var record any
	switch {
	case msg.Thread != nil:
		t, err := l.GetThread(ctx, msg.Thread.ID)
		if err != nil {
			return nil, err
		}
		record = t
	default:
		e, err := l.GetThreadElement(ctx, msg.ThreadElem.ThreadID, msg.ThreadElem.ElemID)
		if err != nil {
			return nil, err
		}
		record = e
	}
	return json.Marshal(record)
}
