package forum

// Principal is the authenticated caller identity supplied by the host.
// The ledger stores it verbatim.
type Principal string

// Thread is a top-level post. Threads are identified by ids assigned from 1
// in creation order and never change once written.
type Thread struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      Principal `json:"author"`
}

// ThreadElement is a reply under a thread, identified by (thread id, element id).
type ThreadElement struct {
	Content string    `json:"content"`
	Author  Principal `json:"author"`
}
