package syncclient

import "github.com/kenshaw/syncdoc/jsondiff"

// DataSnapshot is what a UI collaborator reports back from GetData: the
// user's current local value for an entity, and optionally the one text
// field and cursor offsets that should be rebased rather than blindly
// overwritten on a remote update.
type DataSnapshot struct {
	Value jsondiff.Value

	// Field names the string field whose cursor offsets should survive
	// a rebase. Empty means the caller isn't tracking a cursor.
	Field   string
	Offsets []int
}

// NotifyResult is what Notify delivers to the UI: either a new value for
// the entity, or a deletion.
type NotifyResult struct {
	Value   jsondiff.Value
	Deleted bool

	// Offsets carries the rewritten cursor positions when the client
	// rebased the user's local edits and the DataSnapshot it fetched via
	// GetData named a field (whether or not the update touched that
	// field), and is nil otherwise.
	Offsets []int
}

// UI is the host binding the client notifies of remote changes and
// queries for the user's in-progress edits. All methods are called
// synchronously from the client's single logical task and must not
// block.
type UI interface {
	// Notify delivers a remote change (or deletion) for id.
	Notify(id string, result NotifyResult)

	// NotifyVersion delivers a historical version of id, requested out
	// of band (e.g. for a history view), distinct from the live value.
	NotifyVersion(id string, value jsondiff.Value, version int)

	// GetData returns the user's current local value for id, if the UI
	// is tracking one. ok is false when the UI has nothing in progress
	// for id, in which case the client falls back to its own Last copy.
	GetData(id string) (DataSnapshot, bool)

	// Initialized is called once the client's first full index has
	// landed and the entity store reflects the server's state.
	Initialized()
}
