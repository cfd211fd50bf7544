package wire

// Message kinds exchanged over the RequestHandler. Each is the Params/Result
// payload carried inside whatever envelope a transport uses (transport/ws's
// frame, the store's byte-oriented envelope, or inproc's Go structs); this
// package defines the payloads, not the envelope.

// Method names used as the envelope's "method" field.
const (
	MethodClose  = "objectstore.close"
	MethodRemote = "objectstore.remote"
	MethodSyncGC = "objectstore.syncGc"
)

// CloseNotification is sent unilaterally; the receiver transitions to closed.
type CloseNotification struct {
	Reason string `json:"reason,omitempty"`
}

// RemoteRequestParams carries a path to evaluate against the owner's Local
// Table: a root id plus the ordered segments to walk from it.
type RemoteRequestParams struct {
	Root Id        `json:"root"`
	Path []Segment `json:"path"`
}

// RemoteResponseResult is the evaluated path's outcome: either a
// ValueDescription or (Error != nil) an ErrorDescription.
type RemoteResponseResult struct {
	Value *ValueDescription `json:"value,omitempty"`
	Error *ErrorDescription `json:"error,omitempty"`
}

// SyncGCRequestParams is one GC sync round.
type SyncGCRequestParams struct {
	DeletedItems []Id `json:"deletedItems"`
	NewItems     []Id `json:"newItems"`
}

// SyncGCResult reports which deletions the owner actually honored, and which
// new items it never heard of (so the holder knows to re-introduce them).
type SyncGCResult struct {
	DeletedItems   []Id `json:"deletedItems"`
	UnknownNewItems []Id `json:"unknownNewItems"`
}
