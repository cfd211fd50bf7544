// Package remotetable implements the Remote Table: a weak cache of proxies
// representing values owned by the peer, preserving proxy identity (the
// same id always resolves to the same proxy instance while it is
// reachable) and feeding the GC Coordinator's pending-cleanup queue when a
// proxy becomes locally unreachable.
//
// Go has no WeakRef/FinalizationRegistry. This package uses
// weak.Pointer[T] + runtime.AddCleanup (stdlib since Go 1.24, available
// given this module's go 1.25 toolchain), the finalizer-adjacent mechanism
// for exactly this "notify when unreachable, don't keep alive" use case.
package remotetable

import (
	"runtime"
	"sync"
	"weak"

	"github.com/viant/remoteobj/internal/objectstore/ref"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Table is the holder-side cache: id -> weakly-held *ref.Ref, plus a queue
// of ids whose proxy has become unreachable. String ids are held strongly
// and never queued for cleanup.
type Table struct {
	mu      sync.Mutex
	weak    map[string]weak.Pointer[ref.Ref]
	strong  map[string]*ref.Ref // string-named ids: held strongly, never cleaned
	pending chan wire.Id
}

// New creates an empty Remote Table. pendingBuf sizes the cleanup queue;
// the GC Coordinator drains it on its sync schedule.
func New(pendingBuf int) *Table {
	return &Table{
		weak:    make(map[string]weak.Pointer[ref.Ref]),
		strong:  make(map[string]*ref.Ref),
		pending: make(chan wire.Id, pendingBuf),
	}
}

// Get returns the cached proxy for id if it is still live: same id -> same
// proxy instance for as long as any reference survives.
func (t *Table) Get(id wire.Id) (*ref.Ref, bool) {
	key := id.Key()
	t.mu.Lock()
	defer t.mu.Unlock()
	if id.Named() {
		r, ok := t.strong[key]
		return r, ok
	}
	wp, ok := t.weak[key]
	if !ok {
		return nil, false
	}
	r := wp.Value()
	if r == nil {
		delete(t.weak, key)
		return nil, false
	}
	return r, true
}

// Install caches r under id, weakly for numeric ids (with a finalizer-style
// cleanup callback queuing the id for release) or strongly for string ids.
func (t *Table) Install(id wire.Id, r *ref.Ref) {
	key := id.Key()
	t.mu.Lock()
	defer t.mu.Unlock()

	if id.Named() {
		t.strong[key] = r
		return
	}

	t.weak[key] = weak.Make(r)
	runtime.AddCleanup(r, func(queued wire.Id) {
		select {
		case t.pending <- queued:
		default:
			// Cleanup queue saturated: the next explicit SyncGC sweep will
			// pick this id up once drained; dropping here only delays
			// release, it never causes a premature one.
		}
	}, id)
}

// DrainPending removes and returns all ids currently queued for release,
// snapshotting the cleanup queue into the GC Coordinator's next
// deletedItems batch.
func (t *Table) DrainPending() []wire.Id {
	var out []wire.Id
	for {
		select {
		case id := <-t.pending:
			out = append(out, id)
		default:
			return out
		}
	}
}

// Cancel removes id from consideration for release — used when the id is
// re-sent after being queued for deletion, so a fresh use cancels the
// pending release. Because the pending queue is a channel rather than a set,
// cancellation is
// best-effort: it only prevents a *future* enqueue by re-installing the
// weak entry; an id already sitting in the channel is filtered out by the
// GC Coordinator, which drops from each drained batch any id that has a live
// proxy in this table again (see gc.Coordinator.runRound).
func (t *Table) Cancel(id wire.Id, r *ref.Ref) {
	t.Install(id, r)
}

// PendingLen reports the queue depth, mostly for tests and the
// scheduleGcAfterObjectCount threshold.
func (t *Table) PendingLen() int { return len(t.pending) }
