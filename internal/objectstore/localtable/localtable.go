// Package localtable implements the Local Table: the registry of values this
// peer has exposed or described to the remote. It adapts
// internal/registry.Registry[T]'s sync.RWMutex + map + atomic
// version-counter shape from a single name-keyed map into two mappings: a
// numeric-id strong map for transient gc-tracked values, and a separate
// exposed-name strong map that is never garbage collected.
package localtable

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// entry is one Local Table row: the value, its assigned id, the shape
// description cached on first build and reused for the id's lifetime, and
// GC bookkeeping.
type entry struct {
	id         uint64
	value      interface{}
	shape      *wire.Shape
	lastSentAt time.Time
}

// Table is the owner-side registry: id -> value, value -> id (best-effort,
// keyed by runtime pointer identity since Go value-type structs have no
// stable identity the way JS objects always do — see DESIGN.md), plus a
// strong, separate exposed-name map.
type Table struct {
	mu      sync.RWMutex
	byID    map[uint64]*entry
	byValue map[uintptr]*entry
	exposed map[string]*entry
	names   map[uintptr]string // reverse: value identity -> exposed name, so a value binds to at most one name
	nextID  uint64
	version int64
}

// New creates an empty Local Table.
func New() *Table {
	return &Table{
		byID:    make(map[uint64]*entry),
		byValue: make(map[uintptr]*entry),
		exposed: make(map[string]*entry),
		names:   make(map[uintptr]string),
	}
}

// identity returns a stable key for reference-typed values (pointer, map,
// func, chan, slice) or ok=false for value types that have no Go-level
// identity to key on — those are always treated as a fresh registration,
// matching the codec's "any other object/function/symbol" miss path.
func identity(v interface{}) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

// Register returns the id for value, allocating a fresh one on first sight.
// isNew reports whether the shape still needs to be built by the caller
// (codec).
func (t *Table) Register(value interface{}) (id uint64, isNew bool) {
	key, keyed := identity(value)

	t.mu.Lock()
	defer t.mu.Unlock()

	if keyed {
		if e, ok := t.byValue[key]; ok {
			return e.id, false
		}
	}

	id = t.allocateLocked()
	e := &entry{id: id, value: value, lastSentAt: time.Now()}
	t.byID[id] = e
	if keyed {
		t.byValue[key] = e
	}
	atomic.AddInt64(&t.version, 1)
	return id, true
}

// allocateLocked assigns the next free numeric id, wrapping across the full
// uint64 range without duplication among live ids, skipping ids still
// present. Must be called with t.mu held.
func (t *Table) allocateLocked() uint64 {
	for {
		t.nextID++
		if t.nextID == 0 { // wrapped past max uint64
			t.nextID = 1
		}
		if _, exists := t.byID[t.nextID]; !exists {
			return t.nextID
		}
	}
}

// Lookup resolves id to its value. Returns false (the caller surfaces
// errs.ErrUnknownID) if id has been released, never seen, or was asked for
// under the wrong namespace.
func (t *Table) Lookup(id uint64) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Touch records that id was (re-)introduced in an outbound message at the
// current time — the "last-time-sent" metadata the GC Coordinator's release
// guard compares against.
func (t *Table) Touch(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byID[id]; ok {
		e.lastSentAt = time.Now()
	}
}

// Shape returns the cached shape for id, if one has been built yet.
func (t *Table) Shape(id uint64) (*wire.Shape, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byID[id]
	if !ok || e.shape == nil {
		return nil, false
	}
	return e.shape, true
}

// SetShape caches the shape description for id. It is a no-op if a shape is
// already cached, enforcing shape stability for the id's lifetime at the
// table level rather than trusting every call site to check first.
func (t *Table) SetShape(id uint64, shape wire.Shape) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byID[id]; ok && e.shape == nil {
		e.shape = &shape
	}
}

// Release deletes each id in ids that has not been re-sent since cutoff —
// an id is released only if it was not re-introduced after the release was
// requested. Returns the ids actually released and the subset unknown to
// this table.
func (t *Table) Release(ids []uint64, cutoff time.Time) (released, unknown []uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		e, ok := t.byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if e.lastSentAt.After(cutoff) {
			// Re-introduced after the release was requested: not released.
			continue
		}
		delete(t.byID, id)
		if key, keyed := identity(e.value); keyed {
			delete(t.byValue, key)
		}
		released = append(released, id)
	}
	if len(released) > 0 {
		atomic.AddInt64(&t.version, 1)
	}
	return released, unknown
}

// Expose registers value under a stable, strongly-held user-facing name that
// is never garbage collected. A name may bind only one value, and a value
// may be exposed under at most one name.
func (t *Table) Expose(name string, value interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.exposed[name]; exists {
		return errs.Protocolf("duplicate exposed name %q", name)
	}
	if key, keyed := identity(value); keyed {
		if existing, ok := t.names[key]; ok {
			return errs.Protocolf("value already exposed under name %q", existing)
		}
		t.names[key] = name
	}
	t.exposed[name] = &entry{value: value, lastSentAt: time.Now()}
	atomic.AddInt64(&t.version, 1)
	return nil
}

// LookupExposed resolves a user-facing name to its bound value.
func (t *Table) LookupExposed(name string) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.exposed[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// ExposedShape/SetExposedShape mirror Shape/SetShape for string-named
// entries, since exposed root objects get a shape description too.
func (t *Table) ExposedShape(name string) (*wire.Shape, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.exposed[name]
	if !ok || e.shape == nil {
		return nil, false
	}
	return e.shape, true
}

func (t *Table) SetExposedShape(name string, shape wire.Shape) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.exposed[name]; ok && e.shape == nil {
		e.shape = &shape
	}
}

// Version returns a monotonically increasing counter bumped on every
// mutation, mirroring internal/registry.Registry[T].Version().
func (t *Table) Version() int64 { return atomic.LoadInt64(&t.version) }

// Len reports the number of live transient (non-exposed) entries, mostly
// useful for tests asserting GC behavior.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}
