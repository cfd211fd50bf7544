package localtable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viant/remoteobj/internal/objectstore/wire"
)

func TestRegister_SamePointerReturnsSameID(t *testing.T) {
	tbl := New()
	v := &struct{ X int }{X: 1}

	id1, isNew1 := tbl.Register(v)
	id2, isNew2 := tbl.Register(v)

	require.True(t, isNew1)
	require.False(t, isNew2)
	require.Equal(t, id1, id2)
}

func TestRegister_ValueTypesAlwaysFresh(t *testing.T) {
	tbl := New()
	a := struct{ X int }{X: 1}
	b := struct{ X int }{X: 1}

	idA, isNewA := tbl.Register(a)
	idB, isNewB := tbl.Register(b)

	require.True(t, isNewA)
	require.True(t, isNewB)
	require.NotEqual(t, idA, idB)
}

func TestRegister_DistinctPointersGetDistinctIDs(t *testing.T) {
	tbl := New()
	id1, _ := tbl.Register(&struct{}{})
	id2, _ := tbl.Register(&struct{}{})
	require.NotEqual(t, id1, id2)
}

func TestLookup_UnknownIDMisses(t *testing.T) {
	tbl := New()
	_, ok := tbl.Lookup(999)
	require.False(t, ok)
}

func TestLookup_KnownID(t *testing.T) {
	tbl := New()
	v := &struct{ X int }{X: 42}
	id, _ := tbl.Register(v)

	got, ok := tbl.Lookup(id)
	require.True(t, ok)
	require.Same(t, v, got)
}

func TestShape_CachedOnce(t *testing.T) {
	tbl := New()
	id, _ := tbl.Register(&struct{}{})

	tbl.SetShape(id, wire.Shape{Type: "object", OwnKeys: []wire.KeyDesc{{Key: wire.VString("A"), Enumerable: true}}})
	tbl.SetShape(id, wire.Shape{Type: "object", OwnKeys: []wire.KeyDesc{{Key: wire.VString("B"), Enumerable: true}}})

	shape, ok := tbl.Shape(id)
	require.True(t, ok)
	require.Equal(t, []wire.KeyDesc{{Key: wire.VString("A"), Enumerable: true}}, shape.OwnKeys)
}

func TestRelease_NotReSentIsReleased(t *testing.T) {
	tbl := New()
	id, _ := tbl.Register(&struct{}{})

	cutoff := time.Now()
	released, unknown := tbl.Release([]uint64{id}, cutoff)

	require.Equal(t, []uint64{id}, released)
	require.Empty(t, unknown)
	_, ok := tbl.Lookup(id)
	require.False(t, ok)
}

func TestRelease_ReSentAfterCutoffSurvives(t *testing.T) {
	tbl := New()
	id, _ := tbl.Register(&struct{}{})
	cutoff := time.Now()

	tbl.Touch(id)

	released, unknown := tbl.Release([]uint64{id}, cutoff)
	require.Empty(t, released)
	require.Empty(t, unknown)

	_, ok := tbl.Lookup(id)
	require.True(t, ok, "id re-sent after the release cutoff must not be released")
}

func TestRelease_UnknownIDReportedSeparately(t *testing.T) {
	tbl := New()
	released, unknown := tbl.Release([]uint64{777}, time.Now())
	require.Empty(t, released)
	require.Equal(t, []uint64{777}, unknown)
}

func TestExpose_DuplicateNameRejected(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Expose("counter", &struct{}{}))
	err := tbl.Expose("counter", &struct{}{})
	require.Error(t, err)
}

func TestExpose_SameValueUnderSecondNameRejected(t *testing.T) {
	tbl := New()
	v := &struct{}{}
	require.NoError(t, tbl.Expose("a", v))
	err := tbl.Expose("b", v)
	require.Error(t, err)
}

func TestLookupExposed(t *testing.T) {
	tbl := New()
	v := &struct{ X int }{X: 7}
	require.NoError(t, tbl.Expose("thing", v))

	got, ok := tbl.LookupExposed("thing")
	require.True(t, ok)
	require.Same(t, v, got)

	_, ok = tbl.LookupExposed("missing")
	require.False(t, ok)
}

func TestVersion_BumpsOnMutation(t *testing.T) {
	tbl := New()
	before := tbl.Version()
	tbl.Register(&struct{}{})
	require.Greater(t, tbl.Version(), before)
}

func TestLen_CountsOnlyTransientEntries(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Expose("name", &struct{}{}))
	require.Equal(t, 0, tbl.Len())

	tbl.Register(&struct{}{})
	require.Equal(t, 1, tbl.Len())
}
