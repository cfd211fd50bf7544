package codec

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/remoteobj/internal/objectstore/localtable"
	"github.com/viant/remoteobj/internal/objectstore/ref"
	"github.com/viant/remoteobj/internal/objectstore/remotetable"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

func newCodec() *Codec {
	c := New(wire.Local, localtable.New(), remotetable.New(8), false)
	c.SetRequester(&fakeRequester{})
	return c
}

type fakeRequester struct{}

func (*fakeRequester) Evaluate(ctx context.Context, path wire.Path) (interface{}, error) {
	return nil, nil
}
func (*fakeRequester) Encode(value interface{}) (wire.ValueDescription, error) {
	return wire.VUndefined(), nil
}
func (*fakeRequester) ShapeFor(root wire.Id) (*wire.Shape, bool) { return nil, false }
func (*fakeRequester) NoToString() bool                         { return false }

func TestEncode_Primitives(t *testing.T) {
	c := newCodec()

	vd, err := c.Encode("hello")
	require.NoError(t, err)
	require.Equal(t, wire.KindString, vd.Kind)
	require.Equal(t, "hello", vd.Str)

	vd, err = c.Encode(true)
	require.NoError(t, err)
	require.Equal(t, wire.KindBoolean, vd.Kind)
	require.True(t, vd.Bool)

	vd, err = c.Encode(42)
	require.NoError(t, err)
	require.Equal(t, wire.KindNumber, vd.Kind)
	require.Equal(t, float64(42), vd.Num)

	vd, err = c.Encode(nil)
	require.NoError(t, err)
	require.Equal(t, wire.KindUndefined, vd.Kind)
}

func TestEncode_BigInt(t *testing.T) {
	c := newCodec()
	n := big.NewInt(0).SetUint64(1<<63 + 7)

	vd, err := c.Encode(n)
	require.NoError(t, err)
	require.Equal(t, wire.KindBigInt, vd.Kind)

	back, err := c.Decode(vd)
	require.NoError(t, err)
	require.Equal(t, 0, n.Cmp(back.(*big.Int)))
}

func TestEncodeDecode_RoundTripPrimitives(t *testing.T) {
	c := newCodec()
	for _, v := range []interface{}{"x", 3.5, true, nil} {
		vd, err := c.Encode(v)
		require.NoError(t, err)
		back, err := c.Decode(vd)
		require.NoError(t, err)
		require.Equal(t, v, back)
	}
}

func TestEncode_SamePointerTwiceReusesShapeAndID(t *testing.T) {
	c := newCodec()
	type thing struct{ X int }
	v := &thing{X: 1}

	vd1, err := c.Encode(v)
	require.NoError(t, err)
	vd2, err := c.Encode(v)
	require.NoError(t, err)

	require.Equal(t, vd1.Id, vd2.Id)
	require.Equal(t, []string{"X"}, keyNames(vd1.Shape.OwnKeys))
}

func TestEncode_Error(t *testing.T) {
	c := newCodec()
	vd, err := c.Encode(errors.New("boom"))
	require.NoError(t, err)
	require.Equal(t, wire.KindError, vd.Kind)
	require.Equal(t, "boom", vd.Error.Message)
}

func TestEncode_RefWithPathRejected(t *testing.T) {
	c := newCodec()
	root := ref.New(nil, wire.Id{Name: "counter"}, nil)
	chained := root.Get("Value")

	_, err := c.Encode(chained)
	require.Error(t, err)
}

func TestDecode_TrackedValueGetsInstalledIntoRemoteTable(t *testing.T) {
	c := newCodec()
	id := wire.Id{Value: 9, Side: wire.Remote}
	shape := wire.Shape{Type: "object", OwnKeys: []wire.KeyDesc{{Key: wire.VString("X"), Enumerable: true}}}
	vd := wire.VShaped(wire.KindObject, id, shape)

	v1, err := c.Decode(vd)
	require.NoError(t, err)
	r1, ok := v1.(*ref.Ref)
	require.True(t, ok)

	v2, err := c.Decode(vd)
	require.NoError(t, err)
	r2, ok := v2.(*ref.Ref)
	require.True(t, ok)

	require.Same(t, r1, r2, "decoding the same id twice must preserve proxy identity")
}

func TestDecode_UnknownKindFails(t *testing.T) {
	c := newCodec()
	_, err := c.Decode(wire.ValueDescription{Kind: "bogus"})
	require.Error(t, err)
}

func TestBuildShape_StructRespectsJSONTags(t *testing.T) {
	type example struct {
		Visible string `json:"visible"`
		Skipped string `json:"-"`
		Default int
		unexported string
	}
	shape := BuildShape(example{})
	names := keyNames(shape.OwnKeys)
	require.Contains(t, names, "visible")
	require.Contains(t, names, "Default")
	require.NotContains(t, names, "Skipped")
	require.NotContains(t, names, "unexported")
}

func TestBuildShape_MapKeysSortedForDeterminism(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	shape := BuildShape(m)
	require.Equal(t, []string{"a", "b", "c"}, keyNames(shape.OwnKeys))
}

func TestBuildShape_Function(t *testing.T) {
	shape := BuildShape(func() {})
	require.Equal(t, "function", shape.Type)
}

func TestBuildShape_Slice(t *testing.T) {
	shape := BuildShape([]int{1, 2, 3})
	require.Equal(t, []string{"0", "1", "2"}, keyNames(shape.OwnKeys))
}

func keyNames(keys []wire.KeyDesc) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Key.Str
	}
	return out
}
