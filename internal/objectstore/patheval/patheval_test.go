package patheval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/remoteobj/internal/objectstore/codec"
	"github.com/viant/remoteobj/internal/objectstore/localtable"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

type counter struct {
	Value int
}

func (c *counter) Increment(by float64) int {
	c.Value += int(by)
	return c.Value
}

func (c *counter) Fail() (int, error) {
	return 0, errors.New("always fails")
}

func newEvaluator(t *testing.T) (*Evaluator, *localtable.Table, *codec.Codec) {
	t.Helper()
	local := localtable.New()
	c := codec.New(wire.Local, local, nil, false)
	return New(local, c), local, c
}

func encodeKey(t *testing.T, c *codec.Codec, key interface{}) wire.ValueDescription {
	t.Helper()
	vd, err := c.Encode(key)
	require.NoError(t, err)
	return vd
}

func TestEvaluate_GetStructField(t *testing.T) {
	ev, local, c := newEvaluator(t)
	require.NoError(t, local.Expose("obj", &counter{Value: 5}))

	key := encodeKey(t, c, "Value")
	path := wire.Path{Root: wire.Id{Name: "obj"}, Segments: []wire.Segment{
		{Op: wire.OpGet, Key: &key},
	}}

	v, err := ev.Evaluate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestEvaluate_CallMethod(t *testing.T) {
	ev, local, c := newEvaluator(t)
	require.NoError(t, local.Expose("obj", &counter{Value: 5}))

	getKey := encodeKey(t, c, "Increment")
	arg := encodeKey(t, c, float64(3))
	path := wire.Path{Root: wire.Id{Name: "obj"}, Segments: []wire.Segment{
		{Op: wire.OpGet, Key: &getKey},
		{Op: wire.OpCall, Args: []wire.ValueDescription{arg}},
	}}

	v, err := ev.Evaluate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 8, v)
}

func TestEvaluate_CallMethodReturningError(t *testing.T) {
	ev, local, c := newEvaluator(t)
	require.NoError(t, local.Expose("obj", &counter{}))

	getKey := encodeKey(t, c, "Fail")
	path := wire.Path{Root: wire.Id{Name: "obj"}, Segments: []wire.Segment{
		{Op: wire.OpGet, Key: &getKey},
		{Op: wire.OpCall},
	}}

	_, err := ev.Evaluate(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "always fails")
}

func TestEvaluate_SetTopLevelProperty(t *testing.T) {
	ev, local, c := newEvaluator(t)
	obj := &counter{Value: 1}
	require.NoError(t, local.Expose("obj", obj))

	key := encodeKey(t, c, "Value")
	val := encodeKey(t, c, float64(99))
	path := wire.Path{Root: wire.Id{Name: "obj"}, Segments: []wire.Segment{
		{Op: wire.OpSet, Key: &key, Value: &val},
	}}

	_, err := ev.Evaluate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 99, obj.Value)
}

func TestEvaluate_UnknownRootFails(t *testing.T) {
	ev, _, _ := newEvaluator(t)
	_, err := ev.Evaluate(context.Background(), wire.Path{Root: wire.Id{Name: "missing"}})
	require.Error(t, err)
}

func TestEvaluate_CallOnNonFunctionFails(t *testing.T) {
	ev, local, _ := newEvaluator(t)
	require.NoError(t, local.Expose("obj", &counter{}))

	path := wire.Path{Root: wire.Id{Name: "obj"}, Segments: []wire.Segment{
		{Op: wire.OpCall},
	}}

	_, err := ev.Evaluate(context.Background(), path)
	require.Error(t, err)
}

func TestEvaluate_GetOnMap(t *testing.T) {
	ev, local, c := newEvaluator(t)
	require.NoError(t, local.Expose("m", map[string]int{"a": 1}))

	key := encodeKey(t, c, "a")
	path := wire.Path{Root: wire.Id{Name: "m"}, Segments: []wire.Segment{
		{Op: wire.OpGet, Key: &key},
	}}

	v, err := ev.Evaluate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestEvaluate_GetOnSliceByIndex(t *testing.T) {
	ev, local, c := newEvaluator(t)
	require.NoError(t, local.Expose("s", []string{"x", "y", "z"}))

	key := encodeKey(t, c, float64(1))
	path := wire.Path{Root: wire.Id{Name: "s"}, Segments: []wire.Segment{
		{Op: wire.OpGet, Key: &key},
	}}

	v, err := ev.Evaluate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "y", v)
}

func TestEvaluate_ConstructDelegatesToCall(t *testing.T) {
	ev, local, c := newEvaluator(t)
	require.NoError(t, local.Expose("obj", &counter{Value: 0}))

	getKey := encodeKey(t, c, "Increment")
	arg := encodeKey(t, c, float64(4))
	path := wire.Path{Root: wire.Id{Name: "obj"}, Segments: []wire.Segment{
		{Op: wire.OpGet, Key: &getKey},
		{Op: wire.OpNew, Args: []wire.ValueDescription{arg}},
	}}

	v, err := ev.Evaluate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 4, v)
}
