package ref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/remoteobj/internal/objectstore/wire"
)

type fakeRequester struct {
	evaluateFn func(ctx context.Context, path wire.Path) (interface{}, error)
	shapes     map[string]*wire.Shape
	noToString bool
}

func (f *fakeRequester) Evaluate(ctx context.Context, path wire.Path) (interface{}, error) {
	return f.evaluateFn(ctx, path)
}

func (f *fakeRequester) Encode(value interface{}) (wire.ValueDescription, error) {
	switch v := value.(type) {
	case string:
		return wire.VString(v), nil
	case int:
		return wire.VNumber(float64(v)), nil
	default:
		return wire.VNumber(0), nil
	}
}

func (f *fakeRequester) ShapeFor(root wire.Id) (*wire.Shape, bool) {
	s, ok := f.shapes[root.Key()]
	return s, ok
}

func (f *fakeRequester) NoToString() bool { return f.noToString }

func TestRef_GetCallChainRecordsPath(t *testing.T) {
	req := &fakeRequester{}
	root := New(req, wire.Id{Name: "counter"}, nil)

	chained := root.Get("Increment").Call(5)

	require.Len(t, chained.Path, 2)
	require.Equal(t, wire.OpGet, chained.Path[0].Op)
	require.Equal(t, wire.OpCall, chained.Path[1].Op)
	require.Equal(t, float64(5), chained.Path[1].Args[0].Num)
}

func TestRef_AwaitRootResolvesToItself(t *testing.T) {
	req := &fakeRequester{}
	root := New(req, wire.Id{Name: "counter"}, nil)

	v, err := root.Await(context.Background())
	require.NoError(t, err)
	require.Same(t, root, v)
}

func TestRef_AwaitWithPathEvaluatesAgainstRequester(t *testing.T) {
	var gotPath wire.Path
	req := &fakeRequester{evaluateFn: func(ctx context.Context, path wire.Path) (interface{}, error) {
		gotPath = path
		return "result", nil
	}}
	root := New(req, wire.Id{Name: "counter"}, nil)

	v, err := root.Get("Value").Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "result", v)
	require.Equal(t, wire.Id{Name: "counter"}, gotPath.Root)
	require.Len(t, gotPath.Segments, 1)
}

func TestRef_SetRequiresPrecedingGet(t *testing.T) {
	req := &fakeRequester{}
	root := New(req, wire.Id{Name: "counter"}, nil)

	err := root.Set(context.Background(), 5)
	require.Error(t, err)
}

func TestRef_SetCollapsesGetIntoTerminalSet(t *testing.T) {
	var gotPath wire.Path
	req := &fakeRequester{evaluateFn: func(ctx context.Context, path wire.Path) (interface{}, error) {
		gotPath = path
		return nil, nil
	}}
	root := New(req, wire.Id{Name: "counter"}, nil)

	err := root.Get("Value").Set(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, gotPath.Segments, 1)
	require.Equal(t, wire.OpSet, gotPath.Segments[0].Op)
	require.NotNil(t, gotPath.Segments[0].Value)
	require.Equal(t, float64(9), gotPath.Segments[0].Value.Num)
}

func TestRef_HasAndOwnKeysRequireBoundRef(t *testing.T) {
	req := &fakeRequester{}
	unbound := New(req, wire.Id{Name: "counter"}, nil)
	require.False(t, unbound.Has("X"))
	require.Nil(t, unbound.OwnKeys())

	shape := &wire.Shape{
		Type: "object",
		OwnKeys: []wire.KeyDesc{
			{Key: wire.VString("Value"), Enumerable: true},
		},
	}
	bound := New(req, wire.Id{Name: "counter"}, shape)
	require.True(t, bound.Has("Value"))
	require.False(t, bound.Has("Missing"))
	require.Equal(t, []string{"Value"}, bound.OwnKeys())
}

func TestRef_OwnKeyDescriptor(t *testing.T) {
	req := &fakeRequester{}
	shape := &wire.Shape{
		Type: "object",
		OwnKeys: []wire.KeyDesc{
			{Key: wire.VString("Value"), Enumerable: true},
		},
	}
	bound := New(req, wire.Id{Name: "counter"}, shape)

	desc, ok := bound.OwnKeyDescriptor("Value")
	require.True(t, ok)
	require.True(t, desc.Enumerable)
	require.True(t, desc.Configurable)

	_, ok = bound.OwnKeyDescriptor("Missing")
	require.False(t, ok)
}

func TestRef_InstanceOfWalksPrototypeChain(t *testing.T) {
	ctorID := wire.Id{Value: 1, Side: wire.Local}
	protoID := wire.Id{Value: 2, Side: wire.Local}

	req := &fakeRequester{shapes: map[string]*wire.Shape{
		protoID.Key(): {Type: "object"},
	}}

	ctorShape := &wire.Shape{Type: "function", FunctionPrototype: &protoID}
	ctor := New(req, ctorID, ctorShape)

	instanceShape := &wire.Shape{Type: "object", Prototype: &protoID}
	instance := New(req, wire.Id{Value: 3, Side: wire.Local}, instanceShape)

	require.True(t, instance.InstanceOf(ctor))

	other := New(req, wire.Id{Value: 4, Side: wire.Local}, &wire.Shape{Type: "object"})
	require.False(t, other.InstanceOf(ctor))
}

func TestRef_StringRespectsNoToString(t *testing.T) {
	plain := New(&fakeRequester{}, wire.Id{Name: "x"}, nil)
	require.Equal(t, "[object RemoteObject]", plain.String())

	suppressed := New(&fakeRequester{noToString: true}, wire.Id{Name: "x"}, nil)
	require.Contains(t, suppressed.String(), "Await")
}
