package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/transport/inproc"
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

func newPair(t *testing.T, opts ...Option) (*Store, *Store) {
	t.Helper()
	a, b := inproc.NewPair()

	local, err := New(wire.Local, a, append([]Option{WithDoNotSyncGC(true)}, opts...)...)
	require.NoError(t, err)
	a.SetHandler(local)

	remote, err := New(wire.Remote, b, append([]Option{WithDoNotSyncGC(true)}, opts...)...)
	require.NoError(t, err)
	b.SetHandler(remote)

	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})
	return local, remote
}

func TestRequest_GetFieldAcrossPeers(t *testing.T) {
	local, remote := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{Value: 5}))

	proxy, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)

	v, err := proxy.Get("Value").Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, float64(5), v)
}

func TestRequest_CallMethodAcrossPeers(t *testing.T) {
	local, remote := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{Value: 10}))

	proxy, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)

	v, err := proxy.Get("Increment").Call(float64(5)).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, float64(15), v)
}

func TestRequest_SetPropertyAcrossPeers(t *testing.T) {
	local, remote := newPair(t)
	obj := &counter{Value: 1}
	require.NoError(t, local.Expose("counter", obj))

	proxy, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)

	err = proxy.Get("Value").Set(context.Background(), float64(42))
	require.NoError(t, err)
	require.Equal(t, 42, obj.Value)
}

func TestRequest_UnexposedNameFails(t *testing.T) {
	_, remote := newPair(t)
	_, err := remote.Request(context.Background(), "missing")
	require.Error(t, err)
}

func TestRequest_MethodErrorSurfacesAsRemoteError(t *testing.T) {
	local, remote := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{}))

	proxy, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)

	_, err = proxy.Get("Fail").Call().Await(context.Background())
	require.Error(t, err)
	var remoteErr *errs.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Contains(t, remoteErr.Message, "always fails")
}

func TestExpose_DuplicateNameOnSameStoreRejected(t *testing.T) {
	local, _ := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{}))
	err := local.Expose("counter", &counter{})
	require.Error(t, err)
}

func TestClose_RejectsFurtherRequests(t *testing.T) {
	local, remote := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{}))
	require.NoError(t, remote.Close())

	_, err := remote.Request(context.Background(), "counter")
	require.ErrorIs(t, err, errs.ErrClosed)
}

func TestSyncGC_RoundTripsWithoutError(t *testing.T) {
	local, remote := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{}))

	_, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)

	require.NoError(t, remote.SyncGC(context.Background()))
}

func TestGet_BuildsUnboundProxyWithoutRoundTrip(t *testing.T) {
	_, remote := newPair(t)
	proxy := remote.Get("counter")
	require.NotNil(t, proxy)
}

func TestRequest_ProxyIdentityPreservedAcrossRepeatedGets(t *testing.T) {
	local, remote := newPair(t)
	require.NoError(t, local.Expose("counter", &counter{Value: 1}))

	p1, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)
	p2, err := remote.Request(context.Background(), "counter")
	require.NoError(t, err)

	require.Same(t, p1, p2, "requesting the same exposed object twice while the first proxy is still reachable must return the same proxy instance")
}
