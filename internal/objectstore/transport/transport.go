// Package transport defines the boundary between the ObjectStore Facade and
// whatever carries bytes between peers. Two connections are needed per pair
// of peers conceptually (each side can request of the other), but in
// practice one physical channel multiplexes both directions — these
// interfaces describe that multiplexed channel from the facade's point of
// view.
package transport

import (
	"context"

	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Peer is how a Store sends requests to the other side of a connection and
// waits for the matching response.
type Peer interface {
	// SendRemote asks the peer to evaluate params against its Local Table.
	SendRemote(ctx context.Context, params wire.RemoteRequestParams) (wire.RemoteResponseResult, error)
	// SendSyncGC runs one GC sync round against the peer.
	SendSyncGC(ctx context.Context, params wire.SyncGCRequestParams) (wire.SyncGCResult, error)
	// SendClose notifies the peer this side is shutting down.
	SendClose(ctx context.Context, reason string) error
}

// RequestHandler answers requests the peer sends us.
type RequestHandler interface {
	HandleRemote(ctx context.Context, params wire.RemoteRequestParams) (wire.RemoteResponseResult, error)
	HandleSyncGC(ctx context.Context, params wire.SyncGCRequestParams) (wire.SyncGCResult, error)
	HandleClose(ctx context.Context, reason string)
}

// Notifiable receives out-of-band connection lifecycle signals.
type Notifiable interface {
	OnDisconnect(err error)
}

// Disconnectable tears down the underlying channel.
type Disconnectable interface {
	Disconnect() error
}

// Connection is the full surface a Store needs from a wired-up transport:
// send to the peer, answer the peer's requests, and be told when the wire
// itself goes away.
type Connection interface {
	Peer
	Disconnectable
}
