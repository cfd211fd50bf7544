// Package inproc provides a paired in-process Connection: two ends of the
// same Go process talking over buffered channels instead of a socket. It is
// the transport the store package tests use to exercise a full two-peer
// exchange without a network (the demo binary uses transport/ws).
package inproc

import (
	"context"
	"sync"

	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/transport"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

type call struct {
	method string
	remote *wire.RemoteRequestParams
	syncgc *wire.SyncGCRequestParams
	close  *string
	reply  chan result
}

type result struct {
	remote *wire.RemoteResponseResult
	syncgc *wire.SyncGCResult
	err    error
}

// End is one side of a paired in-process connection.
type End struct {
	out chan call
	in  chan call

	mu      sync.RWMutex
	handler transport.RequestHandler
	closed  bool
}

// NewPair builds two connected Ends; messages sent on one arrive as
// requests on the other.
func NewPair() (*End, *End) {
	ab := make(chan call, 16)
	ba := make(chan call, 16)
	a := &End{out: ab, in: ba}
	b := &End{out: ba, in: ab}
	return a, b
}

// SetHandler wires the handler that answers requests arriving from the
// peer, and starts the dispatch loop. Must be called once before use.
func (e *End) SetHandler(h transport.RequestHandler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
	go e.dispatchLoop()
}

func (e *End) dispatchLoop() {
	for c := range e.in {
		e.mu.RLock()
		h := e.handler
		closed := e.closed
		e.mu.RUnlock()
		if closed || h == nil {
			if c.reply != nil {
				c.reply <- result{err: errs.ErrClosed}
			}
			continue
		}
		switch c.method {
		case wire.MethodRemote:
			res, err := h.HandleRemote(context.Background(), *c.remote)
			c.reply <- result{remote: &res, err: err}
		case wire.MethodSyncGC:
			res, err := h.HandleSyncGC(context.Background(), *c.syncgc)
			c.reply <- result{syncgc: &res, err: err}
		case wire.MethodClose:
			h.HandleClose(context.Background(), *c.close)
		}
	}
}

// SendRemote implements transport.Peer.
func (e *End) SendRemote(ctx context.Context, params wire.RemoteRequestParams) (wire.RemoteResponseResult, error) {
	reply := make(chan result, 1)
	select {
	case e.out <- call{method: wire.MethodRemote, remote: &params, reply: reply}:
	case <-ctx.Done():
		return wire.RemoteResponseResult{}, ctx.Err()
	}
	select {
	case r := <-reply:
		if r.err != nil {
			return wire.RemoteResponseResult{}, r.err
		}
		return *r.remote, nil
	case <-ctx.Done():
		return wire.RemoteResponseResult{}, ctx.Err()
	}
}

// SendSyncGC implements transport.Peer.
func (e *End) SendSyncGC(ctx context.Context, params wire.SyncGCRequestParams) (wire.SyncGCResult, error) {
	reply := make(chan result, 1)
	select {
	case e.out <- call{method: wire.MethodSyncGC, syncgc: &params, reply: reply}:
	case <-ctx.Done():
		return wire.SyncGCResult{}, ctx.Err()
	}
	select {
	case r := <-reply:
		if r.err != nil {
			return wire.SyncGCResult{}, r.err
		}
		return *r.syncgc, nil
	case <-ctx.Done():
		return wire.SyncGCResult{}, ctx.Err()
	}
}

// SendClose implements transport.Peer: fire-and-forget, matching
// CloseNotification's notification (not request) semantics.
func (e *End) SendClose(ctx context.Context, reason string) error {
	select {
	case e.out <- call{method: wire.MethodClose, close: &reason}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect implements transport.Disconnectable.
func (e *End) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.out)
	return nil
}

var _ transport.Connection = (*End)(nil)
