// Package ws carries ObjectStore traffic over a github.com/gorilla/websocket
// connection: one JSON frame per message, a mutex-guarded connection plus a
// blocking read loop dispatching frames, following the
// genai/llm/provider/openai.backendWSState dial/write/read-loop idiom
// already used elsewhere in this codebase for a framed JSON protocol over a
// gorilla/websocket connection.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/viant/jsonrpc"

	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/transport"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// frame is the single JSON shape written to the socket in both directions.
// A request carries Method+ID (and Params); a response carries ID+Result
// or ID+Error; a close notification carries Method only, no ID. Error is a
// *jsonrpc.Error rather than a bare string so a transport-level failure
// (bad params, unmarshal failure, closed peer) carries the same
// code/message/data shape jsonrpc.Error gives adapter/mcp.Client's own
// request handlers — distinct from an application-level ErrorDescription,
// which travels inside Result and is this package's own concern.
type frame struct {
	ID     uint64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *jsonrpc.Error  `json:"error,omitempty"`
}

// Conn adapts a *websocket.Conn into a transport.Connection.
type Conn struct {
	conn   *websocket.Conn
	nextID uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan frame

	handlerMu sync.RWMutex
	handler   transport.RequestHandler

	notify transport.Notifiable
}

// New wraps conn and starts its read loop. Call SetHandler before any
// traffic is expected to answer inbound requests.
func New(conn *websocket.Conn, notify transport.Notifiable) *Conn {
	c := &Conn{conn: conn, pending: make(map[uint64]chan frame), notify: notify}
	go c.readLoop()
	return c
}

// SetHandler wires the handler that answers requests arriving from the peer.
func (c *Conn) SetHandler(h transport.RequestHandler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

func (c *Conn) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.failPending(err)
			if c.notify != nil {
				c.notify.OnDisconnect(err)
			}
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f frame) {
	if f.Method == "" {
		// Response to one of our own pending requests.
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		if ok {
			delete(c.pending, f.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- f
		}
		return
	}

	c.handlerMu.RLock()
	h := c.handler
	c.handlerMu.RUnlock()
	if h == nil {
		return
	}

	switch f.Method {
	case wire.MethodClose:
		var reason string
		_ = json.Unmarshal(f.Params, &reason)
		h.HandleClose(context.Background(), reason)
	case wire.MethodRemote:
		var params wire.RemoteRequestParams
		if err := json.Unmarshal(f.Params, &params); err != nil {
			c.writeFrame(frame{ID: f.ID, Error: jsonrpc.NewInvalidRequest(err.Error(), nil)})
			return
		}
		res, err := h.HandleRemote(context.Background(), params)
		c.writeResult(f.ID, res, err)
	case wire.MethodSyncGC:
		var params wire.SyncGCRequestParams
		if err := json.Unmarshal(f.Params, &params); err != nil {
			c.writeFrame(frame{ID: f.ID, Error: jsonrpc.NewInvalidRequest(err.Error(), nil)})
			return
		}
		res, err := h.HandleSyncGC(context.Background(), params)
		c.writeResult(f.ID, res, err)
	default:
		c.writeFrame(frame{ID: f.ID, Error: jsonrpc.NewMethodNotFound(fmt.Sprintf("unknown method %q", f.Method), nil)})
	}
}

func (c *Conn) writeResult(id uint64, payload interface{}, err error) {
	if err != nil {
		c.writeFrame(frame{ID: id, Error: jsonrpc.NewInternalError(err.Error(), nil)})
		return
	}
	body, merr := json.Marshal(payload)
	if merr != nil {
		c.writeFrame(frame{ID: id, Error: jsonrpc.NewInternalError(merr.Error(), nil)})
		return
	}
	c.writeFrame(frame{ID: id, Result: body})
}

func (c *Conn) writeFrame(f frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, body)
}

func (c *Conn) call(ctx context.Context, method string, params interface{}) (frame, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	body, err := json.Marshal(params)
	if err != nil {
		return frame{}, err
	}

	reply := make(chan frame, 1)
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()

	if err := c.writeFrame(frame{ID: id, Method: method, Params: body}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return frame{}, err
	}

	select {
	case f := <-reply:
		if f.Error != nil {
			return frame{}, fmt.Errorf("%s", f.Error.Message)
		}
		return f, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return frame{}, ctx.Err()
	}
}

func (c *Conn) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- frame{Error: jsonrpc.NewInternalError(err.Error(), nil)}
		delete(c.pending, id)
	}
}

// SendRemote implements transport.Peer.
func (c *Conn) SendRemote(ctx context.Context, params wire.RemoteRequestParams) (wire.RemoteResponseResult, error) {
	f, err := c.call(ctx, wire.MethodRemote, params)
	if err != nil {
		return wire.RemoteResponseResult{}, err
	}
	var res wire.RemoteResponseResult
	if err := json.Unmarshal(f.Result, &res); err != nil {
		return wire.RemoteResponseResult{}, err
	}
	return res, nil
}

// SendSyncGC implements transport.Peer.
func (c *Conn) SendSyncGC(ctx context.Context, params wire.SyncGCRequestParams) (wire.SyncGCResult, error) {
	f, err := c.call(ctx, wire.MethodSyncGC, params)
	if err != nil {
		return wire.SyncGCResult{}, err
	}
	var res wire.SyncGCResult
	if err := json.Unmarshal(f.Result, &res); err != nil {
		return wire.SyncGCResult{}, err
	}
	return res, nil
}

// SendClose implements transport.Peer: a notification, no response expected.
func (c *Conn) SendClose(ctx context.Context, reason string) error {
	body, err := json.Marshal(reason)
	if err != nil {
		return err
	}
	return c.writeFrame(frame{Method: wire.MethodClose, Params: body})
}

// Disconnect implements transport.Disconnectable.
func (c *Conn) Disconnect() error {
	c.failPending(errs.ErrClosed)
	return c.conn.Close()
}

var _ transport.Connection = (*Conn)(nil)
