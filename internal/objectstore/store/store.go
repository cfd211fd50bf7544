// Package store implements the ObjectStore Facade: the public surface an
// application uses to expose values, request the peer's values, and drive
// the message loop. It composes every other internal/objectstore package
// the way internal/mcp/manager.Manager composes a client pool: one
// functional-option constructor, one guarding mutex, a handful of
// collaborators wired together at New time.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/viant/remoteobj/internal/objectstore/codec"
	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/gc"
	"github.com/viant/remoteobj/internal/objectstore/localtable"
	"github.com/viant/remoteobj/internal/objectstore/patheval"
	"github.com/viant/remoteobj/internal/objectstore/ref"
	"github.com/viant/remoteobj/internal/objectstore/remotetable"
	"github.com/viant/remoteobj/internal/objectstore/telemetry"
	"github.com/viant/remoteobj/internal/objectstore/transport"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Options configures a Store. Defaults: RemoteObjectPrototype is
// PrototypeFull and GC runs on its own schedule. RemoteObjectPrototype is
// recorded but not read by the codec: shapes carry no prototype or hasKeys
// list under any policy.
type Options struct {
	RemoteObjectPrototype      wire.PrototypePolicy
	RemoteError                string // "value" or "newError"; both return an *errs.RemoteError whose Cause is the decoded remote value, never the bare *ref.Ref
	NoToString                 bool
	DoNotSyncGC                bool
	ScheduleGCAfterTime        time.Duration
	ScheduleGCAfterObjectCount int
	RequestLatency             time.Duration
}

// Option configures a Store at construction time. It can return an error,
// bubbled up by New.
type Option func(*Store) error

func WithPrototypePolicy(p wire.PrototypePolicy) Option {
	return func(s *Store) error { s.opts.RemoteObjectPrototype = p; return nil }
}

func WithRemoteError(mode string) Option {
	return func(s *Store) error { s.opts.RemoteError = mode; return nil }
}

func WithNoToString(v bool) Option {
	return func(s *Store) error { s.opts.NoToString = v; return nil }
}

func WithDoNotSyncGC(v bool) Option {
	return func(s *Store) error { s.opts.DoNotSyncGC = v; return nil }
}

func WithScheduleGCAfterTime(d time.Duration) Option {
	return func(s *Store) error { s.opts.ScheduleGCAfterTime = d; return nil }
}

func WithScheduleGCAfterObjectCount(n int) Option {
	return func(s *Store) error { s.opts.ScheduleGCAfterObjectCount = n; return nil }
}

func WithRequestLatency(d time.Duration) Option {
	return func(s *Store) error { s.opts.RequestLatency = d; return nil }
}

// Store is one peer's ObjectStore: a Local Table of values it owns, a
// Remote Table of proxies for the other peer's values, and the glue that
// turns inbound/outbound paths into actual calls.
type Store struct {
	peer transport.Connection

	local  *localtable.Table
	remote *remotetable.Table
	codec  *codec.Codec
	eval   *patheval.Evaluator
	gc     *gc.Coordinator

	opts Options

	mu     sync.Mutex
	closed bool
}

// New builds a Store wired to peer. side picks this peer's Id namespace for
// values it registers.
func New(side wire.Side, peer transport.Connection, opts ...Option) (*Store, error) {
	s := &Store{
		peer: peer,
		opts: Options{
			RemoteObjectPrototype: wire.PrototypeFull,
			RemoteError:           "newError",
			ScheduleGCAfterTime:   5 * time.Second,
		},
	}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, errs.Protocolf("objectstore option: %v", err)
		}
	}

	s.local = localtable.New()
	s.remote = remotetable.New(256)
	s.codec = codec.New(side, s.local, s.remote, s.opts.NoToString)
	s.codec.SetRequester(s)
	s.eval = patheval.New(s.local, s.codec)
	s.gc = gc.New(s.remote, s.local, peerSender{s.peer}, s.opts.ScheduleGCAfterTime, s.opts.ScheduleGCAfterObjectCount)

	if !s.opts.DoNotSyncGC {
		s.gc.Start(context.Background())
	}
	return s, nil
}

// peerSender adapts transport.Peer's SendSyncGC to gc.Sender, routing a sync
// round to the actual peer on the wire rather than looping back into this
// Store.
type peerSender struct {
	peer transport.Peer
}

func (p peerSender) SyncGC(ctx context.Context, req wire.SyncGCRequestParams) (wire.SyncGCResult, error) {
	return p.peer.SendSyncGC(ctx, req)
}

// Expose registers value under name so the peer can Request it by that
// name. name/value binding is permanent for the life of the Store.
func (s *Store) Expose(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.ErrClosed
	}
	if err := s.local.Expose(name, value); err != nil {
		return err
	}
	s.local.SetExposedShape(name, codec.BuildShape(value))
	return nil
}

// Request asks the peer for its value exposed as name, returning a bound
// proxy over it.
func (s *Store) Request(ctx context.Context, name string) (*ref.Ref, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errs.ErrClosed
	}

	root := wire.Id{Name: name}
	v, err := s.Evaluate(ctx, wire.Path{Root: root})
	if err != nil {
		return nil, err
	}
	r, ok := v.(*ref.Ref)
	if !ok {
		return nil, errs.Protocolf("%q did not resolve to an object", name)
	}
	return r, nil
}

// Get returns an unbound proxy rooted at name without any network
// round-trip; Get/Call on it only extend the path, and the first Await or
// Set on it (or on a Ref chained from it) sends the actual request.
func (s *Store) Get(name string) *ref.Ref {
	return ref.New(s, wire.Id{Name: name}, nil)
}

// SyncGC triggers one GC sync round immediately instead of waiting for the
// periodic schedule.
func (s *Store) SyncGC(ctx context.Context) error {
	return s.gc.RunNow(ctx)
}

// Close notifies the peer and tears down this Store's background work.
// Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.gc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.peer.SendClose(ctx, "store closed")
	err := s.peer.Disconnect()
	telemetry.Publish(telemetry.StoreClosed, nil)
	return err
}

// --- ref.Requester -----------------------------------------------------

// Evaluate implements ref.Requester: sends path to the peer and decodes the
// result. Every path goes to the peer, including one rooted at an id this
// Store owns.
func (s *Store) Evaluate(ctx context.Context, path wire.Path) (interface{}, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errs.ErrClosed
	}

	if s.opts.RequestLatency > 0 {
		select {
		case <-time.After(s.opts.RequestLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	telemetry.Publish(telemetry.RequestSent, path)
	res, err := s.peer.SendRemote(ctx, wire.RemoteRequestParams{Root: path.Root, Path: path.Segments})
	if err != nil {
		return nil, err
	}
	telemetry.Publish(telemetry.ResponseReceived, res)

	if res.Error != nil {
		return nil, s.reconstructError(*res.Error)
	}
	if res.Value == nil {
		return nil, nil
	}
	return s.codec.Decode(*res.Value)
}

// Encode implements ref.Requester.
func (s *Store) Encode(value interface{}) (wire.ValueDescription, error) {
	return s.codec.Encode(value)
}

// ShapeFor implements ref.Requester, answering only for ids this peer owns.
func (s *Store) ShapeFor(root wire.Id) (*wire.Shape, bool) {
	if root.Named() {
		return s.local.ExposedShape(root.Name)
	}
	return s.local.Shape(root.Value)
}

// NoToString implements ref.Requester.
func (s *Store) NoToString() bool { return s.opts.NoToString }

func (s *Store) reconstructError(desc wire.ErrorDescription) error {
	cause, _ := s.codec.Decode(desc.Value)
	if s.opts.RemoteError == "newError" {
		return &errs.RemoteError{Message: desc.Message, Name: desc.Name, Stack: desc.Stack, Cause: cause}
	}
	if r, ok := cause.(*ref.Ref); ok {
		return &errs.RemoteError{Message: desc.Message, Name: desc.Name, Stack: desc.Stack, Cause: r}
	}
	return &errs.RemoteError{Message: desc.Message, Name: desc.Name, Stack: desc.Stack, Cause: cause}
}

// --- transport.RequestHandler -------------------------------------------

// HandleRemote answers a path evaluation request from the peer.
func (s *Store) HandleRemote(ctx context.Context, params wire.RemoteRequestParams) (wire.RemoteResponseResult, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return wire.RemoteResponseResult{}, errs.ErrClosed
	}

	result, err := s.eval.Evaluate(ctx, wire.Path{Root: params.Root, Segments: params.Path})
	if err != nil {
		telemetry.Publish(telemetry.ProtocolError, err.Error())
		desc := s.describeError(err)
		return wire.RemoteResponseResult{Error: &desc}, nil
	}
	vd, err := s.codec.Encode(result)
	if err != nil {
		desc := s.describeError(err)
		return wire.RemoteResponseResult{Error: &desc}, nil
	}
	return wire.RemoteResponseResult{Value: &vd}, nil
}

func (s *Store) describeError(err error) wire.ErrorDescription {
	vd, encErr := s.codec.Encode(err)
	if encErr != nil || vd.Error == nil {
		return wire.ErrorDescription{Value: wire.VString(err.Error()), Message: err.Error()}
	}
	return *vd.Error
}

// HandleSyncGC answers a GC sync round initiated by the peer against our
// own Local Table.
func (s *Store) HandleSyncGC(ctx context.Context, params wire.SyncGCRequestParams) (wire.SyncGCResult, error) {
	for _, id := range params.NewItems {
		s.gc.NoteReceived(id)
	}
	return gc.HandleSyncGC(s.local, params, time.Now()), nil
}

// HandleClose marks this Store closed when the peer notifies it is
// shutting down.
func (s *Store) HandleClose(ctx context.Context, reason string) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	telemetry.Publish(telemetry.StoreClosed, reason)
}

// --- byte-oriented convenience API for custom, non-typed transports -----

type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewMessage accepts a unilateral notification (only `close` today) encoded
// as a JSON envelope, for transports that hand the Store raw bytes instead
// of using the typed inproc/ws adapters.
func (s *Store) NewMessage(payload []byte) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return errs.Protocolf("malformed message: %v", err)
	}
	if env.Method != wire.MethodClose {
		return errs.Protocolf("unexpected notification method %q", env.Method)
	}
	var reason string
	_ = json.Unmarshal(env.Params, &reason)
	s.HandleClose(context.Background(), reason)
	return nil
}

// HandleRequest accepts a request/response-shaped JSON envelope and returns
// the marshaled result, for transports that hand the Store raw bytes.
func (s *Store) HandleRequest(ctx context.Context, payload []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errs.Protocolf("malformed request: %v", err)
	}
	switch env.Method {
	case wire.MethodRemote:
		var params wire.RemoteRequestParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return nil, err
		}
		res, err := s.HandleRemote(ctx, params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	case wire.MethodSyncGC:
		var params wire.SyncGCRequestParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return nil, err
		}
		res, err := s.HandleSyncGC(ctx, params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	default:
		return nil, errs.Protocolf("unknown request method %q", env.Method)
	}
}

var _ ref.Requester = (*Store)(nil)
var _ transport.RequestHandler = (*Store)(nil)
