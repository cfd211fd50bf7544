// Package ref implements the Proxy Engine. Go has no dynamic interception
// primitive (no JS Proxy trap table), so a single Ref type stands in for
// both proxy flavors: an unbound Ref carries only a deferred path, a bound
// Ref additionally carries a Shape and answers reflection queries. This
// mirrors genai/tool/proxy/proxy.go's reflect-based delegate-and-build style
// already used elsewhere in this codebase.
package ref

import (
	"context"
	"fmt"

	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Requester is everything a Ref needs from its owning ObjectStore to
// materialize a path. It is implemented by internal/objectstore/store; Ref
// itself stays decoupled from the facade, store/codec/gc to avoid an import
// cycle (store depends on ref, not the reverse).
type Requester interface {
	// Evaluate sends path to the owner and decodes the resulting value.
	Evaluate(ctx context.Context, path wire.Path) (interface{}, error)
	// Encode turns a local value into a wire description, registering it
	// in the Local Table (and extending lifetime) as a side effect.
	Encode(value interface{}) (wire.ValueDescription, error)
	// ShapeFor returns the cached shape for a bound ref's root, if any.
	ShapeFor(root wire.Id) (*wire.Shape, bool)
	// NoToString reports the store's `noToString` configuration option.
	NoToString() bool
}

// Ref is the single proxy type for both unbound and bound proxies. A nil
// shape means unbound.
type Ref struct {
	Root      wire.Id
	Path      []wire.Segment
	requester Requester
	shape     *wire.Shape
}

// New constructs the root Ref for id, bound if shape is non-nil.
func New(requester Requester, root wire.Id, shape *wire.Shape) *Ref {
	return &Ref{Root: root, requester: requester, shape: shape}
}

// Bound reports whether this Ref carries a resolved shape description.
func (r *Ref) Bound() bool { return r.shape != nil }

func (r *Ref) extend(seg wire.Segment) *Ref {
	path := make([]wire.Segment, len(r.Path), len(r.Path)+1)
	copy(path, r.Path)
	path = append(path, seg)
	return &Ref{Root: r.Root, Path: path, requester: r.requester}
}

// Get returns a new unbound Ref with get(key) appended, recording the
// property-read interception for later evaluation.
func (r *Ref) Get(key interface{}) *Ref {
	kv, err := r.requester.Encode(key)
	if err != nil {
		// Key encoding failures surface at Await time via a sentinel
		// segment the evaluator rejects; keeping Get infallible matches the
		// synchronous, error-free proxy-chaining contract.
		kv = wire.ValueDescription{Kind: wire.Kind("unencodable"), Str: fmt.Sprintf("<unencodable key: %v>", err)}
	}
	return r.extend(wire.Segment{Op: wire.OpGet, Key: &kv})
}

// Call returns a new unbound Ref with call(args) appended.
func (r *Ref) Call(args ...interface{}) *Ref {
	return r.extend(wire.Segment{Op: wire.OpCall, Args: r.encodeArgs(args)})
}

// New returns a new unbound Ref with new(args) appended.
func (r *Ref) New(args ...interface{}) *Ref {
	return r.extend(wire.Segment{Op: wire.OpNew, Args: r.encodeArgs(args)})
}

func (r *Ref) encodeArgs(args []interface{}) []wire.ValueDescription {
	out := make([]wire.ValueDescription, len(args))
	for i, a := range args {
		v, err := r.requester.Encode(a)
		if err != nil {
			v = wire.VString(fmt.Sprintf("<unencodable arg: %v>", err))
		}
		out[i] = v
	}
	return out
}

// Set collapses the immediately preceding get(key) segment into a terminal
// set(key, value). It fails with a protocol error if there is no preceding
// get — the caller tried to write to a root or a call result, which has no
// key to assign to.
func (r *Ref) Set(ctx context.Context, value interface{}) error {
	if len(r.Path) == 0 || r.Path[len(r.Path)-1].Op != wire.OpGet {
		return errs.Protocolf("set must follow a get segment")
	}
	last := r.Path[len(r.Path)-1]
	vv, err := r.requester.Encode(value)
	if err != nil {
		return err
	}
	path := make([]wire.Segment, len(r.Path)-1, len(r.Path))
	copy(path, r.Path[:len(r.Path)-1])
	path = append(path, wire.Segment{Op: wire.OpSet, Key: last.Key, Value: &vv})

	_, err = r.requester.Evaluate(ctx, wire.Path{Root: r.Root, Segments: path})
	return err
}

// Await materializes the recorded path by sending it as a request to the
// owner and decoding the result — Go's stand-in for JS await/thenable
// interception on an unbound proxy.
func (r *Ref) Await(ctx context.Context) (interface{}, error) {
	if len(r.Path) == 0 {
		// A root Ref (nothing deferred yet) resolves to itself.
		return r, nil
	}
	return r.requester.Evaluate(ctx, wire.Path{Root: r.Root, Segments: r.Path})
}

// KeyDescriptor mirrors the wire own-key descriptor: {configurable: true,
// enumerable} for keys present in the shape.
type KeyDescriptor struct {
	Configurable bool
	Enumerable   bool
}

// Has reports whether key is reachable on this bound Ref, either as an own
// key or via the prototype chain.
func (r *Ref) Has(key string) bool {
	if !r.Bound() {
		return false
	}
	for _, k := range r.shape.OwnKeys {
		if k.Key.Kind == wire.KindString && k.Key.Str == key {
			return true
		}
	}
	for _, k := range r.shape.HasKeys {
		if k.Key.Kind == wire.KindString && k.Key.Str == key {
			return true
		}
	}
	return false
}

// OwnKeys returns the ordered own-key list for a bound Ref.
func (r *Ref) OwnKeys() []string {
	if !r.Bound() {
		return nil
	}
	out := make([]string, 0, len(r.shape.OwnKeys))
	for _, k := range r.shape.OwnKeys {
		if k.Key.Kind == wire.KindString {
			out = append(out, k.Key.Str)
		}
	}
	return out
}

// OwnKeyDescriptor returns the descriptor for key if it is an own key.
func (r *Ref) OwnKeyDescriptor(key string) (KeyDescriptor, bool) {
	if !r.Bound() {
		return KeyDescriptor{}, false
	}
	for _, k := range r.shape.OwnKeys {
		if k.Key.Kind == wire.KindString && k.Key.Str == key {
			return KeyDescriptor{Configurable: true, Enumerable: k.Enumerable}, true
		}
	}
	return KeyDescriptor{}, false
}

// Prototype decodes and returns the prototype reference for a bound Ref, or
// nil if the shape carries no prototype id. On an unbound Ref it returns
// errs.ErrUnbound.
func (r *Ref) Prototype(ctx context.Context) (*Ref, error) {
	if !r.Bound() {
		return nil, errs.ErrUnbound
	}
	if r.shape.Prototype == nil {
		return nil, nil
	}
	v, err := r.requester.Evaluate(ctx, wire.Path{Root: *r.shape.Prototype})
	if err != nil {
		return nil, err
	}
	if rr, ok := v.(*Ref); ok {
		return rr, nil
	}
	return nil, nil
}

// InstanceOf walks this Ref's Prototype chain looking for ctor's
// FunctionPrototype, enabling cross-peer `instanceof`. Shapes built by
// codec.BuildShape carry neither Prototype nor FunctionPrototype under any
// prototype policy, so for Refs decoded from them InstanceOf reports false.
func (r *Ref) InstanceOf(ctor *Ref) bool {
	if !r.Bound() || ctor == nil || !ctor.Bound() || ctor.shape.FunctionPrototype == nil {
		return false
	}
	proto := r.shape.Prototype
	for proto != nil {
		if proto.Key() == ctor.shape.FunctionPrototype.Key() {
			return true
		}
		shape, ok := r.requester.ShapeFor(*proto)
		if !ok {
			return false
		}
		proto = shape.Prototype
	}
	return false
}

// String implements the RemoteObject stringification sentinel:
// synchronously returns "[object RemoteObject]" unless the store's
// noToString option suppresses it, matching the `+ ""` coercion behavior the
// JS original relies on. Go's fmt.Stringer cannot itself degrade into
// "return an unbound proxy requiring await" the way a JS trap can, so when
// NoToString is set this instead returns a marker string telling the caller
// to Await — a deliberate divergence from the JS semantics, since a plain
// string return can't itself carry an outstanding async requirement.
func (r *Ref) String() string {
	if r.requester != nil && r.requester.NoToString() {
		return "[unbound RemoteObject: call Await(ctx) before stringifying]"
	}
	return "[object RemoteObject]"
}
