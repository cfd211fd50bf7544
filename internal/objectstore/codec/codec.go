// Package codec implements the Value Codec: the Encode/Decode pair that
// turns Go values into wire.ValueDescription and back, driving the Local
// Table on encode and the Remote Table on decode. Shape construction
// reflects over the runtime value the way
// genai/tool/adapter/mcp/service_adapter.go's objectSchema/schemaForType
// reflects over a type to build a JSON Schema, adapted here to build a
// wire.Shape instead.
package codec

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"

	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/localtable"
	"github.com/viant/remoteobj/internal/objectstore/ref"
	"github.com/viant/remoteobj/internal/objectstore/remotetable"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Codec translates between Go values and wire descriptions for one
// connection. It owns neither table outright (Store does) but drives both:
// Encode registers owned values in the Local Table, Decode installs proxies
// into the Remote Table.
type Codec struct {
	side       wire.Side
	local      *localtable.Table
	remote     *remotetable.Table
	requester  ref.Requester
	noToString bool
}

// New builds a Codec for one connection. side names which Id.Side this
// peer assigns to values it owns; requester is set after construction via
// SetRequester once the owning Store exists, since Store itself implements
// ref.Requester and is constructed using this Codec.
func New(side wire.Side, local *localtable.Table, remote *remotetable.Table, noToString bool) *Codec {
	return &Codec{side: side, local: local, remote: remote, noToString: noToString}
}

// SetRequester wires the Store back in after construction.
func (c *Codec) SetRequester(r ref.Requester) { c.requester = r }

// Encode turns a Go value into its wire description, registering it in the
// Local Table (and extending its lifetime) when it is gc-tracked.
func (c *Codec) Encode(value interface{}) (wire.ValueDescription, error) {
	switch v := value.(type) {
	case nil:
		return wire.VUndefined(), nil
	case wire.ValueDescription:
		return v, nil
	case string:
		return wire.VString(v), nil
	case bool:
		return wire.VBool(v), nil
	case *big.Int:
		return wire.VBigInt(v), nil
	case float32:
		return wire.VNumber(float64(v)), nil
	case float64:
		return wire.VNumber(v), nil
	case int:
		return wire.VNumber(float64(v)), nil
	case int64:
		return wire.VNumber(float64(v)), nil
	case error:
		return c.encodeError(v)
	case *ref.Ref:
		return c.encodeRef(v)
	default:
		return c.encodeObject(value)
	}
}

func (c *Codec) encodeError(err error) (wire.ValueDescription, error) {
	vv, encErr := c.encodeObject(err)
	if encErr != nil {
		return wire.ValueDescription{}, encErr
	}
	return wire.VError(wire.ErrorDescription{
		Value:   vv,
		Message: err.Error(),
		Name:    fmt.Sprintf("%T", err),
		Stack:   errs.RemoteStacktrace(err),
	}), nil
}

// encodeRef encodes a proxy this peer is handing back to its owner (the
// common "pass a remote value right back" case). Only a root reference (no
// deferred path) can be encoded this way — anything else should have been
// Awaited first.
func (c *Codec) encodeRef(r *ref.Ref) (wire.ValueDescription, error) {
	if len(r.Path) != 0 {
		return wire.ValueDescription{}, errs.Protocolf("cannot encode a ref with an unresolved path; await it first")
	}
	return wire.VRef(r.Root, nil), nil
}

// encodeObject registers value in the Local Table and attaches its Shape,
// building one on first sight.
func (c *Codec) encodeObject(value interface{}) (wire.ValueDescription, error) {
	num, isNew := c.local.Register(value)
	id := wire.Id{Side: c.side, Value: num}
	c.local.Touch(num)

	shape, ok := c.local.Shape(num)
	if !ok || isNew {
		built := BuildShape(value)
		c.local.SetShape(num, built)
		shape, _ = c.local.Shape(num)
	}

	kind := wire.KindObject
	if shape != nil && shape.Type == "function" {
		kind = wire.KindFunction
	}
	return wire.VShaped(kind, id, *shape), nil
}

// Decode turns a wire description back into a Go-side value: a primitive,
// a *ref.Ref materialized (or fetched, preserving identity) from the Remote
// Table, or a reconstructed error.
func (c *Codec) Decode(vd wire.ValueDescription) (interface{}, error) {
	switch vd.Kind {
	case wire.KindUndefined:
		return nil, nil
	case wire.KindNull:
		return nil, nil
	case wire.KindString:
		return vd.Str, nil
	case wire.KindNumber:
		return vd.Num, nil
	case wire.KindBoolean:
		return vd.Bool, nil
	case wire.KindBigInt:
		n, ok := new(big.Int).SetString(vd.Str, 10)
		if !ok {
			return nil, errs.Protocolf("malformed bigint literal %q", vd.Str)
		}
		return n, nil
	case wire.KindError:
		if vd.Error == nil {
			return nil, errs.Protocolf("error description missing payload")
		}
		cause, _ := c.Decode(vd.Error.Value)
		return &errs.RemoteError{Message: vd.Error.Message, Name: vd.Error.Name, Stack: vd.Error.Stack, Cause: cause}, nil
	case wire.KindRef, wire.KindObject, wire.KindFunction, wire.KindSymbol:
		return c.decodeTracked(vd)
	default:
		return nil, errs.Protocolf("unknown value kind %q", vd.Kind)
	}
}

func (c *Codec) decodeTracked(vd wire.ValueDescription) (interface{}, error) {
	if vd.Id == nil {
		return nil, errs.Protocolf("gc-tracked value missing id")
	}
	if r, ok := c.remote.Get(*vd.Id); ok {
		return r, nil
	}
	r := ref.New(c.requester, *vd.Id, vd.Shape)
	c.remote.Install(*vd.Id, r)
	return r, nil
}

// BuildShape reflects over value's runtime type to build the Shape that
// describes it: struct fields (respecting json tags), map string keys
// (sorted for determinism, since Go map iteration order is randomized and
// spec ordering is not), slice indices, or a bare function marker.
func BuildShape(value interface{}) wire.Shape {
	methods := methodKeys(reflect.TypeOf(value))

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Func:
		return wire.Shape{Type: "function"}
	case reflect.Struct:
		return wire.Shape{Type: "object", OwnKeys: append(structKeys(rv.Type()), methods...)}
	case reflect.Map:
		return wire.Shape{Type: "object", OwnKeys: mapKeys(rv)}
	case reflect.Slice, reflect.Array:
		return wire.Shape{Type: "object", OwnKeys: indexKeys(rv.Len())}
	default:
		return wire.Shape{Type: "object", OwnKeys: methods}
	}
}

func structKeys(t reflect.Type) []wire.KeyDesc {
	var out []wire.KeyDesc
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, skip := jsonFieldName(f)
		if skip {
			continue
		}
		out = append(out, wire.KeyDesc{Key: wire.VString(name), Enumerable: true})
	}
	return out
}

// methodKeys lists t's exported methods, the way a pointer receiver's method
// set shows up to a caller doing Get("MethodName").Call(...) against it.
// These are listed as non-enumerable: a Go method is reachable by name but
// isn't a JSON-tagged data field, matching how JS prototype methods are
// typically own-but-non-enumerable on the instance's reflective shape.
func methodKeys(t reflect.Type) []wire.KeyDesc {
	if t == nil {
		return nil
	}
	var out []wire.KeyDesc
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.PkgPath != "" {
			continue
		}
		out = append(out, wire.KeyDesc{Key: wire.VString(m.Name), Enumerable: false})
	}
	return out
}

func jsonFieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name := f.Name
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			if i > 0 {
				name = tag[:i]
			}
			return name, false
		}
	}
	if tag != "" {
		name = tag
	}
	return name, false
}

func mapKeys(rv reflect.Value) []wire.KeyDesc {
	keys := rv.MapKeys()
	strs := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Kind() == reflect.String {
			strs = append(strs, k.String())
		}
	}
	sort.Strings(strs)
	out := make([]wire.KeyDesc, len(strs))
	for i, s := range strs {
		out[i] = wire.KeyDesc{Key: wire.VString(s), Enumerable: true}
	}
	return out
}

func indexKeys(n int) []wire.KeyDesc {
	out := make([]wire.KeyDesc, n)
	for i := 0; i < n; i++ {
		out[i] = wire.KeyDesc{Key: wire.VString(fmt.Sprintf("%d", i)), Enumerable: true}
	}
	return out
}
