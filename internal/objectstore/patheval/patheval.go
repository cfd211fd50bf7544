// Package patheval implements the Path Evaluator: it walks a wire.Path
// against the owner's Local Table using reflection, the way
// internal/registry.Registry[T] callers walk a live Go value, and returns
// the terminal result for the codec to encode back onto the wire.
package patheval

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/viant/remoteobj/internal/objectstore/codec"
	"github.com/viant/remoteobj/internal/objectstore/errs"
	"github.com/viant/remoteobj/internal/objectstore/localtable"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Evaluator resolves a recorded access path against the owner's value
// graph.
type Evaluator struct {
	local *localtable.Table
	codec *codec.Codec
}

// New builds an Evaluator over local (the owner's Local Table) and codec
// (used to decode path segment keys, set values and call/new args).
func New(local *localtable.Table, c *codec.Codec) *Evaluator {
	return &Evaluator{local: local, codec: c}
}

// Evaluate walks path.Segments starting at path.Root and returns the
// terminal Go value. The final value of the chain is authoritative — an
// intermediate get/call result that happens to look promise-like is simply
// the value flowing to the next segment, never specially awaited mid-chain,
// since context.Context-aware calls already block synchronously in Go.
func (e *Evaluator) Evaluate(ctx context.Context, path wire.Path) (interface{}, error) {
	current, err := e.resolveRoot(path.Root)
	if err != nil {
		return nil, err
	}

	for i, seg := range path.Segments {
		switch seg.Op {
		case wire.OpGet:
			current, err = e.get(current, seg)
		case wire.OpSet:
			err = e.set(current, seg)
			current = nil
		case wire.OpCall:
			current, err = e.call(ctx, current, seg)
		case wire.OpNew:
			current, err = e.construct(ctx, current, seg)
		default:
			err = errs.Protocolf("unknown path segment op %q at index %d", seg.Op, i)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (e *Evaluator) resolveRoot(root wire.Id) (interface{}, error) {
	if root.Named() {
		v, ok := e.local.LookupExposed(root.Name)
		if !ok {
			return nil, errs.UnknownIDf("no value exposed as %q", root.Name)
		}
		return v, nil
	}
	v, ok := e.local.Lookup(root.Value)
	if !ok {
		return nil, errs.UnknownIDf("unknown id %d", root.Value)
	}
	e.local.Touch(root.Value)
	return v, nil
}

func (e *Evaluator) get(current interface{}, seg wire.Segment) (interface{}, error) {
	if seg.Key == nil {
		return nil, errs.Protocolf("get segment missing key")
	}
	key, err := e.codec.Decode(*seg.Key)
	if err != nil {
		return nil, err
	}
	return readProperty(current, key)
}

func (e *Evaluator) set(current interface{}, seg wire.Segment) error {
	if seg.Key == nil || seg.Value == nil {
		return errs.Protocolf("set segment missing key or value")
	}
	key, err := e.codec.Decode(*seg.Key)
	if err != nil {
		return err
	}
	val, err := e.codec.Decode(*seg.Value)
	if err != nil {
		return err
	}
	return writeProperty(current, key, val)
}

func (e *Evaluator) call(ctx context.Context, current interface{}, seg wire.Segment) (interface{}, error) {
	args, err := e.decodeArgs(seg.Args)
	if err != nil {
		return nil, err
	}
	return invoke(ctx, current, args)
}

// construct treats `new` as a call whose result is taken as-is: Go has no
// constructor-function distinction at the reflect.Value level once a
// function is in hand, so the owner's function is expected to already
// return the constructed value.
func (e *Evaluator) construct(ctx context.Context, current interface{}, seg wire.Segment) (interface{}, error) {
	return e.call(ctx, current, seg)
}

func (e *Evaluator) decodeArgs(descs []wire.ValueDescription) ([]interface{}, error) {
	out := make([]interface{}, len(descs))
	for i, d := range descs {
		v, err := e.codec.Decode(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readProperty(current interface{}, key interface{}) (interface{}, error) {
	if current == nil {
		return nil, errs.Protocolf("cannot read property of undefined")
	}
	orig := reflect.ValueOf(current)
	if name, ok := key.(string); ok {
		if mv := orig.MethodByName(name); mv.IsValid() {
			return mv.Interface(), nil
		}
	}

	rv := orig
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errs.Protocolf("cannot read property of nil pointer")
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		kv := reflect.ValueOf(fmt.Sprintf("%v", key))
		if rv.Type().Key().Kind() == reflect.String {
			kv = kv.Convert(rv.Type().Key())
		}
		mv := rv.MapIndex(kv)
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil
	case reflect.Struct:
		name, ok := key.(string)
		if !ok {
			return nil, errs.Protocolf("struct property key must be a string")
		}
		fv := rv.FieldByNameFunc(func(n string) bool { return fieldMatches(rv.Type(), n, name) })
		if !fv.IsValid() {
			return nil, nil
		}
		return fv.Interface(), nil
	case reflect.Slice, reflect.Array:
		idx, err := propertyIndex(key)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, nil
		}
		return rv.Index(idx).Interface(), nil
	default:
		return nil, errs.Protocolf("value of kind %s has no readable properties", rv.Kind())
	}
}

func writeProperty(current interface{}, key interface{}, value interface{}) error {
	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs.Protocolf("cannot set property on nil pointer")
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if !rv.CanSet() && rv.IsNil() {
			return errs.Protocolf("cannot set property on a non-addressable nil map")
		}
		kv := reflect.ValueOf(fmt.Sprintf("%v", key)).Convert(rv.Type().Key())
		vv := reflect.ValueOf(value)
		if vv.IsValid() && vv.Type().AssignableTo(rv.Type().Elem()) {
			rv.SetMapIndex(kv, vv)
		} else {
			rv.SetMapIndex(kv, reflect.Zero(rv.Type().Elem()))
		}
		return nil
	case reflect.Struct:
		name, ok := key.(string)
		if !ok {
			return errs.Protocolf("struct property key must be a string")
		}
		fv := rv.FieldByNameFunc(func(n string) bool { return fieldMatches(rv.Type(), n, name) })
		if !fv.IsValid() || !fv.CanSet() {
			return errs.Protocolf("property %q is not settable", name)
		}
		vv := reflect.ValueOf(value)
		if vv.IsValid() && vv.Type().AssignableTo(fv.Type()) {
			fv.Set(vv)
			return nil
		}
		if vv.IsValid() && vv.Type().ConvertibleTo(fv.Type()) {
			fv.Set(vv.Convert(fv.Type()))
			return nil
		}
		return errs.Protocolf("value not assignable to property %q", name)
	case reflect.Slice, reflect.Array:
		idx, err := propertyIndex(key)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= rv.Len() {
			return errs.Protocolf("index %d out of range", idx)
		}
		ev := rv.Index(idx)
		vv := reflect.ValueOf(value)
		if vv.IsValid() && vv.Type().AssignableTo(ev.Type()) && ev.CanSet() {
			ev.Set(vv)
			return nil
		}
		return errs.Protocolf("value not assignable to index %d", idx)
	default:
		return errs.Protocolf("value of kind %s has no settable properties", rv.Kind())
	}
}

func invoke(ctx context.Context, fn interface{}, args []interface{}) (interface{}, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errs.Protocolf("value is not callable")
	}
	rt := rv.Type()

	in := make([]reflect.Value, 0, len(args)+1)
	argIdx := 0
	if rt.NumIn() > 0 && rt.In(0) == reflect.TypeOf((*context.Context)(nil)).Elem() {
		in = append(in, reflect.ValueOf(ctx))
	}
	for ; argIdx < len(args); argIdx++ {
		want := rt.NumIn()
		pos := len(in)
		var at reflect.Type
		if rt.IsVariadic() && pos >= want-1 {
			at = rt.In(want - 1).Elem()
		} else if pos < want {
			at = rt.In(pos)
		} else {
			break
		}
		in = append(in, coerce(args[argIdx], at))
	}

	out := rv.Call(in)
	return splitResult(out)
}

func coerce(v interface{}, to reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(to)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(to) {
		return rv
	}
	if rv.Type().ConvertibleTo(to) {
		return rv.Convert(to)
	}
	return reflect.Zero(to)
}

func splitResult(out []reflect.Value) (interface{}, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type() == reflect.TypeOf((*error)(nil)).Elem() {
		var err error
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		if len(out) == 1 {
			return nil, err
		}
		if len(out) == 2 {
			return out[0].Interface(), err
		}
		return out[:len(out)-1], err
	}
	if len(out) == 1 {
		return out[0].Interface(), nil
	}
	vals := make([]interface{}, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, nil
}

func propertyIndex(key interface{}) (int, error) {
	switch k := key.(type) {
	case float64:
		return int(k), nil
	case string:
		n, err := strconv.Atoi(k)
		if err != nil {
			return 0, errs.Protocolf("index key %q is not numeric", k)
		}
		return n, nil
	default:
		return 0, errs.Protocolf("unsupported index key type %T", key)
	}
}

func fieldMatches(t reflect.Type, fieldName, wantName string) bool {
	f, ok := t.FieldByName(fieldName)
	if !ok || f.PkgPath != "" {
		return false
	}
	tag := f.Tag.Get("json")
	name := f.Name
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			if i > 0 {
				name = tag[:i]
			}
			return name == wantName
		}
	}
	if tag != "" {
		name = tag
	}
	return name == wantName
}
