package wire

import (
	"math/big"
)

// Kind discriminates the tagged union a ValueDescription carries. Primitive
// kinds decode identically on both peers; the gc-tracked kinds resolve
// through a table (Local on encode, Remote on decode).
type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindBoolean   Kind = "boolean"
	KindBigInt    Kind = "bigint"
	KindUndefined Kind = "undefined"
	KindNull      Kind = "null"
	KindRef       Kind = "ref"    // tagged id, optionally carrying a deferred Path
	KindObject    Kind = "object" // gc-tracked object/function, full Shape attached
	KindFunction  Kind = "function"
	KindSymbol    Kind = "symbol"
	KindError     Kind = "error"
)

// ValueDescription is the wire form of any Value crossing the boundary.
// Exactly one payload field is meaningful per Kind; the rest are left zero.
// A custom representation (instead of Go's json interface-based
// polymorphism) keeps Encode/Decode total functions rather than
// type-switches over `interface{}`.
type ValueDescription struct {
	Kind Kind `json:"type"`

	Str  string  `json:"value,omitempty"` // string, bigint (decimal text)
	Num  float64 `json:"num,omitempty"`
	Bool bool    `json:"bool,omitempty"`

	Id   *Id    `json:"id,omitempty"`
	Path *Path  `json:"path,omitempty"`
	Shape *Shape `json:"shape,omitempty"`

	Error *ErrorDescription `json:"error,omitempty"`
}

// VString / VNumber / ... construct primitive descriptions. Named
// constructors keep call sites (codec.Encode) readable instead of spelling
// out the struct literal at every primitive branch.
func VString(s string) ValueDescription  { return ValueDescription{Kind: KindString, Str: s} }
func VNumber(n float64) ValueDescription { return ValueDescription{Kind: KindNumber, Num: n} }
func VBool(b bool) ValueDescription      { return ValueDescription{Kind: KindBoolean, Bool: b} }
func VUndefined() ValueDescription       { return ValueDescription{Kind: KindUndefined} }
func VNull() ValueDescription            { return ValueDescription{Kind: KindNull} }

// VBigInt encodes an arbitrary-precision integer as decimal text tagged
// with its own Kind, since JSON numbers cannot carry bigint precision.
func VBigInt(v *big.Int) ValueDescription {
	return ValueDescription{Kind: KindBigInt, Str: v.Text(10)}
}

// VRef builds a tagged-id description, optionally carrying a deferred path
// for a value that is computed lazily from the remote.
func VRef(id Id, path *Path) ValueDescription {
	return ValueDescription{Kind: KindRef, Id: &id, Path: path}
}

// VShaped builds a full object/function description: sent once per id, then
// reused for that id's lifetime.
func VShaped(kind Kind, id Id, shape Shape) ValueDescription {
	return ValueDescription{Kind: kind, Id: &id, Shape: &shape}
}

// VSymbol builds a symbol description: referencing identity only, no shape.
func VSymbol(id Id) ValueDescription { return ValueDescription{Kind: KindSymbol, Id: &id} }

// VError builds an error-kind description for a thrown value crossing the
// boundary.
func VError(e ErrorDescription) ValueDescription { return ValueDescription{Kind: KindError, Error: &e} }

// IsPrimitive reports whether this description decodes without consulting
// any table.
func (v ValueDescription) IsPrimitive() bool {
	switch v.Kind {
	case KindString, KindNumber, KindBoolean, KindBigInt, KindUndefined, KindNull:
		return true
	default:
		return false
	}
}

// IsGcTracked reports whether this description names a value living in a
// peer's Local/Remote Table (object, function, or symbol).
func (v ValueDescription) IsGcTracked() bool {
	switch v.Kind {
	case KindObject, KindFunction, KindSymbol, KindRef:
		return true
	default:
		return false
	}
}
