// Package wire defines the JSON-shaped message and value-description types
// exchanged between ObjectStore peers. Every field here exists because some
// component puts bytes on the wire containing it.
package wire

// Side tags which peer's Local Table an Id is namespaced to. The same
// numeric id on each peer refers to different values; Side disambiguates.
type Side string

const (
	Local  Side = "local"
	Remote Side = "remote"
)

// Id names a gc-tracked value in one peer's Local Table. A string-named Id
// (Name != "") is a stable, user-exposed binding and is never recycled; a
// numeric Id (Name == "") is a transient value subject to GC.
type Id struct {
	Side  Side   `json:"side,omitempty"`
	Value uint64 `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Named reports whether this Id is a stable user-exposed name rather than a
// GC-tracked numeric id.
func (i Id) Named() bool { return i.Name != "" }

// Key renders a value usable as a map key, collapsing Side+Value (or Name)
// into one comparable value for use in the Local/Remote Tables.
func (i Id) Key() string {
	if i.Named() {
		return "name:" + i.Name
	}
	if i.Side == "" {
		return "num:" + itoa(i.Value)
	}
	return string(i.Side) + ":" + itoa(i.Value)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}
