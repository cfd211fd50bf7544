package wire

// KeyDesc is one entry of a Shape's OwnKeys/HasKeys list. Key is either an
// inline string or a reference to a symbol id, carried as a ValueDescription
// so it round-trips through the same codec path as any other key.
type KeyDesc struct {
	Key        ValueDescription `json:"key"`
	Enumerable bool             `json:"enumerable"`
}

// Shape is the object/function shape description sent once per id and
// reused for the lifetime of that id.
type Shape struct {
	Type              string    `json:"type"` // "object" | "function"
	OwnKeys           []KeyDesc `json:"ownKeys"`
	HasKeys           []KeyDesc `json:"hasKeys,omitempty"`
	Prototype         *Id       `json:"prototype,omitempty"`
	FunctionPrototype *Id       `json:"functionPrototype,omitempty"`
}

// PrototypePolicy controls how much of an object's shape is shipped.
type PrototypePolicy string

const (
	PrototypeFull     PrototypePolicy = "full"
	PrototypeKeysOnly PrototypePolicy = "keysOnly"
	PrototypeNone     PrototypePolicy = "none"
)
