package wire

// SegmentOp names which operation a path Segment carries out.
type SegmentOp string

const (
	OpGet  SegmentOp = "get"
	OpSet  SegmentOp = "set"
	OpCall SegmentOp = "call"
	OpNew  SegmentOp = "new"
)

// Segment is one step of a deferred access path recorded by an unbound Ref
// and replayed by the Path Evaluator against the owner's value graph.
//
// Well-formedness, enforced by the Proxy Engine before a Segment ever
// reaches the wire:
//   - Set appears only as the terminal segment.
//   - Call/New never carry a parent Set.
type Segment struct {
	Op    SegmentOp          `json:"op"`
	Key   *ValueDescription  `json:"key,omitempty"`   // Get, Set
	Value *ValueDescription  `json:"value,omitempty"` // Set
	Args  []ValueDescription `json:"args,omitempty"`  // Call, New
}

// Path is a deferred expression rooted at a referenced value: the root id
// plus the ordered segments recorded while a proxy was being chained.
type Path struct {
	Root     Id        `json:"root"`
	Segments []Segment `json:"segments"`
}
