// Package tcpctx implements the TCP bytestream maintainer, modification
// list, and retransmission circular buffer.
//
// Grounded line-for-line on FastClick's ByteStreamMaintainer
// (original_source/lib/bytestreammaintainer.cc) and ModificationList
// (original_source/lib/modificationlist.cc). The original keeps two
// red-black trees (ack-space and seq-space); Go has no red-black tree in
// the standard library and none of the retrieved example repos pull one
// in, so Maintainer uses a position-sorted slice searched by a
// hand-written binary search — the same "find greatest key <= position, then its
// predecessor" query the original performs, just O(log n) lookup plus
// O(n) insert instead of O(log n) insert. Flows are modified this
// rarely enough (a handful of resizing events per connection) that the
// difference is not load-bearing; DESIGN.md records this as the one
// stdlib-only substitution in this package.
package tcpctx

// seqLT is wrap-aware sequence-number comparison: SEQ_LT(a,b) ≡
// (int32_t)(a−b) < 0.
func seqLT(a, b uint32) bool {
	return int32(a-b) < 0
}

func seqLEQ(a, b uint32) bool {
	return a == b || seqLT(a, b)
}

// node is one (position, offset) entry in an ack or seq tree.
type node struct {
	position uint32
	offset   int32
}

// orderedTree is a position-sorted slice standing in for the original's
// red-black tree; see the package doc comment for why.
type orderedTree struct {
	nodes []node
}

// search returns the index of the node with the greatest key <= key, and
// ok=false if no such node exists (tree empty or key below every entry).
func (t *orderedTree) search(key uint32) (idx int, ok bool) {
	// sort.Search wants a monotone predicate; seqLT's wraparound
	// semantics only matter across the full uint32 range, and within one
	// flow's lifetime positions stay ordered normally, so plain <=
	// comparison over the sorted slice is safe here.
	lo, hi := 0, len(t.nodes)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.nodes[mid].position <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

// predecessor returns the node immediately before idx, if any.
func (t *orderedTree) predecessor(idx int) (node, bool) {
	if idx <= 0 {
		return node{}, false
	}
	return t.nodes[idx-1], true
}

// insert adds or replaces the node at position with offset, keeping the
// slice sorted; duplicates at the same position replace the old value.
func (t *orderedTree) insert(position uint32, offset int32) {
	idx, ok := t.search(position)
	if ok && t.nodes[idx].position == position {
		t.nodes[idx].offset = offset
		return
	}
	insertAt := idx + 1
	if !ok {
		insertAt = 0
	}
	t.nodes = append(t.nodes, node{})
	copy(t.nodes[insertAt+1:], t.nodes[insertAt:])
	t.nodes[insertAt] = node{position: position, offset: offset}
}

// pruneBelow removes every node with key < position.
func (t *orderedTree) pruneBelow(position uint32) {
	idx, ok := t.search(position - 1)
	if !ok {
		return
	}
	t.nodes = append([]node(nil), t.nodes[idx+1:]...)
}

// lastOffset returns the offset of the node with the greatest key, or 0
// if empty.
func (t *orderedTree) lastOffset() int32 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[len(t.nodes)-1].offset
}

// pruneThreshold is how many Prune calls the maintainer tolerates
// between prune passes before compacting its trees.
const pruneThreshold = 100

// Maintainer tracks the mapping between a TCP flow's original stream
// positions and the positions actually observed on the wire after
// in-flight modifications (insertions/deletions), plus the congestion and
// retransmission bookkeeping downstream elements read.
type Maintainer struct {
	treeAck orderedTree
	treeSeq orderedTree

	initialized  bool
	pruneCounter int

	LastAckSent     uint32
	LastAckReceived uint32
	LastSeqSent     uint32
	LastPayloadLen  uint32

	WindowSize      uint32
	WindowScale     uint8
	UseWindowScale  bool
	MSS             uint32
	CongestionWin   uint32
	SSThresh        uint32
	DupAcks         int

	Retransmit *RetransmitBuffer
}

// NewMaintainer returns a Maintainer with FastClick's constructor
// defaults.
func NewMaintainer() *Maintainer {
	return &Maintainer{
		WindowSize:    32120,
		WindowScale:   1,
		MSS:           536,
		CongestionWin: 536,
		SSThresh:      65535,
		Retransmit:    NewRetransmitBuffer(0),
	}
}

// Init establishes the flowStart sentinel both trees need before any
// mapping query is valid: on first observation of a data byte or SYN,
// the maintainer inserts a zero-offset sentinel at the initial sequence
// number.
func (m *Maintainer) Init(flowStart uint32) {
	if m.initialized {
		return
	}
	m.treeAck.insert(flowStart, 0)
	m.treeSeq.insert(flowStart, 0)
	m.initialized = true
}

// MapAck maps an ack-space position to wire position, the ack-mapping
// half of the two-step algorithm.
func (m *Maintainer) MapAck(position uint32) uint32 {
	return m.mapIn(&m.treeAck, position, false)
}

// MapSeq maps a seq-space position to wire position, searching q-1 rather
// than q to exclude the position's own modification from affecting
// retransmissions at that exact position.
func (m *Maintainer) MapSeq(position uint32) uint32 {
	return m.mapIn(&m.treeSeq, position, true)
}

func (m *Maintainer) mapIn(tree *orderedTree, position uint32, excludeSelf bool) uint32 {
	seek := position
	if excludeSelf {
		seek = position - 1
	}

	idx, ok := tree.search(seek)
	if !ok {
		return position
	}

	n := tree.nodes[idx]
	mapped := position + uint32(n.offset)

	predOffset := int32(0)
	if pred, hasPred := tree.predecessor(idx); hasPred {
		predOffset = pred.offset
	}
	lowerBound := n.position + uint32(predOffset)

	if seqLT(mapped, lowerBound) {
		return lowerBound
	}
	return mapped
}

// insertInAckTree and insertInSeqTree are the primitives ModificationList
// commits through; they are unexported methods, callable from tcpctx's
// own modlist.go and from this package's tests.
func (m *Maintainer) insertInAckTree(position uint32, offset int32) {
	m.treeAck.insert(position, offset)
}

func (m *Maintainer) insertInSeqTree(position uint32, offset int32) {
	m.treeSeq.insert(position, offset)
}

func (m *Maintainer) lastOffsetInAckTree() int32 {
	return m.treeAck.lastOffset()
}

// Prune compacts both trees once every pruneThreshold calls, removing
// entries below the current window base.
func (m *Maintainer) Prune(position uint32) {
	m.pruneCounter++
	if m.pruneCounter < pruneThreshold {
		return
	}
	m.pruneCounter = 0

	m.treeAck.pruneBelow(position)
	positionSeq := m.MapAck(position)
	m.treeSeq.pruneBelow(positionSeq)
}
