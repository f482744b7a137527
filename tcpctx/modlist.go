package tcpctx

// modNode is one entry in a ModificationList, positions are relative to
// the packet's content at the time addModification was called, not the
// flow's original stream.
type modNode struct {
	position uint32
	offset   int32
}

// ModificationList accumulates the insertions/deletions a rewriting
// element performs on one packet's payload before they are committed into
// a Maintainer's trees. Grounded directly on FastClick's ModificationList
// (original_source/lib/modificationlist.cc): addModification translates
// each new entry's position back to the packet's initial content via the
// already-recorded nodes before it, then mergeNodes coalesces adjacent
// same-sign deletions so the committed list stays minimal.
type ModificationList struct {
	nodes     []modNode
	committed bool
}

// NewModificationList returns an empty, uncommitted list.
func NewModificationList() *ModificationList {
	return &ModificationList{}
}

// AddModification records that, relative to the packet's content at call
// time, position bytes in had offset applied (positive: bytes inserted,
// negative: bytes removed). firstPosition is the lowest position the
// packet's content can represent (normally the packet's starting sequence
// number). Returns false if the list was already committed.
func (l *ModificationList) AddModification(firstPosition, position uint32, offset int32) bool {
	if l.committed {
		return false
	}

	insertAt := 0
	for insertAt < len(l.nodes) && seqLEQ(l.nodes[insertAt].position, position) {
		n := l.nodes[insertAt]
		if seqLT(n.position, position) {
			newPosition := position - uint32(n.offset)
			if seqLT(newPosition, firstPosition) {
				newPosition = firstPosition
			}
			if seqLT(newPosition, n.position) {
				newPosition = n.position
			}
			position = newPosition
		}
		insertAt++
	}
	// insertAt now points one past the last node considered; the
	// original backs up to "the previous node" meaning the insertion
	// point is exactly insertAt here (0-based, node-too-far correction
	// already folded into the loop bound above).

	if insertAt > 0 && l.nodes[insertAt-1].position == position {
		l.nodes[insertAt-1].offset += offset
	} else {
		tail := append([]modNode{}, l.nodes[insertAt:]...)
		l.nodes = append(l.nodes[:insertAt], modNode{position: position, offset: offset})
		l.nodes = append(l.nodes, tail...)
	}

	l.mergeNodes()
	return true
}

// mergeNodes coalesces a node into its predecessor when the predecessor
// is itself a deletion whose range covers this node's position and both
// nodes have the same sign; mirrors ModificationList::mergeNodes.
func (l *ModificationList) mergeNodes() {
	i := 1
	for i < len(l.nodes) {
		prev := l.nodes[i-1]
		cur := l.nodes[i]

		rangeEnd := prev.position + uint32(abs32(prev.offset))
		if seqLT(cur.position, rangeEnd) && prev.offset < 0 && sameSign(cur.offset, prev.offset) {
			l.nodes[i-1].offset += cur.offset
			l.nodes = append(l.nodes[:i], l.nodes[i+1:]...)
			continue
		}
		i++
	}
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

func sameSign(x, y int32) bool {
	return (x <= 0) == (y <= 0)
}

// IsCommitted reports whether Commit has run.
func (l *ModificationList) IsCommitted() bool {
	return l.committed
}

// Commit folds every accumulated modification into m's ack and seq trees
// and empties the list. Later nodes (processed after earlier ones in the
// loop below, i.e. at higher packet-relative positions) are the ones
// whose effect survives when two nodes end up mapping the same tree
// position — ties resolve as "later replaces earlier", matching
// insertInTree's overwrite-on-duplicate behavior.
func (l *ModificationList) Commit(m *Maintainer) {
	offsetTotal := -m.lastOffsetInAckTree()

	for _, n := range l.nodes {
		newPositionAck := n.position + uint32(offsetTotal)
		offsetTotal += n.offset

		newPositionSeq := n.position
		newOffsetAck := -offsetTotal
		newOffsetSeq := offsetTotal

		m.insertInAckTree(newPositionAck, newOffsetAck)
		m.insertInSeqTree(newPositionSeq, newOffsetSeq)
	}

	l.nodes = nil
	l.committed = true
}
