package tcpctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintainerMapIdentityBeforeAnyModification(t *testing.T) {
	m := NewMaintainer()
	m.Init(1000)

	assert.EqualValues(t, 1000, m.MapAck(1000))
	assert.EqualValues(t, 1050, m.MapAck(1050))
	assert.EqualValues(t, 1050, m.MapSeq(1050))
}

func TestModificationListInsertionShiftsMapping(t *testing.T) {
	// Round-trip scenario: an element inserts 3 bytes at packet-relative
	// position 10 of a packet starting at stream position 1000.
	m := NewMaintainer()
	m.Init(1000)

	ml := NewModificationList()
	require.True(t, ml.AddModification(1000, 1010, 3))
	ml.Commit(m)
	assert.True(t, ml.IsCommitted())

	// Bytes sent after the insertion point are now 3 further along the
	// wire than their original stream position.
	assert.EqualValues(t, 1014, m.MapSeq(1011))

	// An ack inside the inserted bytes clamps to the insertion point; acks
	// past them fold the +3 back out.
	assert.EqualValues(t, 1010, m.MapAck(1010))
	assert.EqualValues(t, 1010, m.MapAck(1013))
}

func TestModificationListDeletionMergesAdjacentNodes(t *testing.T) {
	// Grounded on the example in modificationlist.cc's mergeNodes comment:
	// remove "ef" from "abcdefgh" (offset -2 at position 4), then remove
	// "bcdg" from the resulting "abcdgh" (offset -4 at position 1); the
	// two deletions should merge into a single (1, -6) node.
	ml := NewModificationList()
	require.True(t, ml.AddModification(0, 4, -2))
	require.True(t, ml.AddModification(0, 1, -4))

	require.Len(t, ml.nodes, 1)
	assert.EqualValues(t, 1, ml.nodes[0].position)
	assert.EqualValues(t, -6, ml.nodes[0].offset)
}

func TestAddModificationRefusedAfterCommit(t *testing.T) {
	m := NewMaintainer()
	m.Init(0)
	ml := NewModificationList()
	ml.Commit(m)
	assert.False(t, ml.AddModification(0, 5, 1))
}

func TestPruneCompactsAfterThreshold(t *testing.T) {
	m := NewMaintainer()
	m.Init(0)
	for i := 0; i < pruneThreshold-1; i++ {
		m.Prune(100)
		assert.Len(t, m.treeAck.nodes, 1, "should not prune before threshold")
	}
	m.Prune(100)
	// Sentinel at 0 is below the prune position 100 and should be gone,
	// but mapAck still resolves correctly afterward via default identity.
	assert.EqualValues(t, 150, m.MapAck(150))
}

func TestRetransmitBufferRoundTrip(t *testing.T) {
	rb := NewRetransmitBuffer(0)
	rb.AddDataAtEnd(1000, []byte("hello world"))

	got, err := rb.GetData(1000, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	rb.RemoveDataAtBeginning(1006)
	_, err = rb.GetData(1000, 1)
	assert.ErrorIs(t, err, ErrRangeNotBuffered)

	got, err = rb.GetData(1006, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestRetransmitBufferCapEvictsFromFront(t *testing.T) {
	rb := NewRetransmitBuffer(5)
	rb.AddDataAtEnd(0, []byte("hello"))
	rb.AddDataAtEnd(5, []byte("world"))

	assert.Equal(t, 5, rb.Size())
	assert.EqualValues(t, 5, rb.StartOffset())

	got, err := rb.GetData(5, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}
