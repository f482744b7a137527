package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullPushTakePut(t *testing.T) {
	p := New([]byte("hello world"), 16, 16, nil)
	require.Equal(t, 11, p.Length())

	require.NoError(t, p.Pull(6))
	assert.Equal(t, "world", string(p.Data()))

	require.NoError(t, p.Push(6))
	assert.Equal(t, "hello world", string(p.Data()))

	require.NoError(t, p.Take(6))
	assert.Equal(t, "hello", string(p.Data()))

	grown := p.Put(6)
	require.NotNil(t, grown)
	copy(grown.Data()[5:], " there")
	assert.Equal(t, "hello there", string(grown.Data()))
}

func TestPullOutOfRange(t *testing.T) {
	p := New([]byte("hi"), 0, 0, nil)
	assert.ErrorIs(t, p.Pull(100), ErrOffsetOutOfRange)
	assert.ErrorIs(t, p.Push(100), ErrOffsetOutOfRange)
}

func TestUniqueifyOnSharedPath(t *testing.T) {
	// Round-trip scenario 5: clone a packet, one consumer uniqueifies and
	// mutates, the other still observes the original byte.
	orig := New([]byte("ABCDEFGHIJ"), 0, 0, nil)
	clone := orig.Clone()
	assert.EqualValues(t, 2, orig.Refcount())

	writable := clone.Uniqueify()
	require.True(t, writable.Writable())
	writable.Data()[0] = 'Z'

	assert.Equal(t, byte('A'), orig.Data()[0])
	assert.Equal(t, byte('Z'), writable.Data()[0])

	orig.Kill()
	writable.Kill()
}

func TestBufferSizeInvariant(t *testing.T) {
	p := New([]byte("payload"), 8, 8, nil)
	assert.LessOrEqual(t, p.Headroom()+p.Length()+p.Tailroom(), p.BufferSize())
}

func TestLayerOffsetInvariant(t *testing.T) {
	p := New(make([]byte, 64), 0, 0, nil)
	require.NoError(t, p.SetLayerOffsets(0, 14, 34))
	assert.LessOrEqual(t, p.MACOffset(), p.NetworkOffset())
	assert.LessOrEqual(t, p.NetworkOffset(), p.TransportOffset())

	assert.Error(t, p.SetLayerOffsets(14, 0, 34))
}

func TestBatchMakeAppendSplit(t *testing.T) {
	p1 := MakeFromPacket(New([]byte("a"), 0, 0, nil))
	p2 := New([]byte("b"), 0, 0, nil)
	p3 := New([]byte("c"), 0, 0, nil)

	b := AppendPacket(p1, p2)
	b = AppendPacket(b, p3)
	require.Equal(t, 3, b.Count())
	require.Equal(t, p3, b.Tail())
	require.Equal(t, 3, chainLength(b))

	head, rest := Split(b, 2)
	assert.Equal(t, 2, head.Count())
	assert.Equal(t, 2, chainLength(head))
	assert.Equal(t, 1, rest.Count())
	assert.Equal(t, 1, chainLength(rest))

	FastKill(head)
	FastKill(rest)
}

func TestSplitEntireBatchReturnsNilRemainder(t *testing.T) {
	b := MakeFromPacket(New([]byte("a"), 0, 0, nil))
	b = AppendPacket(b, New([]byte("b"), 0, 0, nil))

	head, rest := Split(b, 2)
	assert.Equal(t, 2, head.Count())
	assert.Nil(t, rest)
	FastKill(head)
}

func TestAppendBatchConcatenates(t *testing.T) {
	a := MakeFromPacket(New([]byte("a"), 0, 0, nil))
	b := MakeFromPacket(New([]byte("b"), 0, 0, nil))
	b = AppendPacket(b, New([]byte("c"), 0, 0, nil))

	combined := AppendBatch(a, b)
	assert.Equal(t, 3, combined.Count())
	assert.Equal(t, 3, chainLength(combined))
	FastKill(combined)
}
