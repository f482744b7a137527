package port

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akitasoftware/flowcore/packet"
)

type fakeBatchTarget struct {
	received *packet.PacketBatch
	port     int
}

func (f *fakeBatchTarget) PushBatch(inputPort int, batch *packet.PacketBatch) {
	f.port = inputPort
	f.received = batch
}

type fakeSingleTarget struct {
	received []*packet.Packet
	starts   int
	ends     int
}

func (f *fakeSingleTarget) Push(inputPort int, p *packet.Packet) {
	f.received = append(f.received, p)
}

func (f *fakeSingleTarget) StartBatch() { f.starts++ }
func (f *fakeSingleTarget) EndBatch()   { f.ends++ }

func mkBatch(n int) *packet.PacketBatch {
	var b *packet.PacketBatch
	for i := 0; i < n; i++ {
		b = packet.AppendPacket(b, packet.New([]byte{byte(i)}, 0, 0, nil))
	}
	return b
}

func TestOutputPortPushBatchToBatchCapable(t *testing.T) {
	target := &fakeBatchTarget{}
	var o OutputPort
	o.Bind(target, 2, true, nil)

	batch := mkBatch(3)
	require.NoError(t, o.PushBatch(batch))
	assert.Equal(t, 2, target.port)
	assert.Equal(t, 3, target.received.Count())
}

func TestOutputPortPushBatchUnrollsToSingleTarget(t *testing.T) {
	notifiee := &fakeSingleTarget{}
	var o OutputPort
	o.Bind(notifiee, 0, false, []BatchNotifiee{notifiee})

	batch := mkBatch(3)
	require.NoError(t, o.PushBatch(batch))
	assert.Len(t, notifiee.received, 3)
	assert.Equal(t, 1, notifiee.starts)
	assert.Equal(t, 1, notifiee.ends)
}

func TestOutputPortPushPromotesToBatch(t *testing.T) {
	target := &fakeBatchTarget{}
	var o OutputPort
	o.Bind(target, 0, true, nil)

	p := packet.New([]byte("x"), 0, 0, nil)
	require.NoError(t, o.Push(p))
	assert.Equal(t, 1, target.received.Count())
}

func TestOutputPortUnboundFails(t *testing.T) {
	var o OutputPort
	assert.ErrorIs(t, o.Push(packet.New([]byte("x"), 0, 0, nil)), ErrUnbound)
}

type fakeSinglePuller struct {
	queue []*packet.Packet
}

func (f *fakeSinglePuller) Pull(outputPort int) *packet.Packet {
	if len(f.queue) == 0 {
		return nil
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	return p
}

func TestInputPortPullBatchAssemblesFromSingle(t *testing.T) {
	upstream := &fakeSinglePuller{queue: []*packet.Packet{
		packet.New([]byte("a"), 0, 0, nil),
		packet.New([]byte("b"), 0, 0, nil),
	}}
	var ip InputPort
	ip.Bind(upstream, 0, false)

	batch, err := ip.PullBatch(0)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Count())
}

func TestInputPortUnboundFails(t *testing.T) {
	var ip InputPort
	_, err := ip.Pull()
	assert.ErrorIs(t, err, ErrUnbound)
}
