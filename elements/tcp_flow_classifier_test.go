package elements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akitasoftware/flowcore/flow"
	"github.com/akitasoftware/flowcore/packet"
)

func newTestClassifier() *flow.Classifier {
	pool := flow.NewPool(64, false)
	newTable := func() flow.Table { return flow.NewLazyTable(time.Minute, time.Minute, 1024) }
	return flow.NewClassifier(1, pool, newTable, time.Minute)
}

func TestTCPFlowClassifierGroupsAndForwards(t *testing.T) {
	classifier := newTestClassifier()
	c := NewTCPFlowClassifier(classifier, payloadKey, 0).(*TCPFlowClassifier)
	sk := &recordingSink{}
	c.Outputs[0].Bind(sk, 0, true, nil)

	var batch *packet.PacketBatch
	batch = packet.AppendPacket(batch, packet.New([]byte("flow-a"), 0, 0, nil))
	batch = packet.AppendPacket(batch, packet.New([]byte("flow-a"), 0, 0, nil))
	batch = packet.AppendPacket(batch, packet.New([]byte("flow-b"), 0, 0, nil))

	c.PushBatch(0, batch)

	require.NotNil(t, sk.received)
	assert.Equal(t, 3, sk.received.Count())
	assert.Equal(t, 2, classifier.Len(0))
}

func TestTCPFlowClassifierDropsUnkeyablePackets(t *testing.T) {
	classifier := newTestClassifier()
	noKey := func(p *packet.Packet) (flow.Key, bool) { return flow.Key{}, false }
	c := NewTCPFlowClassifier(classifier, noKey, 0).(*TCPFlowClassifier)
	sk := &recordingSink{}
	c.Outputs[0].Bind(sk, 0, true, nil)

	c.PushBatch(0, packet.AppendPacket(nil, packet.New([]byte("x"), 0, 0, nil)))

	assert.Nil(t, sk.received)
}
