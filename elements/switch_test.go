package elements

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/flow"
	"github.com/akitasoftware/flowcore/packet"
)

// payloadKey treats a packet's whole payload as its flow key, so tests can
// control flow identity directly through packet contents.
func payloadKey(p *packet.Packet) (flow.Key, bool) {
	var k flow.Key
	copy(k.SrcIP[:], p.Data())
	return k, true
}

func newSwitchWithSinks(numOutputs int) (*RoundRobinSwitch, []*recordingSink) {
	s := NewRoundRobinSwitch(numOutputs, payloadKey).(*RoundRobinSwitch)
	sinks := make([]*recordingSink, numOutputs)
	for i := range sinks {
		sinks[i] = &recordingSink{}
		s.Outputs[i].Bind(sinks[i], 0, true, nil)
	}
	return s, sinks
}

func TestRoundRobinSwitchDistributesNewFlowsEvenly(t *testing.T) {
	s, sinks := newSwitchWithSinks(4)

	var batch *packet.PacketBatch
	for i := 0; i < 13; i++ {
		batch = packet.AppendPacket(batch, packet.New([]byte(fmt.Sprintf("flow-%02d", i)), 0, 0, nil))
	}
	s.PushBatch(0, batch)

	counts := make([]int, len(sinks))
	for i, sk := range sinks {
		if sk.received != nil {
			counts[i] = sk.received.Count()
		}
	}
	assert.Equal(t, []int{4, 3, 3, 3}, counts)
}

func TestRoundRobinSwitchStickToAssignedPort(t *testing.T) {
	s, sinks := newSwitchWithSinks(2)

	p1 := packet.New([]byte("same-flow"), 0, 0, nil)
	s.Push(0, p1)

	firstPort := -1
	for i, sk := range sinks {
		if sk.received != nil {
			firstPort = i
		}
	}
	require.NotEqual(t, -1, firstPort)

	for i := 0; i < 5; i++ {
		p := packet.New([]byte("same-flow"), 0, 0, nil)
		s.Push(0, p)
	}

	assert.Equal(t, 6, sinks[firstPort].received.Count())
}

func TestRoundRobinSwitchFlowCountHandler(t *testing.T) {
	s, _ := newSwitchWithSinks(2)
	s.Name = "rr0"
	s.Push(0, packet.New([]byte("a"), 0, 0, nil))
	s.Push(0, packet.New([]byte("b"), 0, 0, nil))
	s.Push(0, packet.New([]byte("a"), 0, 0, nil))

	reg := element.NewRegistry()
	s.AddHandlers(reg)
	n, err := reg.Read("rr0", "flow_count")
	require.NoError(t, err)
	assert.Equal(t, "2", n)
}
