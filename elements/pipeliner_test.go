package elements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
	"github.com/akitasoftware/flowcore/runtime"
)

// producerStub is a zero-input, one-output test element standing in for
// a real source feeding one of the Pipeliner's producer threads.
type producerStub struct {
	element.Base
}

func newProducerStub() element.Element {
	p := &producerStub{}
	p.Outputs = make([]port.OutputPort, 1)
	return p
}

func TestPipelinerElementDeliversEveryPushedBatch(t *testing.T) {
	classes := runtime.NewRegistry()
	classes.Register("Producer", newProducerStub)
	classes.Register("Pipeliner", func() element.Element { return NewPipelinerElement(2) })
	classes.Register("Counter", NewCounter)
	classes.Register("Discard", NewDiscard)

	g := runtime.Graph{
		Nodes: []runtime.NodeSpec{
			{ID: "p0", ClassName: "Producer"},
			{ID: "p1", ClassName: "Producer"},
			{ID: "pl", ClassName: "Pipeliner"},
			{ID: "c", ClassName: "Counter"},
			{ID: "d", ClassName: "Discard"},
		},
		Edges: []runtime.EdgeSpec{
			{SrcID: "p0", SrcPort: 0, DstID: "pl", DstPort: 0},
			{SrcID: "p1", SrcPort: 0, DstID: "pl", DstPort: 1},
			{SrcID: "pl", SrcPort: 0, DstID: "c", DstPort: 0},
			{SrcID: "c", SrcPort: 0, DstID: "d", DstPort: 0},
		},
	}

	rt, err := runtime.Build(g, classes, 2)
	require.NoError(t, err)
	defer rt.Cleanup()

	p0El, ok := rt.Element("p0")
	require.True(t, ok)
	p1El, ok := rt.Element("p1")
	require.True(t, ok)
	src0 := p0El.(*producerStub)
	src1 := p1El.(*producerStub)

	for i := 0; i < 5; i++ {
		src0.Outputs[0].Push(packet.New([]byte("from-p0"), 0, 0, nil))
		src1.Outputs[0].Push(packet.New([]byte("from-p1"), 0, 0, nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, rt.Run(ctx))

	countStr, err := rt.Handlers.Read("c", "count")
	require.NoError(t, err)
	require.Equal(t, "10", countStr)
}
