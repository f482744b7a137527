package element

import (
	"github.com/akitasoftware/flowcore/flow"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
)

// FlowPusher is implemented by flow-aware elements that need direct
// access to the current flow's FCB.
type FlowPusher interface {
	PushFlow(outputPort int, fcb *flow.ControlBlock, batch *packet.PacketBatch)
}

// FlowAction wraps a TransformFlow func that receives the FCB the
// classifier attached to the current thread's Context, so a flow-aware
// element does not have to implement port.BatchPusher itself just to get
// at the FCB.
//
// Ctx must be the same *flow.Context the upstream classifier populated
// for this thread; wiring Ctx correctly is the graph builder's job.
type FlowAction struct {
	Base
	Ctx           *flow.Context
	TransformFlow func(fcb *flow.ControlBlock, batch *packet.PacketBatch) *packet.PacketBatch
}

var _ port.BatchPusher = (*FlowAction)(nil)

func (f *FlowAction) PushBatch(inputPort int, batch *packet.PacketBatch) {
	fcb := f.Ctx.Current()
	if out := f.TransformFlow(fcb, batch); out != nil {
		f.Outputs[simpleActionOutput].PushBatch(out)
	}
}

func (f *FlowAction) Push(inputPort int, p *packet.Packet) {
	f.PushBatch(inputPort, packet.MakeFromPacket(p))
}
