package elements

import (
	"strconv"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/errh"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
	"github.com/akitasoftware/flowcore/runtime"
	"github.com/akitasoftware/flowcore/sched"
)

// PipelinerElement is the graph-facing wrapper around sched.Pipeliner,
// the framework's only sanctioned cross-thread handoff. It has one input
// port per producer thread and a single output port drained by a
// consumer Task on the configured consumer thread.
type PipelinerElement struct {
	element.Base

	pipeliner      *sched.Pipeliner
	consumerThread int
	rt             *runtime.Runtime
}

// NewPipelinerElement returns a Pipeliner element accepting numProducers
// distinct producer threads on its input ports.
func NewPipelinerElement(numProducers int) element.Element {
	pe := &PipelinerElement{pipeliner: sched.NewPipeliner(numProducers)}
	pe.Inputs = make([]port.InputPort, numProducers)
	pe.Outputs = make([]port.OutputPort, 1)
	return pe
}

// SetRuntime satisfies runtime.RuntimeAware; the consumer Task is
// scheduled against rt.Sched at Initialize time.
func (pe *PipelinerElement) SetRuntime(rt *runtime.Runtime) {
	pe.rt = rt
}

// SetThread satisfies runtime.ThreadAware, defaulting the consumer
// thread to the graph's declared assignment; an explicit Configure
// argument still takes precedence.
func (pe *PipelinerElement) SetThread(thread int) {
	pe.consumerThread = thread
}

// Configure reads the consumer's thread index as its sole argument
// (default 0, or the graph's declared thread if SetThread already ran).
func (pe *PipelinerElement) Configure(args []string, eh *errh.Handler) element.Status {
	if len(args) == 0 {
		return element.OK
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		eh.Errorf(pe.Name, "bad consumer thread %q: %v", args[0], err)
		return element.Failed
	}
	pe.consumerThread = n
	return element.OK
}

func (pe *PipelinerElement) Initialize(eh *errh.Handler) element.Status {
	if pe.rt == nil {
		eh.Errorf(pe.Name, "pipeliner element was never given a runtime")
		return element.Failed
	}

	var task *sched.Task
	task = sched.NewTask(func() bool {
		b := pe.pipeliner.PullNext()
		if b == nil {
			task.Park()
			return false
		}
		pe.Outputs[0].PushBatch(b)
		return true
	})

	// The notifier only fires once per 0->1 edge, so each firing
	// re-registers itself before waking the parked task.
	var listen func()
	listen = func() {
		pe.pipeliner.Notifier().Listen(func() {
			task.Reschedule()
			listen()
		})
	}
	listen()

	pe.rt.Sched.Loop(pe.consumerThread).AddTask(task)
	return element.OK
}

func (pe *PipelinerElement) Push(inputPort int, p *packet.Packet) {
	pe.pipeliner.Push(inputPort, packet.MakeFromPacket(p))
}

func (pe *PipelinerElement) PushBatch(inputPort int, batch *packet.PacketBatch) {
	pe.pipeliner.Push(inputPort, batch)
}

// CrossThreadElement satisfies runtime.CrossThreadElement: edges landing
// on a Pipeliner's inputs are the one case where producer and consumer
// threads are expected to differ.
func (pe *PipelinerElement) CrossThreadElement() {}
