// Package element implements the framework's element lifecycle, handler
// registry, and capability mixins.
//
// Go has no class inheritance, so the helper templates (simple_action,
// simple_action_batch, push/pull, classify, push_flow) are implemented as
// small wrapper types that embed a Base and a user-supplied function,
// rather than as template base classes the way FastClick's
// SimpleElement<T>/BatchElement subclasses work
// (original_source/include/click/element.hh,
// original_source/lib/batchelement.cc). A derived element picks exactly
// one mixin; the mixin synthesizes both the single-packet and batch entry
// points so callers on either side of a port always find a method to
// call — here it is one indirect call through an interface instead of a
// compile-time template expansion, but the shape seen by a derived
// element's Transform/Classify func is the same.
package element

import (
	"github.com/akitasoftware/flowcore/errh"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
)

// Status is the outcome of a lifecycle call.
type Status int

const (
	OK Status = iota
	Failed
)

// CleanupStage identifies how far an element's initialization progressed
// before teardown was requested, so Cleanup can run only the steps that
// actually need undoing, in reverse order of acquisition.
type CleanupStage int

const (
	// CleanupBeforeConfigure: element was constructed but never
	// configured; nothing to undo.
	CleanupBeforeConfigure CleanupStage = iota
	// CleanupConfigured: configure succeeded, initialize was not
	// reached or failed before acquiring resources.
	CleanupConfigured
	// CleanupInitialized: initialize fully succeeded; every resource it
	// acquired must be released.
	CleanupInitialized
)

// Element is the interface every node in the graph satisfies. Push/pull
// capability is layered on separately via port.Pusher/port.BatchPusher/
// port.Puller/port.BatchPuller, which concrete elements or the mixins in
// this package implement as appropriate.
type Element interface {
	// Configure parses declarative arguments. It may not call peers.
	Configure(args []string, eh *errh.Handler) Status
	// Initialize runs after every element in the graph has configured;
	// peer access is allowed and tasks/timers are scheduled here.
	Initialize(eh *errh.Handler) Status
	// Cleanup tears down whatever Initialize/Configure acquired, up to
	// stage. Cleanup must be idempotent.
	Cleanup(stage CleanupStage)
	// AddHandlers registers this element's named read/write endpoints
	// against the given Registry.
	AddHandlers(reg *Registry)
}

// Base provides no-op lifecycle defaults so concrete elements only
// override what they need, the same role FastClick's Element base class
// plays for subclasses that don't use every hook.
type Base struct {
	Name string

	Inputs  []port.InputPort
	Outputs []port.OutputPort
}

func (b *Base) Configure(args []string, eh *errh.Handler) Status { return OK }
func (b *Base) Initialize(eh *errh.Handler) Status               { return OK }
func (b *Base) Cleanup(stage CleanupStage)                       {}
func (b *Base) AddHandlers(reg *Registry)                        {}

// Porter exposes an element's port arrays to the graph builder so edges
// resolved from a declarative configuration can be bound without the
// builder knowing the concrete element type. Base implements this for
// every element that embeds it.
type Porter interface {
	InputPorts() []*port.InputPort
	OutputPorts() []*port.OutputPort
}

// InputPorts returns addressable pointers into b.Inputs so a caller can
// Bind them in place.
func (b *Base) InputPorts() []*port.InputPort {
	out := make([]*port.InputPort, len(b.Inputs))
	for i := range b.Inputs {
		out[i] = &b.Inputs[i]
	}
	return out
}

// OutputPorts returns addressable pointers into b.Outputs so a caller can
// Bind them in place.
func (b *Base) OutputPorts() []*port.OutputPort {
	out := make([]*port.OutputPort, len(b.Outputs))
	for i := range b.Outputs {
		out[i] = &b.Outputs[i]
	}
	return out
}

// CheckPortsBound verifies every declared input/output port was bound
// during graph construction; an unbound port is a fatal configuration
// error.
func (b *Base) CheckPortsBound(eh *errh.Handler) Status {
	status := OK
	for i := range b.Inputs {
		if !b.Inputs[i].Bound() {
			eh.Errorf(b.Name, "input port %d is unbound", i)
			status = Failed
		}
	}
	for i := range b.Outputs {
		if !b.Outputs[i].Bound() {
			eh.Errorf(b.Name, "output port %d is unbound", i)
			status = Failed
		}
	}
	return status
}

// simpleActionOutput is the output port simple-action mixins push their
// single result to; index 0 matches FastClick's convention that a
// SimpleElement has exactly one output.
const simpleActionOutput = 0

// SimpleAction wraps a Transform func that produces zero or one packet
// per input packet. It implements both port.Pusher (single-packet entry) and
// port.BatchPusher (unrolls the batch, re-chaining survivors), so it
// plugs into a port bound either way.
type SimpleAction struct {
	Base
	// Transform returns the output packet, or nil to drop the input.
	Transform func(p *packet.Packet) *packet.Packet
}

func (s *SimpleAction) Push(inputPort int, p *packet.Packet) {
	if out := s.Transform(p); out != nil {
		s.Outputs[simpleActionOutput].Push(out)
	}
}

func (s *SimpleAction) PushBatch(inputPort int, batch *packet.PacketBatch) {
	var result *packet.PacketBatch
	for batch != nil {
		next := batch.Next()
		packet.Detach(batch)
		if out := s.Transform(batch); out != nil {
			result = packet.AppendPacket(result, out)
		}
		batch = next
	}
	if result != nil {
		s.Outputs[simpleActionOutput].PushBatch(result)
	}
}

// SimpleActionBatch wraps a TransformBatch func operating on the whole
// batch at once. Its Push (single-packet) entry point promotes the
// packet to a one-element batch at the boundary, mirroring
// port.OutputPort's own single-to-batch promotion so a SimpleActionBatch
// element can sit downstream of a single-only pusher.
type SimpleActionBatch struct {
	Base
	TransformBatch func(batch *packet.PacketBatch) *packet.PacketBatch
}

func (s *SimpleActionBatch) Push(inputPort int, p *packet.Packet) {
	s.PushBatch(inputPort, packet.MakeFromPacket(p))
}

func (s *SimpleActionBatch) PushBatch(inputPort int, batch *packet.PacketBatch) {
	if out := s.TransformBatch(batch); out != nil {
		s.Outputs[simpleActionOutput].PushBatch(out)
	}
}

// Classifier wraps a Classify func that maps a packet to an output port
// index, for pure demultiplexers. A negative return drops the packet.
type Classifier struct {
	Base
	Classify func(p *packet.Packet) int
}

func (c *Classifier) Push(inputPort int, p *packet.Packet) {
	idx := c.Classify(p)
	if idx < 0 || idx >= len(c.Outputs) {
		p.Kill()
		return
	}
	c.Outputs[idx].Push(p)
}

func (c *Classifier) PushBatch(inputPort int, batch *packet.PacketBatch) {
	// Group consecutive same-destination packets into sub-batches so a
	// run of packets headed to the same output traverses the port as
	// one PushBatch call, matching how FlowIPManager-style classifiers
	// batch-accumulate by key before emitting.
	for batch != nil {
		idx := c.Classify(batch)
		var group *packet.PacketBatch
		for batch != nil && c.classifyCached(batch) == idx {
			next := batch.Next()
			packet.Detach(batch)
			group = packet.AppendPacket(group, batch)
			batch = next
		}
		if idx < 0 || idx >= len(c.Outputs) {
			packet.FastKill(group)
			continue
		}
		c.Outputs[idx].PushBatch(group)
	}
}

// classifyCached re-evaluates Classify; kept as a separate method so a
// future optimization (caching the result on the packet's annotation
// area) has an obvious seam without touching PushBatch's control flow.
func (c *Classifier) classifyCached(p *packet.Packet) int {
	return c.Classify(p)
}
