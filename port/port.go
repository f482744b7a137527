// Package port implements the framework's port binding and dispatch records.
//
// After the graph is built, every port resolves a direct dispatch target
// once; the hot path never consults configuration strings or branches on
// class name again. This mirrors FastClick's BatchElement::Port /
// BatchPort split (original_source/lib/batchelement.cc,
// original_source/include/click/batchelement.hh): a port that targets a
// batch-capable element calls push_batch directly, while a port that
// targets a single-only element unrolls the batch and calls push once per
// packet, wrapping the run in start_batch/end_batch notifications so
// "downstream batches" still observe batch boundaries.
//
// The interface split below (Pusher/BatchPusher, Puller/BatchPuller) plays
// the same role as the teacher's trace.Collector chain
// (postmanlabs-observability-cli/trace/collector.go): a small interface
// that concrete elements implement, and that the framework wraps/adapts
// without the wrapped element knowing it is being adapted.
package port

import (
	"github.com/pkg/errors"

	"github.com/akitasoftware/flowcore/packet"
)

// Pusher accepts one packet at a time on an input port.
type Pusher interface {
	Push(inputPort int, p *packet.Packet)
}

// BatchPusher accepts a whole batch at a time on an input port. Elements
// that implement simple_action_batch or push_flow satisfy this directly;
// see the mixin types of package element (SimpleAction, SimpleActionBatch,
// Classifier, FlowAction), which implement both Pusher and BatchPusher.
type BatchPusher interface {
	PushBatch(inputPort int, batch *packet.PacketBatch)
}

// Puller produces one packet at a time from an output port, or nil if none
// is available.
type Puller interface {
	Pull(outputPort int) *packet.Packet
}

// BatchPuller produces up to max packets as a batch from an output port,
// or nil if none is available. max <= 0 means unbounded.
type BatchPuller interface {
	PullBatch(outputPort int, max int) *packet.PacketBatch
}

// BatchNotifiee is implemented by elements that need to observe batch
// boundaries even when they only receive unrolled single packets, e.g. to
// amortize a lock acquisition across a batch.
type BatchNotifiee interface {
	StartBatch()
	EndBatch()
}

// ErrUnbound is returned by a push or pull through a port that was never
// connected.
var ErrUnbound = errors.New("port: unbound at initialization")

// OutputPort is the dispatch record a push-output or pull-output resolves
// to once the graph is frozen. It is a value type so elements can hold an
// array of them inline the way FastClick elements hold an array of Port.
type OutputPort struct {
	bound bool

	// target is the downstream element reached through this port.
	target interface{}
	// targetPort is the downstream element's input/output index.
	targetPort int

	batchCapable bool
	// downstream holds BatchNotifiee targets reachable through a
	// single-only port, so batch-start/end still propagates past an
	// unrolling boundary.
	downstream []BatchNotifiee
}

// Bind records the dispatch target for this port. batchCapable reports
// whether target satisfies BatchPusher/BatchPuller; downstream is the set
// of BatchNotifiee elements reachable beyond a single-only hop, gathered
// once at graph-freeze time (mirrors BatchElement::check_unbatch's
// PushToPushBatchVisitor).
func (o *OutputPort) Bind(target interface{}, targetPort int, batchCapable bool, downstream []BatchNotifiee) {
	o.bound = true
	o.target = target
	o.targetPort = targetPort
	o.batchCapable = batchCapable
	o.downstream = downstream
}

// Bound reports whether Bind has been called.
func (o *OutputPort) Bound() bool { return o.bound }

// PushBatch dispatches batch downstream, choosing the batch-capable or
// unrolling path according to what Bind recorded.
func (o *OutputPort) PushBatch(batch *packet.PacketBatch) error {
	if !o.bound {
		return ErrUnbound
	}
	if o.batchCapable {
		o.target.(BatchPusher).PushBatch(o.targetPort, batch)
		return nil
	}

	for _, d := range o.downstream {
		d.StartBatch()
	}

	single := o.target.(Pusher)
	for batch != nil {
		next := batch.Next()
		packet.Detach(batch)
		single.Push(o.targetPort, batch)
		batch = next
	}

	for _, d := range o.downstream {
		d.EndBatch()
	}
	return nil
}

// Push dispatches a single packet downstream, promoting it to a
// one-element batch at the boundary if the target only understands
// batches.
func (o *OutputPort) Push(p *packet.Packet) error {
	if !o.bound {
		return ErrUnbound
	}
	if o.batchCapable {
		o.target.(BatchPusher).PushBatch(o.targetPort, packet.MakeFromPacket(p))
		return nil
	}
	o.target.(Pusher).Push(o.targetPort, p)
	return nil
}

// InputPort is the pull-side dispatch record, symmetric with OutputPort.
type InputPort struct {
	bound        bool
	target       interface{}
	targetPort   int
	batchCapable bool
}

// Bind records the upstream pull target.
func (ip *InputPort) Bind(target interface{}, targetPort int, batchCapable bool) {
	ip.bound = true
	ip.target = target
	ip.targetPort = targetPort
	ip.batchCapable = batchCapable
}

// Bound reports whether Bind has been called.
func (ip *InputPort) Bound() bool { return ip.bound }

// PullBatch requests up to max packets (<=0 meaning unbounded) from
// upstream, assembling a batch out of single pulls if the upstream element
// only understands single-packet pull.
func (ip *InputPort) PullBatch(max int) (*packet.PacketBatch, error) {
	if !ip.bound {
		return nil, ErrUnbound
	}
	if ip.batchCapable {
		return ip.target.(BatchPuller).PullBatch(ip.targetPort, max), nil
	}

	puller := ip.target.(Puller)
	var batch *packet.PacketBatch
	for n := 0; max <= 0 || n < max; n++ {
		p := puller.Pull(ip.targetPort)
		if p == nil {
			break
		}
		batch = packet.AppendPacket(batch, p)
	}
	return batch, nil
}

// Pull requests a single packet from upstream; a batch-capable upstream is
// asked for a batch of at most one packet (pull-batch is preferred
// wherever the caller can accept a batch).
func (ip *InputPort) Pull() (*packet.Packet, error) {
	if !ip.bound {
		return nil, ErrUnbound
	}
	if ip.batchCapable {
		batch := ip.target.(BatchPuller).PullBatch(ip.targetPort, 1)
		return batch, nil // batch is nil or a single-packet batch/packet
	}
	return ip.target.(Puller).Pull(ip.targetPort), nil
}
