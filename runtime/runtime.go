// Package runtime gathers the framework's process-wide singletons — the
// driver-stop flag, the per-thread scheduler, the element class registry,
// and the handler namespace — into one value built from a declarative
// graph, rather than scattering them across free functions. A non-owning
// reference to the runtime is handed to every element at initialize time
// instead of each element reaching for package-level state.
package runtime

import (
	"context"
	"fmt"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/errh"
	"github.com/akitasoftware/flowcore/port"
	"github.com/akitasoftware/flowcore/sched"
)

// RuntimeAware is implemented by elements that need the shared runtime
// singleton itself (to schedule a Task against a particular thread's
// Loop, or to call PleaseStopDriver from a handler) rather than having
// each piece of global state wired through constructor arguments
// individually.
type RuntimeAware interface {
	SetRuntime(rt *Runtime)
}

// ThreadAware is implemented by elements whose behavior depends on the
// declared thread assignment from their NodeSpec — a classification
// element's table shard, a source's scheduler loop, a Pipeliner's
// consumer thread.
type ThreadAware interface {
	SetThread(thread int)
}

// CrossThreadElement is implemented by the handful of elements explicitly
// designed to hand packets from one scheduler thread to another (the
// Pipeliner). bindEdges otherwise rejects any edge whose endpoints
// declare different threads, since ordinary elements assume single-
// threaded access to their own state.
type CrossThreadElement interface {
	CrossThreadElement()
}

// Runtime is the graph-builder's output: every instantiated, configured,
// initialized element plus the shared scheduler and handler namespace.
type Runtime struct {
	elements map[string]element.Element
	order    []string // declaration order, also initialize/cleanup order

	Classes  *Registry
	Handlers *element.Registry
	Sched    *sched.Runtime
	Errors   *errh.Handler
}

// Element looks up a node by its graph id.
func (rt *Runtime) Element(id string) (element.Element, bool) {
	e, ok := rt.elements[id]
	return e, ok
}

// Build instantiates every node in g via classes, configures each one,
// binds every edge, and initializes the whole graph in declaration order.
// Edges are bound after Configure so an element that sizes its ports from
// its arguments (RoundRobinSwitch) is bound at its configured arity.
// numThreads sizes the shared scheduler.
func Build(g Graph, classes *Registry, numThreads int) (*Runtime, error) {
	rt := &Runtime{
		elements: make(map[string]element.Element, len(g.Nodes)),
		Classes:  classes,
		Handlers: element.NewRegistry(),
		Sched:    sched.NewRuntime(numThreads),
		Errors:   errh.New(),
	}

	threadOf := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := rt.elements[n.ID]; dup {
			return nil, fmt.Errorf("runtime: duplicate element id %q", n.ID)
		}
		el, ok := classes.New(n.ClassName)
		if !ok {
			return nil, fmt.Errorf("runtime: unknown element class %q for id %q", n.ClassName, n.ID)
		}
		rt.elements[n.ID] = el
		rt.order = append(rt.order, n.ID)
		threadOf[n.ID] = n.Thread
	}

	for _, n := range g.Nodes {
		el := rt.elements[n.ID]
		if ra, ok := el.(RuntimeAware); ok {
			ra.SetRuntime(rt)
		}
		if ta, ok := el.(ThreadAware); ok {
			ta.SetThread(n.Thread)
		}
		if status := el.Configure(splitArgs(n.Args), rt.Errors); status != element.OK {
			return nil, fmt.Errorf("runtime: element %q (%s) failed to configure: %s",
				n.ID, n.ClassName, rt.diagnostics())
		}
	}

	if err := rt.bindEdges(g.Edges, threadOf); err != nil {
		return nil, err
	}

	for _, id := range rt.order {
		el := rt.elements[id]
		if status := el.Initialize(rt.Errors); status != element.OK {
			return nil, fmt.Errorf("runtime: element %q failed to initialize: %s", id, rt.diagnostics())
		}
		if p, ok := el.(interface {
			CheckPortsBound(eh *errh.Handler) element.Status
		}); ok {
			if status := p.CheckPortsBound(rt.Errors); status != element.OK {
				return nil, fmt.Errorf("runtime: element %q has unbound ports: %s", id, rt.diagnostics())
			}
		}
		el.AddHandlers(rt.Handlers)
	}

	return rt, nil
}

// diagnostics renders the accumulated error-handler messages, or a
// generic placeholder if the failing element returned a bad status
// without recording a message.
func (rt *Runtime) diagnostics() string {
	if err := rt.Errors.Err(); err != nil {
		return err.Error()
	}
	return "no diagnostic message recorded"
}

// bindEdges resolves each (src_id, src_port, dst_id, dst_port) edge into
// direct OutputPort/InputPort dispatch records. Both directions are bound
// from one edge — the src side as a push target, the dst side as a pull
// target — since which direction is actually exercised at runtime is a
// property of the elements' processing mode, not of the edge itself.
//
// An edge whose endpoints declare different threads is rejected unless
// one of the two elements implements CrossThreadElement: ordinary
// elements keep no locks around their own fields, so a push or pull
// reaching them from a foreign thread would race.
func (rt *Runtime) bindEdges(edges []EdgeSpec, threadOf map[string]int) error {
	for _, e := range edges {
		src, ok := rt.elements[e.SrcID]
		if !ok {
			return fmt.Errorf("runtime: edge references unknown source id %q", e.SrcID)
		}
		dst, ok := rt.elements[e.DstID]
		if !ok {
			return fmt.Errorf("runtime: edge references unknown destination id %q", e.DstID)
		}

		if threadOf[e.SrcID] != threadOf[e.DstID] {
			_, srcCrosses := src.(CrossThreadElement)
			_, dstCrosses := dst.(CrossThreadElement)
			if !srcCrosses && !dstCrosses {
				return fmt.Errorf(
					"runtime: edge %s:%d -> %s:%d crosses threads (%d -> %d) without a cross-thread element",
					e.SrcID, e.SrcPort, e.DstID, e.DstPort, threadOf[e.SrcID], threadOf[e.DstID])
			}
		}

		srcPorter, ok := src.(element.Porter)
		if !ok {
			return fmt.Errorf("runtime: element %q does not expose ports", e.SrcID)
		}
		dstPorter, ok := dst.(element.Porter)
		if !ok {
			return fmt.Errorf("runtime: element %q does not expose ports", e.DstID)
		}

		outputs := srcPorter.OutputPorts()
		if e.SrcPort < 0 || e.SrcPort >= len(outputs) {
			return fmt.Errorf("runtime: %q has no output port %d", e.SrcID, e.SrcPort)
		}
		inputs := dstPorter.InputPorts()
		if e.DstPort < 0 || e.DstPort >= len(inputs) {
			return fmt.Errorf("runtime: %q has no input port %d", e.DstID, e.DstPort)
		}

		_, dstBatchPusher := dst.(port.BatchPusher)
		var downstream []port.BatchNotifiee
		if bn, ok := dst.(port.BatchNotifiee); ok {
			downstream = append(downstream, bn)
		}
		outputs[e.SrcPort].Bind(dst, e.DstPort, dstBatchPusher, downstream)

		_, srcBatchPuller := src.(port.BatchPuller)
		inputs[e.DstPort].Bind(src, e.SrcPort, srcBatchPuller)
	}
	return nil
}

// Run starts the shared scheduler and blocks until the context is
// cancelled or the driver-stop flag is observed.
func (rt *Runtime) Run(ctx context.Context) error {
	return rt.Sched.Run(ctx)
}

// Stop raises the cooperative driver-stop flag; handlers may call this
// from within a running graph to request an orderly shutdown.
func (rt *Runtime) Stop() {
	rt.Sched.PleaseStopDriver()
}

// Cleanup tears down every element in reverse declaration order, the
// mirror image of the initialize order, so that releasers run before the
// allocators they depend on.
func (rt *Runtime) Cleanup() {
	for i := len(rt.order) - 1; i >= 0; i-- {
		rt.elements[rt.order[i]].Cleanup(element.CleanupInitialized)
	}
}
