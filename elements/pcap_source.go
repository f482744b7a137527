package elements

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/errh"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
	"github.com/akitasoftware/flowcore/printer"
	"github.com/akitasoftware/flowcore/runtime"
	"github.com/akitasoftware/flowcore/sched"
)

// defaultSnapLen matches tcpdump's default, same constant the teacher
// used for its own live-capture path.
const defaultSnapLen = 262144

// PcapSource is a push-mode source element driving its single output
// port from live interface capture, giving the graph a real packet feed
// to exercise rather than only synthetic test sources.
//
// Grounded on the teacher's pcap.pcapImpl.capturePackets
// (postmanlabs-observability-cli/pcap/pcap.go): a gopacket.PacketSource
// over a live pcap.Handle, fanned into a buffered channel by a goroutine
// so a slow downstream push never blocks the capture handle; here that
// channel is drained by a cooperative Task instead of a dedicated
// consumer goroutine, so this source participates in the scheduler like
// any other task-driven element.
type PcapSource struct {
	element.Base

	iface     string
	bpfFilter string
	thread    int

	handle *pcap.Handle
	pktCh  <-chan gopacket.Packet
	done   chan struct{}

	rt *runtime.Runtime
}

// NewPcapSource returns a zero-output-arity-checked source; Configure
// supplies the interface name (args[0]) and optional BPF filter
// (args[1]).
func NewPcapSource() element.Element {
	s := &PcapSource{}
	s.Outputs = make([]port.OutputPort, 1)
	return s
}

func (s *PcapSource) SetRuntime(rt *runtime.Runtime) {
	s.rt = rt
}

// SetThread satisfies runtime.ThreadAware, picking which scheduler loop
// drains this capture handle.
func (s *PcapSource) SetThread(thread int) {
	s.thread = thread
}

func (s *PcapSource) Configure(args []string, eh *errh.Handler) element.Status {
	if len(args) == 0 {
		eh.Errorf(s.Name, "PcapSource requires an interface name argument")
		return element.Failed
	}
	s.iface = args[0]
	if len(args) > 1 {
		s.bpfFilter = args[1]
	}
	return element.OK
}

func (s *PcapSource) Initialize(eh *errh.Handler) element.Status {
	handle, err := pcap.OpenLive(s.iface, defaultSnapLen, true, pcap.BlockForever)
	if err != nil {
		eh.Add(errh.Error, s.Name, errors.Wrapf(err, "failed to open pcap on %s", s.iface))
		return element.Failed
	}
	if s.bpfFilter != "" {
		if err := handle.SetBPFFilter(s.bpfFilter); err != nil {
			handle.Close()
			eh.Add(errh.Error, s.Name, errors.Wrap(err, "failed to set BPF filter"))
			return element.Failed
		}
	}
	s.handle = handle
	s.done = make(chan struct{})
	s.pktCh = gopacket.NewPacketSource(handle, handle.LinkType()).Packets()

	if s.rt == nil {
		eh.Errorf(s.Name, "PcapSource was never given a runtime")
		return element.Failed
	}
	task := sched.NewTask(s.pollOnce)
	s.rt.Sched.Loop(s.thread).AddTask(task)
	return element.OK
}

// pollOnce drains at most one captured packet per quantum, matching the
// scheduler's contract that a task returns promptly.
func (s *PcapSource) pollOnce() bool {
	select {
	case pkt, ok := <-s.pktCh:
		if !ok {
			return false
		}
		s.emit(pkt)
		return true
	default:
		return false
	}
}

func (s *PcapSource) emit(pkt gopacket.Packet) {
	data := append([]byte(nil), pkt.Data()...)
	p := packet.New(data, 0, 0, nil)

	network := 0
	if ll := pkt.LinkLayer(); ll != nil {
		network = len(ll.LayerContents())
	}
	transport := network
	if nl := pkt.NetworkLayer(); nl != nil {
		transport += len(nl.LayerContents())
	}
	if err := p.SetLayerOffsets(0, network, transport); err != nil {
		printer.Debugf("PcapSource %s: %v\n", s.Name, err)
	}

	s.Outputs[0].Push(p)
}

func (s *PcapSource) Cleanup(stage element.CleanupStage) {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
}

func (s *PcapSource) AddHandlers(reg *element.Registry) {
	reg.AddReadHandler(s.Name, "interface", element.FlagCalm, func() (string, error) {
		return fmt.Sprintf("%s (filter=%q)", s.iface, s.bpfFilter), nil
	})
}
