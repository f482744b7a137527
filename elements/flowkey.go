package elements

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/akitasoftware/flowcore/flow"
	"github.com/akitasoftware/flowcore/packet"
)

// FlowKeyFunc extracts a 5-tuple flow.Key from a packet, or ok=false if
// the packet does not carry a key-bearing protocol. Concrete protocol
// parsing stays out of the core framework; FlowKeyFunc is the seam a
// deployment plugs a parser into.
type FlowKeyFunc func(p *packet.Packet) (flow.Key, bool)

// IPv4TCPKey extracts a flow.Key from an IPv4 packet carrying TCP or UDP,
// reading from p.NetworkOffset() onward. Grounded on the teacher's
// gopacket-based decode path (pcap/pcap.go uses gopacket.NewPacketSource);
// here a single packet's bytes are decoded lazily rather than a whole
// gopacket.Packet being carried alongside the framework's own Packet type,
// since the framework's own Packet type is the only representation that
// crosses element boundaries.
func IPv4TCPKey(p *packet.Packet) (flow.Key, bool) {
	data := p.Data()
	no := p.NetworkOffset()
	if no < 0 || no >= len(data) {
		return flow.Key{}, false
	}

	parsed := gopacket.NewPacket(data[no:], layers.LayerTypeIPv4, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	ip4, ok := parsed.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return flow.Key{}, false
	}

	var srcPort, dstPort uint16
	switch {
	case parsed.Layer(layers.LayerTypeTCP) != nil:
		tcp := parsed.Layer(layers.LayerTypeTCP).(*layers.TCP)
		srcPort, dstPort = uint16(tcp.SrcPort), uint16(tcp.DstPort)
	case parsed.Layer(layers.LayerTypeUDP) != nil:
		udp := parsed.Layer(layers.LayerTypeUDP).(*layers.UDP)
		srcPort, dstPort = uint16(udp.SrcPort), uint16(udp.DstPort)
	default:
		return flow.Key{}, false
	}

	return flow.NewKey(ip4.SrcIP, ip4.DstIP, srcPort, dstPort, uint8(ip4.Protocol)), true
}
