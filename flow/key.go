package flow

import (
	"encoding/binary"
	"net"
)

// Key is the 5-tuple a packet classifies against.
type Key struct {
	SrcIP    [16]byte
	DstIP    [16]byte
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// NewKey builds a Key from parsed IPv4/IPv6 addresses and ports.
func NewKey(src, dst net.IP, srcPort, dstPort uint16, protocol uint8) Key {
	var k Key
	copy(k.SrcIP[:], src.To16())
	copy(k.DstIP[:], dst.To16())
	k.SrcPort = srcPort
	k.DstPort = dstPort
	k.Protocol = protocol
	return k
}

// str renders k as a fixed-width string suitable for use as a go-cache key
// (patrickmn/go-cache requires string keys).
func (k Key) str() string {
	var buf [37]byte
	copy(buf[0:16], k.SrcIP[:])
	copy(buf[16:32], k.DstIP[:])
	binary.BigEndian.PutUint16(buf[32:34], k.SrcPort)
	binary.BigEndian.PutUint16(buf[34:36], k.DstPort)
	buf[36] = k.Protocol
	return string(buf[:])
}
