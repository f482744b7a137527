package elements

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akitasoftware/flowcore/flow"
	"github.com/akitasoftware/flowcore/packet"
)

// buildIPv4TCP constructs a minimal (no-options) IPv4+TCP frame by hand,
// so the test exercises the real byte layout IPv4TCPKey decodes rather
// than round-tripping through an encoder.
func buildIPv4TCP(srcIP, dstIP net.IP, srcPort, dstPort uint16, payload []byte) []byte {
	totalLen := 20 + 20 + len(payload)
	buf := make([]byte, totalLen)

	buf[0] = 0x45 // version 4, IHL 5 words
	binary.BigEndian.PutUint16(buf[2:4], uint16(totalLen))
	buf[8] = 64 // TTL
	buf[9] = 6  // protocol: TCP
	copy(buf[12:16], srcIP.To4())
	copy(buf[16:20], dstIP.To4())

	tcp := buf[20:]
	binary.BigEndian.PutUint16(tcp[0:2], srcPort)
	binary.BigEndian.PutUint16(tcp[2:4], dstPort)
	tcp[12] = 0x50 // data offset 5 words

	copy(buf[40:], payload)
	return buf
}

func TestIPv4TCPKeyExtractsFiveTuple(t *testing.T) {
	src := net.IPv4(10, 0, 0, 1)
	dst := net.IPv4(10, 0, 0, 2)
	data := buildIPv4TCP(src, dst, 1234, 80, []byte("hello"))

	p := packet.New(data, 0, 0, nil)
	require.NoError(t, p.SetLayerOffsets(0, 0, 20))

	key, ok := IPv4TCPKey(p)
	require.True(t, ok)
	assert.Equal(t, flow.NewKey(src, dst, 1234, 80, 6), key)
}

func TestIPv4TCPKeyRejectsPacketWithoutNetworkOffset(t *testing.T) {
	p := packet.New([]byte("not even ip"), 0, 0, nil)
	_, ok := IPv4TCPKey(p)
	assert.False(t, ok)
}
