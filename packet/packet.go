// Package packet implements the framework's zero-copy, refcounted packet
// buffer and its singly-linked batch representation.
//
// Grounded on the teacher's gopacket-based capture path
// (pcap/pcap.go, pcap/packet_util.go in the retrieved akita-cli sources) and
// on FastClick's include/click/packet.hh lineage referenced throughout
// original_source/lib/*.cc. Click represents a PacketBatch as the head
// Packet itself, carrying count/tail bookkeeping that only the head uses;
// this package keeps that shape; callers hold a `*Packet` and treat it as
// either "one packet" or "the head of a batch" depending on context.
package packet

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// AnnotationSize is the fixed size of the opaque per-packet scratch area.
const AnnotationSize = 48

// ErrOffsetOutOfRange is returned by the slicing operations when the
// requested adjustment would move the data pointer outside
// [buffer, buffer+buffer_size].
var ErrOffsetOutOfRange = errors.New("packet: offset out of range")

// sharedBuffer is the refcounted backing store a family of clones shares.
// Only the buffer is shared; every clone owns its own header (offsets,
// annotations, next pointer).
type sharedBuffer struct {
	data       []byte
	refcount   int32 // atomic
	destructor func([]byte)
}

func (b *sharedBuffer) ref() {
	atomic.AddInt32(&b.refcount, 1)
}

func (b *sharedBuffer) unref() {
	if atomic.AddInt32(&b.refcount, -1) == 0 {
		if b.destructor != nil {
			b.destructor(b.data)
		}
	}
}

// Packet is a refcounted slice of a shared byte buffer plus the bookkeeping
// the framework hangs off it: header-layer offsets, an intrusive link for
// batching, and a fixed annotation area.
//
// When a Packet is the head of a batch, count and tail are meaningful and
// describe the whole chain; on every other member of the chain they are
// unused. This mirrors FastClick's convention that the count/tail live in
// annotation slots of the head packet only.
type Packet struct {
	buf *sharedBuffer

	begin   int // start of the allocation usable by this packet (headroom bound)
	dataOff int // offset of packet data within buf.data
	length  int // length of packet data
	end     int // end of the allocation usable by this packet (tailroom bound)

	macOffset       int // -1 if unset, else offset from dataOff's base (buf.data index)
	networkOffset   int
	transportOffset int

	anno [AnnotationSize]byte

	next *Packet // intrusive batch link

	// Valid only when this Packet is a batch head.
	count int
	tail  *Packet
}

// New wraps buf as an exclusively-owned Packet with headroom bytes of
// headroom and tailroom bytes of tailroom around the payload.
func New(buf []byte, headroom, tailroom int, destructor func([]byte)) *Packet {
	total := make([]byte, headroom+len(buf)+tailroom)
	copy(total[headroom:], buf)
	return &Packet{
		buf: &sharedBuffer{
			data:       total,
			refcount:   1,
			destructor: destructor,
		},
		begin:           0,
		dataOff:         headroom,
		length:          len(buf),
		end:             len(total),
		macOffset:       -1,
		networkOffset:   -1,
		transportOffset: -1,
	}
}

// Data returns the packet's payload. The returned slice aliases the shared
// buffer; callers must call Uniqueify first if they intend to mutate it and
// refcount might be greater than one.
func (p *Packet) Data() []byte {
	return p.buf.data[p.dataOff : p.dataOff+p.length]
}

// Length reports the current payload length.
func (p *Packet) Length() int {
	return p.length
}

// Headroom reports the number of bytes available before the data pointer
// inside the shared buffer.
func (p *Packet) Headroom() int {
	return p.dataOff - p.begin
}

// Tailroom reports the number of bytes available after the payload inside
// the shared buffer.
func (p *Packet) Tailroom() int {
	return p.end - (p.dataOff + p.length)
}

// BufferSize is the total capacity backing this packet's view:
// headroom + length + tailroom.
func (p *Packet) BufferSize() int {
	return p.end - p.begin
}

// Refcount returns the current reference count of the shared buffer.
func (p *Packet) Refcount() int32 {
	return atomic.LoadInt32(&p.buf.refcount)
}

// Writable reports whether this packet has exclusive ownership of its
// buffer, i.e. whether it may be mutated in place.
func (p *Packet) Writable() bool {
	return p.Refcount() == 1
}

// Pull advances the data pointer by n bytes, shrinking the payload from the
// front.
func (p *Packet) Pull(n int) error {
	if n < 0 || p.dataOff+n > p.end || n > p.length {
		return ErrOffsetOutOfRange
	}
	p.dataOff += n
	p.length -= n
	return nil
}

// Push prepends n bytes by retracting the data pointer into headroom.
func (p *Packet) Push(n int) error {
	if n < 0 || p.dataOff-n < p.begin {
		return ErrOffsetOutOfRange
	}
	p.dataOff -= n
	p.length += n
	return nil
}

// Take shortens the payload from the tail by n bytes.
func (p *Packet) Take(n int) error {
	if n < 0 || n > p.length {
		return ErrOffsetOutOfRange
	}
	p.length -= n
	return nil
}

// Put extends the payload at the tail by n bytes, growing the shared buffer
// if tailroom is insufficient. Returns nil (a "null packet") on allocation
// failure; callers must treat a nil return as "the packet has been
// disposed" only when Put is called as `p = p.Put(n)`.
func (p *Packet) Put(n int) *Packet {
	if n < 0 {
		return nil
	}
	if p.dataOff+p.length+n <= p.end {
		p.length += n
		return p
	}
	// Tailroom exhausted: grow. growBuffer always copies the payload into
	// a freshly allocated buffer, shared or not, and drops this packet's
	// reference to the old one.
	grown := p.growBuffer(n)
	return grown
}

func (p *Packet) growBuffer(extra int) *Packet {
	newCap := p.BufferSize() + extra + p.length // generous: avoid repeated regrowth
	newData := make([]byte, newCap)
	headroom := p.Headroom()
	copy(newData[headroom:], p.Data())

	old := p.buf
	p.buf = &sharedBuffer{data: newData, refcount: 1, destructor: old.destructor}
	p.begin = 0
	p.dataOff = headroom
	p.length += extra
	p.end = newCap
	old.unref()
	return p
}

// Clone increments the shared buffer's refcount and returns a new Packet
// header aliasing the same bytes; no data is copied.
func (p *Packet) Clone() *Packet {
	p.buf.ref()
	clone := *p
	clone.next = nil
	clone.count = 0
	clone.tail = nil
	return &clone
}

// Uniqueify guarantees exclusive ownership of the backing buffer, copying
// it if another reference exists. Returns the (possibly new) packet, or
// nil on allocation failure.
func (p *Packet) Uniqueify() *Packet {
	if p.Writable() {
		return p
	}

	newData := make([]byte, p.BufferSize())
	copy(newData, p.buf.data[p.begin:p.end])

	old := p.buf
	clone := *p
	clone.buf = &sharedBuffer{data: newData, refcount: 1, destructor: nil}
	clone.dataOff = p.dataOff - p.begin
	clone.begin = 0
	clone.end = p.end - p.begin
	old.unref()
	return &clone
}

// Kill decrements the refcount and, once it reaches zero, returns the
// buffer to its allocator via the destructor. Kill only affects a single
// packet; use FastKill on a batch.
func (p *Packet) Kill() {
	p.buf.unref()
}

// Header-offset accessors. Offsets are absolute indices into the shared
// buffer; -1 means "unset". Invariant: mac <= network <= transport <=
// dataOff+length, enforced by SetLayerOffsets.

func (p *Packet) MACOffset() int       { return p.macOffset }
func (p *Packet) NetworkOffset() int   { return p.networkOffset }
func (p *Packet) TransportOffset() int { return p.transportOffset }

// SetLayerOffsets records the mac/network/transport header boundaries,
// rejecting any assignment that would violate mac <= network <= transport
// <= data+length.
func (p *Packet) SetLayerOffsets(mac, network, transport int) error {
	end := p.dataOff + p.length
	if mac < 0 {
		mac = p.dataOff
	}
	if network < mac || transport < network || transport > end {
		return errors.New("packet: invalid layer offsets")
	}
	p.macOffset, p.networkOffset, p.transportOffset = mac, network, transport
	return nil
}

// Annotation returns a view into the fixed 48-byte scratch area for
// direct reads. Prefer the typed helpers in annotation.go.
func (p *Packet) Annotation() *[AnnotationSize]byte {
	return &p.anno
}
