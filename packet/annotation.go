package packet

import "encoding/binary"

// Named sub-ranges of the 48-byte annotation area. Every annotation is
// an offset+size pair; the layout below is checked once at package init
// to guarantee none overlap.
const (
	annoDstIP          = 0  // 4 bytes
	annoAggregateID    = 4  // 4 bytes
	annoPaint          = 8  // 1 byte
	annoPaint2         = 9  // 1 byte
	annoPerfCounter    = 16 // 8 bytes
	annoFirstTimestamp = 24 // 8 bytes (UnixNano)
	annoSequenceNumber = 32 // 4 bytes
	// [36, 48) is left unassigned scratch space for user elements.
)

type annoRange struct {
	name        string
	off, length int
}

var annoLayout = []annoRange{
	{"dst-ip", annoDstIP, 4},
	{"aggregate-id", annoAggregateID, 4},
	{"paint", annoPaint, 1},
	{"paint2", annoPaint2, 1},
	{"perf-counter", annoPerfCounter, 8},
	{"first-timestamp", annoFirstTimestamp, 8},
	{"sequence-number", annoSequenceNumber, 4},
}

func init() {
	for i, a := range annoLayout {
		if a.off+a.length > AnnotationSize {
			panic("packet: annotation " + a.name + " overflows annotation area")
		}
		for j, b := range annoLayout {
			if i == j {
				continue
			}
			if a.off < b.off+b.length && b.off < a.off+a.length {
				panic("packet: annotations " + a.name + " and " + b.name + " overlap")
			}
		}
	}
}

// DstIPAnno returns the destination-IP annotation (4 bytes, big-endian).
func (p *Packet) DstIPAnno() [4]byte {
	var v [4]byte
	copy(v[:], p.anno[annoDstIP:annoDstIP+4])
	return v
}

// SetDstIPAnno writes the destination-IP annotation.
func (p *Packet) SetDstIPAnno(v [4]byte) {
	copy(p.anno[annoDstIP:annoDstIP+4], v[:])
}

// AggregateAnno returns the per-flow aggregate/classification id annotation.
func (p *Packet) AggregateAnno() uint32 {
	return binary.BigEndian.Uint32(p.anno[annoAggregateID : annoAggregateID+4])
}

// SetAggregateAnno writes the aggregate id annotation.
func (p *Packet) SetAggregateAnno(v uint32) {
	binary.BigEndian.PutUint32(p.anno[annoAggregateID:annoAggregateID+4], v)
}

// PaintAnno returns the paint annotation used by paint-based switches.
func (p *Packet) PaintAnno() byte { return p.anno[annoPaint] }

// SetPaintAnno sets the paint annotation.
func (p *Packet) SetPaintAnno(v byte) { p.anno[annoPaint] = v }

// Paint2Anno returns the secondary paint annotation.
func (p *Packet) Paint2Anno() byte { return p.anno[annoPaint2] }

// SetPaint2Anno sets the secondary paint annotation.
func (p *Packet) SetPaint2Anno(v byte) { p.anno[annoPaint2] = v }

// PerfCounterAnno returns the perf-counter annotation (e.g. a cycle-count
// timestamp stamped by an upstream analysis element).
func (p *Packet) PerfCounterAnno() uint64 {
	return binary.BigEndian.Uint64(p.anno[annoPerfCounter : annoPerfCounter+8])
}

// SetPerfCounterAnno sets the perf-counter annotation.
func (p *Packet) SetPerfCounterAnno(v uint64) {
	binary.BigEndian.PutUint64(p.anno[annoPerfCounter:annoPerfCounter+8], v)
}

// FirstTimestampAnno returns the first-seen timestamp annotation as
// UnixNano.
func (p *Packet) FirstTimestampAnno() int64 {
	return int64(binary.BigEndian.Uint64(p.anno[annoFirstTimestamp : annoFirstTimestamp+8]))
}

// SetFirstTimestampAnno sets the first-seen timestamp annotation.
func (p *Packet) SetFirstTimestampAnno(unixNano int64) {
	binary.BigEndian.PutUint64(p.anno[annoFirstTimestamp:annoFirstTimestamp+8], uint64(unixNano))
}

// SequenceNumberAnno returns the sequence-number annotation (e.g. a
// Pipeliner ordering tag).
func (p *Packet) SequenceNumberAnno() uint32 {
	return binary.BigEndian.Uint32(p.anno[annoSequenceNumber : annoSequenceNumber+4])
}

// SetSequenceNumberAnno sets the sequence-number annotation.
func (p *Packet) SetSequenceNumberAnno(v uint32) {
	binary.BigEndian.PutUint32(p.anno[annoSequenceNumber:annoSequenceNumber+4], v)
}
