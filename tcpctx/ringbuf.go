package tcpctx

import "github.com/pkg/errors"

// ErrRangeNotBuffered is returned by GetData when any requested byte falls
// outside [startOffset, startOffset+size).
var ErrRangeNotBuffered = errors.New("tcpctx: requested range not buffered")

// RetransmitBuffer stores the post-modification bytes of a TCP flow keyed
// by their original-stream sequence number, so a downstream element can
// retransmit exactly what was sent even after in-flight rewriting.
//
// Grounded on FastClick's CircularBuffer
// (original_source/lib/circularbuffer.cc), which manages a fixed
// BufferPool-allocated array with manual wrap-around start/end indices
// because Click runs without a garbage collector and wants to reuse
// pooled memory. Go's slice append already gives amortized O(1) growth
// and the garbage collector reclaims what removeDataAtBeginning drops, so
// this port keeps the external contract (addDataAtEnd / removeDataAtBeginning
// / getData, keyed by original sequence number) but represents the
// buffered window as a plain contiguous byte slice instead of hand-rolled
// circular indices — the same simplification the teacher's gopacket-based
// capture path takes (fixed-size packet.Packet buffers, no manual ring
// math) rather than reimplementing C pointer arithmetic that Go's
// runtime already subsumes.
type RetransmitBuffer struct {
	data []byte

	// startOffset is the original-stream sequence number of data[0].
	startOffset uint32
	haveStart   bool

	// maxBytes caps retained bytes; 0 means unbounded growth, matching
	// the original's unconditional increaseBufferSize.
	maxBytes int
}

// NewRetransmitBuffer returns an empty buffer. maxBytes<=0 means
// unbounded (matching FastClick's default); pass a positive value to cap
// retained bytes, evicting from the front as needed.
func NewRetransmitBuffer(maxBytes int) *RetransmitBuffer {
	return &RetransmitBuffer{maxBytes: maxBytes}
}

// SetMaxBufferSize adjusts the retention cap after construction.
func (rb *RetransmitBuffer) SetMaxBufferSize(maxBytes int) {
	rb.maxBytes = maxBytes
}

// Size reports the number of bytes currently buffered.
func (rb *RetransmitBuffer) Size() int {
	return len(rb.data)
}

// StartOffset reports the sequence number of the first buffered byte.
func (rb *RetransmitBuffer) StartOffset() uint32 {
	return rb.startOffset
}

// IsBlank reports whether any data has ever been added.
func (rb *RetransmitBuffer) IsBlank() bool {
	return !rb.haveStart
}

// AddDataAtEnd appends data to the buffer, establishing startOffset as
// seq if this is the first write.
func (rb *RetransmitBuffer) AddDataAtEnd(seq uint32, data []byte) {
	if !rb.haveStart {
		rb.startOffset = seq
		rb.haveStart = true
	}
	rb.data = append(rb.data, data...)

	if rb.maxBytes > 0 && len(rb.data) > rb.maxBytes {
		drop := len(rb.data) - rb.maxBytes
		rb.data = rb.data[drop:]
		rb.startOffset += uint32(drop)
	}
}

// RemoveDataAtBeginning discards every byte before newStart.
func (rb *RetransmitBuffer) RemoveDataAtBeginning(newStart uint32) {
	if !rb.haveStart {
		return
	}
	removed := newStart - rb.startOffset
	if removed == 0 {
		return
	}
	if int(removed) > len(rb.data) {
		removed = uint32(len(rb.data))
	}
	rb.data = rb.data[removed:]
	rb.startOffset += removed
}

// GetData returns a copy of the length bytes starting at seq
// (original-stream numbering), or ErrRangeNotBuffered if any requested
// byte is outside the buffered window.
func (rb *RetransmitBuffer) GetData(seq uint32, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if !rb.haveStart || seqLT(seq, rb.startOffset) {
		return nil, ErrRangeNotBuffered
	}
	start := int(seq - rb.startOffset)
	if start+length > len(rb.data) {
		return nil, ErrRangeNotBuffered
	}
	out := make([]byte, length)
	copy(out, rb.data[start:start+length])
	return out, nil
}
