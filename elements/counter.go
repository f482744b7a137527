package elements

import (
	"strconv"
	"sync/atomic"

	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
)

// Counter maintains a packet and byte count over everything that flows
// through its single input/output pair, exposed via the "count" and
// "byte_count" read handlers and a "reset_counts" button. Grounded on
// FastClick's MultiCounter
// (original_source/elements/standard/multicounter.cc); this port drops
// MultiCounter's per-input-port breakdown and rate tracking and keeps
// only the count/byte_count/reset surface.
type Counter struct {
	element.Base

	count     int64 // atomic
	byteCount int64 // atomic
}

// NewCounter returns a one-input, one-output pass-through counter.
func NewCounter() element.Element {
	c := &Counter{}
	c.Inputs = make([]port.InputPort, 1)
	c.Outputs = make([]port.OutputPort, 1)
	return c
}

func (c *Counter) Push(inputPort int, p *packet.Packet) {
	atomic.AddInt64(&c.count, 1)
	atomic.AddInt64(&c.byteCount, int64(p.Length()))
	c.Outputs[0].Push(p)
}

func (c *Counter) PushBatch(inputPort int, batch *packet.PacketBatch) {
	n := int64(0)
	bytes := int64(0)
	packet.Walk(batch, func(p *packet.Packet) {
		n++
		bytes += int64(p.Length())
	})
	atomic.AddInt64(&c.count, n)
	atomic.AddInt64(&c.byteCount, bytes)
	c.Outputs[0].PushBatch(batch)
}

func (c *Counter) reset() {
	atomic.StoreInt64(&c.count, 0)
	atomic.StoreInt64(&c.byteCount, 0)
}

func (c *Counter) AddHandlers(reg *element.Registry) {
	reg.AddReadHandler(c.Name, "count", element.FlagCalm, func() (string, error) {
		return strconv.FormatInt(atomic.LoadInt64(&c.count), 10), nil
	})
	reg.AddReadHandler(c.Name, "byte_count", element.FlagCalm, func() (string, error) {
		return strconv.FormatInt(atomic.LoadInt64(&c.byteCount), 10), nil
	})
	reg.AddWriteHandler(c.Name, "reset_counts", element.FlagButton, func(string) error {
		c.reset()
		return nil
	})
}
