package elements

import (
	"github.com/akitasoftware/flowcore/element"
	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
)

// NewDiscard returns a sink element that kills every packet it receives,
// grounded on FastClick's Discard element (a one-input, zero-output
// terminal used to cap an otherwise-unterminated push chain).
func NewDiscard() element.Element {
	d := &element.SimpleAction{
		Transform: func(p *packet.Packet) *packet.Packet {
			p.Kill()
			return nil
		},
	}
	d.Inputs = make([]port.InputPort, 1)
	return d
}
