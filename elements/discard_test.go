package elements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akitasoftware/flowcore/packet"
	"github.com/akitasoftware/flowcore/port"
)

func TestDiscardKillsEveryPacket(t *testing.T) {
	d := NewDiscard().(port.Pusher)
	p := packet.New([]byte("x"), 0, 0, nil)

	// Discard has no output; Push must not panic even though port 0 is
	// the only input.
	assert.NotPanics(t, func() {
		d.Push(0, p)
	})
}
