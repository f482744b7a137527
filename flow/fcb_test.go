package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocateRelease(t *testing.T) {
	pool := NewPool(16, true)

	fcb := pool.Allocate(0)
	require.NotNil(t, fcb)
	assert.Len(t, fcb.Data, 16)

	fcb.Acquire(1)
	copy(fcb.Data, []byte("hello world1234!"))
	fcb.Release(1)
	assert.True(t, fcb.Released())

	fcb2 := pool.Allocate(0)
	assert.Same(t, fcb, fcb2, "released block should be reused from the thread's free-list")
	assert.Equal(t, make([]byte, 16), fcb2.Data, "zero-on-release must clear the reserved area")
}

func TestReleaseChainRunsLIFO(t *testing.T) {
	pool := NewPool(8, false)
	fcb := pool.Allocate(0)
	fcb.Acquire(1)

	var order []int
	fcb.AddReleaseFunc(func(*ControlBlock) { order = append(order, 1) })
	fcb.AddReleaseFunc(func(*ControlBlock) { order = append(order, 2) })

	fcb.Release(1)
	assert.Equal(t, []int{2, 1}, order)
}

func TestReleaseOfOverReferencedBlockStaysAlive(t *testing.T) {
	pool := NewPool(8, false)
	fcb := pool.Allocate(0)
	fcb.Acquire(2)
	fcb.Release(1)
	assert.False(t, fcb.Released())
	assert.Equal(t, 1, fcb.Count())
}

func TestRemoveReleaseFuncSkipsRemovedCallback(t *testing.T) {
	pool := NewPool(8, false)
	fcb := pool.Allocate(0)
	fcb.Acquire(1)

	var order []int
	first := func(*ControlBlock) { order = append(order, 1) }
	second := func(*ControlBlock) { order = append(order, 2) }
	fcb.AddReleaseFunc(first)
	fcb.AddReleaseFunc(second)

	require.True(t, fcb.RemoveReleaseFunc(second))
	assert.False(t, fcb.RemoveReleaseFunc(second), "removing twice should report nothing left to remove")

	fcb.Release(1)
	assert.Equal(t, []int{1}, order)
}

func TestContextUnsetReleaseFunc(t *testing.T) {
	pool := NewPool(8, false)
	fcb := pool.Allocate(0)
	fcb.Acquire(1)

	ctx := NewContext()
	released := false
	fn := func(*ControlBlock) { released = true }
	ctx.Enter(fcb, func() {
		ctx.SetReleaseFunc(fn)
		assert.True(t, ctx.UnsetReleaseFunc(fn))
		ctx.Release(1)
	})
	assert.False(t, released, "release func removed before release must not run")
}

func TestContextAcquireReleaseAndTimeout(t *testing.T) {
	pool := NewPool(8, false)
	fcb := pool.Allocate(0)
	fcb.Acquire(1)

	ctx := NewContext()
	released := false
	ctx.Enter(fcb, func() {
		ctx.SetReleaseFunc(func(*ControlBlock) { released = true })
		ctx.AcquireTimeout(500)
		ctx.AcquireTimeout(200) // lower value must not override the max
		assert.Equal(t, 500, ctx.TimeoutMsec())
		ctx.Release(1)
	})
	assert.True(t, released)
	assert.Nil(t, ctx.Current())
}
