// Package flow implements the flow control block, its per-thread pool, and
// the flow classification table.
//
// Grounded on FastClick's FlowControlBlock / FCBPool
// (original_source/include/click/flow_common.hh): a reference-counted,
// pool-allocated struct with a fixed-size reserved data area that flow
// elements carve up at configuration time, plus a LIFO chain of release
// callbacks so elements can observe flow end without owning the block.
package flow

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReleaseFunc runs when an FCB's refcount drops to zero, before the block
// is returned to its pool. A block's chain of release funcs each runs
// exactly once per release.
type ReleaseFunc func(*ControlBlock)

// ControlBlock is the per-flow state object threaded through push_flow
// calls. Elements reserve a slice of Data via the classifier's layout
// pass and type-assert/cast their own view onto it.
type ControlBlock struct {
	mu sync.Mutex

	useCount int

	LastSeen time.Time

	// BidiID identifies this block's flow for as long as it stays bound to
	// one logical 5-tuple; it is assigned fresh each time the classifier
	// binds a block to a new flow; akin to the teacher's
	// akinet.TCPBidiID(uuid.New()) tagging in pcap/stream.go.
	BidiID uuid.UUID

	// releaseChain is a LIFO stack of callbacks run in reverse
	// registration order when the block is released, mirroring
	// fcb_set_release_fnt's chain semantics.
	releaseChain []ReleaseFunc

	pool *Pool

	// Data is the reserved per-flow scratch area; its length is fixed by
	// Pool.dataSize for every block the pool hands out.
	Data []byte
}

// Acquire adds n to the block's reference count.
func (fcb *ControlBlock) Acquire(n int) {
	fcb.mu.Lock()
	fcb.useCount += n
	fcb.mu.Unlock()
}

// Release subtracts n from the reference count; when the count transitions
// to zero or below, every registered release callback runs (most-recently
// registered first) and the block returns to its pool.
func (fcb *ControlBlock) Release(n int) {
	fcb.mu.Lock()
	fcb.useCount -= n
	if fcb.useCount > 0 {
		fcb.mu.Unlock()
		return
	}
	chain := fcb.releaseChain
	fcb.releaseChain = nil
	pool := fcb.pool
	fcb.mu.Unlock()

	for i := len(chain) - 1; i >= 0; i-- {
		chain[i](fcb)
	}
	if pool != nil {
		pool.release(fcb)
	}
}

// Released reports whether the block's refcount has reached zero.
func (fcb *ControlBlock) Released() bool {
	fcb.mu.Lock()
	defer fcb.mu.Unlock()
	return fcb.useCount <= 0
}

// Count returns the current reference count.
func (fcb *ControlBlock) Count() int {
	fcb.mu.Lock()
	defer fcb.mu.Unlock()
	return fcb.useCount
}

// AddReleaseFunc pushes fn onto the release chain, mirroring
// fcb_set_release_fnt's LIFO chain.
func (fcb *ControlBlock) AddReleaseFunc(fn ReleaseFunc) {
	fcb.mu.Lock()
	fcb.releaseChain = append(fcb.releaseChain, fn)
	fcb.mu.Unlock()
}

// RemoveReleaseFunc removes the most recently added registration whose
// underlying function matches fn, reporting whether one was found. Go
// func values aren't comparable with ==, so identity is compared by the
// function's code pointer via reflect — sufficient for the common case
// of unregistering a named method or package-level function. Closures
// created from the same function literal share one code pointer, so they
// match each other even when they captured different variables.
func (fcb *ControlBlock) RemoveReleaseFunc(fn ReleaseFunc) bool {
	target := reflect.ValueOf(fn).Pointer()
	fcb.mu.Lock()
	defer fcb.mu.Unlock()
	for i := len(fcb.releaseChain) - 1; i >= 0; i-- {
		if reflect.ValueOf(fcb.releaseChain[i]).Pointer() == target {
			fcb.releaseChain = append(fcb.releaseChain[:i], fcb.releaseChain[i+1:]...)
			return true
		}
	}
	return false
}

// reset reinitializes a freshly allocated or recycled block to use_count=0
// (FastClick's FlowControlBlock::initialize).
func (fcb *ControlBlock) reset(zeroOnRelease bool) {
	fcb.useCount = 0
	fcb.releaseChain = nil
	fcb.BidiID = uuid.UUID{}
	if zeroOnRelease {
		for i := range fcb.Data {
			fcb.Data[i] = 0
		}
	}
}
