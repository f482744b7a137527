package flow

import "sync"

// DefaultPoolSize caps the number of free blocks a single thread's
// free-list holds before spilling to the global list.
const DefaultPoolSize = 2048

// DefaultPoolCount caps the number of whole per-thread lists the global
// spill list holds.
const DefaultPoolCount = 32

// Pool is a per-thread-sharded allocator of fixed-size ControlBlocks. Each
// goroutine-affine shard is identified by an integer thread index the
// caller assigns, matching the framework's one-OS-thread-per-scheduler-loop
// model; Pool itself does no goroutine-affinity enforcement, it only
// shards its free-lists by the index it is given.
type Pool struct {
	dataSize      int
	zeroOnRelease bool
	poolSize      int
	poolCount     int

	shardsMu sync.Mutex // guards growing `shards` itself, not its contents
	shards   []*shard

	// globalMu guards global, the lock-protected spill list shared by all
	// threads on per-thread-pool overflow/underflow.
	globalMu sync.Mutex
	global   []*localList
}

type shard struct {
	mu   sync.Mutex
	free *localList
}

// localList is a whole per-thread free-list, moved as a unit between a
// shard and the pool's global spill list (FastClick's SFCBList).
type localList struct {
	blocks []*ControlBlock
}

// NewPool constructs a Pool whose blocks reserve dataSize bytes of flow
// element scratch space. zeroOnRelease requests that a block's Data be
// zeroed before reuse.
func NewPool(dataSize int, zeroOnRelease bool) *Pool {
	return &Pool{
		dataSize:      dataSize,
		zeroOnRelease: zeroOnRelease,
		poolSize:      DefaultPoolSize,
		poolCount:     DefaultPoolCount,
	}
}

// SetLimits overrides the default POOL_SIZE / POOL_COUNT caps.
func (p *Pool) SetLimits(poolSize, poolCount int) {
	p.poolSize = poolSize
	p.poolCount = poolCount
}

func (p *Pool) shardFor(thread int) *shard {
	p.shardsMu.Lock()
	defer p.shardsMu.Unlock()
	for len(p.shards) <= thread {
		p.shards = append(p.shards, &shard{})
	}
	return p.shards[thread]
}

func (p *Pool) allocNew() *ControlBlock {
	return &ControlBlock{
		pool: p,
		Data: make([]byte, p.dataSize),
	}
}

// Allocate returns a ControlBlock for use by thread, preferring the
// thread's own free-list, then the global spill list, then a fresh
// allocation.
func (p *Pool) Allocate(thread int) *ControlBlock {
	sh := p.shardFor(thread)

	sh.mu.Lock()
	if sh.free != nil && len(sh.free.blocks) > 0 {
		fcb := sh.free.pop()
		sh.mu.Unlock()
		fcb.reset(p.zeroOnRelease)
		return fcb
	}
	sh.mu.Unlock()

	p.globalMu.Lock()
	if len(p.global) > 0 {
		list := p.global[len(p.global)-1]
		p.global = p.global[:len(p.global)-1]
		p.globalMu.Unlock()

		sh.mu.Lock()
		sh.free = list
		fcb := sh.free.pop()
		sh.mu.Unlock()
		fcb.reset(p.zeroOnRelease)
		return fcb
	}
	p.globalMu.Unlock()

	return p.allocNew()
}

// release returns fcb to thread 0's shard by default; callers that track
// per-thread ownership should instead call ReleaseOnThread.
func (p *Pool) release(fcb *ControlBlock) {
	p.ReleaseOnThread(0, fcb)
}

// ReleaseOnThread returns fcb to thread's free-list, spilling the whole
// list to the global ring when it reaches poolSize.
func (p *Pool) ReleaseOnThread(thread int, fcb *ControlBlock) {
	sh := p.shardFor(thread)

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.free == nil {
		sh.free = &localList{}
	}
	if len(sh.free.blocks) >= p.poolSize {
		spilled := sh.free
		sh.free = &localList{}

		p.globalMu.Lock()
		if len(p.global) < p.poolCount {
			p.global = append(p.global, spilled)
		}
		// Over poolCount whole lists: drop the spilled list, matching
		// the ring's fixed capacity (MPMCRing<SFCBList, SFCB_POOL_COUNT>
		// simply fails the insert and the caller loses the list).
		p.globalMu.Unlock()
	}
	sh.free.add(fcb)
}

func (l *localList) add(fcb *ControlBlock) {
	l.blocks = append(l.blocks, fcb)
}

func (l *localList) pop() *ControlBlock {
	n := len(l.blocks)
	fcb := l.blocks[n-1]
	l.blocks = l.blocks[:n-1]
	return fcb
}

// DataSize returns the per-block reserved scratch size.
func (p *Pool) DataSize() int { return p.dataSize }
