package flow

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Classifier recognises which flow a packet belongs to, attaches its FCB
// to the calling thread's Context, and maintains the per-thread mapping
// under a capacity limit with eviction.
//
// Each thread owns its own Table and FCB pool shard; Classifier never
// locks across threads on the data plane, only the rare cross-thread
// migration path takes a lock.
type Classifier struct {
	pool     *Pool
	newTable func() Table

	mu      sync.RWMutex
	tables  []Table
	context []*Context

	// lastKey/lastFCB hold the last (key, FCB) pair per thread so
	// identical consecutive packets bypass the table lookup entirely.
	// Disabled unless EnableSingleEntryCache is called.
	cacheEnabled bool
	lastKey      []Key
	lastFCB      []*ControlBlock

	tableFullDrops int64 // atomic

	// migration dedupes concurrent lookups for a flow whose owning
	// thread changed underneath a reader.
	migration singleflight.Group
	owner     sync.Map // Key -> int (owning thread index)

	defaultTimeout time.Duration
}

// NewClassifier builds a Classifier with numThreads independent shards,
// each backed by a Table produced by newTable (typically NewWheelTable or
// NewLazyTable) and an FCB pool shared across threads (Pool itself
// shards its free-lists per thread index).
func NewClassifier(numThreads int, pool *Pool, newTable func() Table, defaultTimeout time.Duration) *Classifier {
	c := &Classifier{
		pool:           pool,
		newTable:       newTable,
		tables:         make([]Table, numThreads),
		context:        make([]*Context, numThreads),
		lastKey:        make([]Key, numThreads),
		lastFCB:        make([]*ControlBlock, numThreads),
		defaultTimeout: defaultTimeout,
	}
	for i := 0; i < numThreads; i++ {
		c.tables[i] = newTable()
		c.context[i] = NewContext()
	}
	return c
}

// EnableSingleEntryCache turns on the last-flow shortcut: a single-entry
// cache recording the last key and FCB seen on the thread.
func (c *Classifier) EnableSingleEntryCache() {
	c.cacheEnabled = true
}

// Context returns the per-thread flow execution context, so callers can
// read Context.Current() after Classify installs the FCB.
func (c *Classifier) Context(thread int) *Context {
	return c.context[thread]
}

// TableFullDrops reports the number of packets dropped because their
// thread's table was full and the overflow policy refused the insert.
func (c *Classifier) TableFullDrops() int64 {
	return atomic.LoadInt64(&c.tableFullDrops)
}

// Classify resolves k to its FCB on thread, creating a new flow (and FCB)
// on a miss, and installs the FCB as the thread's current flow context.
// It returns (nil, false) if the flow table was full and insertion was
// refused, in which case the caller must drop the packet and the drop has
// already been counted.
func (c *Classifier) Classify(thread int, k Key) (*ControlBlock, bool) {
	if c.cacheEnabled && c.lastKey[thread] == k && c.lastFCB[thread] != nil {
		c.context[thread].current = c.lastFCB[thread]
		return c.lastFCB[thread], true
	}

	table := c.tables[thread]
	if fcb, hit := table.Lookup(k); hit {
		c.rememberLocked(thread, k, fcb)
		c.context[thread].current = fcb
		return fcb, true
	}

	// Miss on this thread's table: check whether the flow recently
	// migrated away from another thread before treating it as brand new.
	// A copy-on-first-miss migration handshake searches the old owner's
	// table before allocating a fresh block.
	if fcb, hit := c.searchMigrated(thread, k); hit {
		c.rememberLocked(thread, k, fcb)
		c.context[thread].current = fcb
		return fcb, true
	}

	fcb := c.pool.Allocate(thread)
	fcb.BidiID = uuid.New()
	timeout := c.context[thread].TimeoutMsec()
	d := c.defaultTimeout
	if timeout > 0 {
		d = time.Duration(timeout) * time.Millisecond
	}
	if !table.Insert(k, fcb, d) {
		atomic.AddInt64(&c.tableFullDrops, 1)
		c.pool.ReleaseOnThread(thread, fcb)
		return nil, false
	}
	c.owner.Store(k, thread)
	c.rememberLocked(thread, k, fcb)
	c.context[thread].current = fcb
	return fcb, true
}

func (c *Classifier) rememberLocked(thread int, k Key, fcb *ControlBlock) {
	if c.cacheEnabled {
		c.lastKey[thread] = k
		c.lastFCB[thread] = fcb
	}
}

// searchMigrated looks for k on the thread it was last known to belong
// to, deduping concurrent searches for the same key via singleflight so a
// burst of packets for one migrating flow only probes the old owner's
// table once.
func (c *Classifier) searchMigrated(thread int, k Key) (*ControlBlock, bool) {
	ownerV, ok := c.owner.Load(k)
	if !ok {
		return nil, false
	}
	owner := ownerV.(int)
	if owner == thread {
		return nil, false
	}

	v, _, _ := c.migration.Do(k.str(), func() (interface{}, error) {
		fcb, hit := c.tables[owner].Lookup(k)
		if !hit {
			return (*ControlBlock)(nil), nil
		}
		c.tables[owner].Remove(k)
		c.owner.Store(k, thread)
		return fcb, nil
	})
	fcb, _ := v.(*ControlBlock)
	return fcb, fcb != nil
}

// Evict removes k from thread's table unconditionally, e.g. on FIN/RST.
func (c *Classifier) Evict(thread int, k Key) {
	c.tables[thread].Remove(k)
	c.owner.Delete(k)
}

// Len reports the number of live flows on thread.
func (c *Classifier) Len(thread int) int {
	return c.tables[thread].Len()
}
