package flow

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// LazyTable is a lazy (epoch) eviction scheme: each entry is timestamped
// at insert, and an entry older than its timeout is transparently treated
// as absent and reclaimable on the next insert, with no maintenance pass
// required.
//
// Built directly on patrickmn/go-cache, whose native per-item expiration
// *is* this scheme: Get returns "not found" once an item's expiration has
// passed even though the janitor goroutine may not yet have swept it, and
// Set on an expired key transparently replaces it. The teacher's
// util.serviceNameCache uses the same library for the same reason: TTL'd
// lookups with lazy reclamation, no maintenance pass required.
type LazyTable struct {
	c        *cache.Cache
	capacity int
}

// NewLazyTable constructs a lazy table. defaultTimeout is used if a caller
// inserts with timeout<=0; cleanupInterval controls how often go-cache's
// background janitor sweeps expired-but-unread entries (this does not
// affect correctness, only memory reclamation latency).
func NewLazyTable(defaultTimeout, cleanupInterval time.Duration, capacity int) *LazyTable {
	return &LazyTable{
		c:        cache.New(defaultTimeout, cleanupInterval),
		capacity: capacity,
	}
}

// Lookup returns the FCB for k if present and not expired.
func (lt *LazyTable) Lookup(k Key) (*ControlBlock, bool) {
	v, ok := lt.c.Get(k.str())
	if !ok {
		return nil, false
	}
	return v.(*ControlBlock), true
}

// Insert records fcb under k with the given eviction timeout. If k is new
// and the table is at capacity, it first evicts the entry whose expiration
// is earliest. Lookup does not refresh an entry's expiration, so among
// entries with equal timeouts this is the one inserted longest ago, not
// the one looked up least recently.
func (lt *LazyTable) Insert(k Key, fcb *ControlBlock, timeout time.Duration) bool {
	if _, exists := lt.c.Get(k.str()); !exists && lt.capacity > 0 && lt.c.ItemCount() >= lt.capacity {
		lt.evictOldest()
	}
	if timeout <= 0 {
		lt.c.SetDefault(k.str(), fcb)
	} else {
		lt.c.Set(k.str(), fcb, timeout)
	}
	return true
}

// Remove evicts k unconditionally.
func (lt *LazyTable) Remove(k Key) {
	lt.c.Delete(k.str())
}

// Len reports the number of (possibly not-yet-swept) entries.
func (lt *LazyTable) Len() int {
	return lt.c.ItemCount()
}

func (lt *LazyTable) evictOldest() {
	var oldestKey string
	var oldestExp int64
	first := true
	for k, item := range lt.c.Items() {
		if first || item.Expiration < oldestExp {
			oldestKey = k
			oldestExp = item.Expiration
			first = false
		}
	}
	if !first {
		lt.c.Delete(oldestKey)
	}
}
