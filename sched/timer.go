package sched

import (
	"container/heap"
	"sync"
	"time"
)

// TimerCallback runs when a Timer expires, typically to wake a parked
// Task.
type TimerCallback func()

// Timer is one entry in a thread's timer wheel, keyed by absolute expiry
// time.
type Timer struct {
	expiry time.Time
	cb     TimerCallback
	index  int // heap index, maintained by container/heap
	active bool
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].expiry.Before(h[j].expiry) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// TimerWheel is a single thread's min-heap of pending Timers. A mutex
// guards the heap, so scheduling, unscheduling and advancing are safe to
// call from multiple goroutines; callbacks run outside the lock.
type TimerWheel struct {
	mu sync.Mutex
	h  timerHeap
}

// NewTimerWheel returns an empty wheel.
func NewTimerWheel() *TimerWheel {
	return &TimerWheel{}
}

// ScheduleAfter schedules cb to run once, after d elapses.
func (w *TimerWheel) ScheduleAfter(d time.Duration, cb TimerCallback) *Timer {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := &Timer{expiry: time.Now().Add(d), cb: cb, active: true}
	heap.Push(&w.h, t)
	return t
}

// Unschedule cancels a pending timer; a no-op if it already fired.
func (w *TimerWheel) Unschedule(t *Timer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !t.active || t.index < 0 {
		return
	}
	heap.Remove(&w.h, t.index)
	t.active = false
}

// Advance runs every callback whose expiry is at or before now, returning
// the count fired. A scheduler loop calls this once per quantum with the
// current time.
func (w *TimerWheel) Advance(now time.Time) int {
	var due []*Timer
	w.mu.Lock()
	for len(w.h) > 0 && !w.h[0].expiry.After(now) {
		t := heap.Pop(&w.h).(*Timer)
		t.active = false
		due = append(due, t)
	}
	w.mu.Unlock()

	for _, t := range due {
		t.cb()
	}
	return len(due)
}

// NextExpiry reports the earliest pending expiry, and whether the wheel
// is non-empty.
func (w *TimerWheel) NextExpiry() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.h) == 0 {
		return time.Time{}, false
	}
	return w.h[0].expiry, true
}
