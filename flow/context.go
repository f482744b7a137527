package flow

import "sync"

// Context is the per-thread execution state a flow element's push_flow
// call runs inside: the currently active FCB ("fcb_stack" in
// FastClick) plus the combined eviction timeout requested by
// elements along the path.
//
// One Context exists per scheduler thread; it is not safe for concurrent
// use from multiple threads, matching the framework's no-lock-on-hot-path
// per-thread ownership model.
type Context struct {
	current *ControlBlock

	// timeoutMsec is the maximum of every fcb_acquire_timeout call along
	// the current path; multiple elements combine by taking the max.
	timeoutMsec int
}

// NewContext returns an empty per-thread flow context.
func NewContext() *Context {
	return &Context{}
}

// Enter installs fcb as the current block for the duration of fn, then
// restores whatever was previously current. This mirrors FastClick's
// SFCB_STACK macro, which saves/restores the thread-local fcb_stack
// pointer around a nested call.
func (c *Context) Enter(fcb *ControlBlock, fn func()) {
	prev := c.current
	c.current = fcb
	defer func() { c.current = prev }()
	fn()
}

// Current returns the FCB active on this thread, or nil outside of an
// Enter call.
func (c *Context) Current() *ControlBlock {
	return c.current
}

// Acquire adds n to the current FCB's refcount, in lock-step with packet
// accounting. It is a no-op if no FCB is current.
func (c *Context) Acquire(n int) {
	if c.current != nil {
		c.current.Acquire(n)
	}
}

// Release subtracts n from the current FCB's refcount.
func (c *Context) Release(n int) {
	if c.current != nil {
		c.current.Release(n)
	}
}

// AcquireTimeout records a desired eviction timeout for the current flow;
// the context keeps the maximum of every request seen so far.
func (c *Context) AcquireTimeout(msec int) {
	if msec > c.timeoutMsec {
		c.timeoutMsec = msec
	}
}

// TimeoutMsec returns the combined timeout requested for the flow
// currently entered, resetting it is the caller's responsibility between
// flows (call ResetTimeout when starting a new flow's processing).
func (c *Context) TimeoutMsec() int {
	return c.timeoutMsec
}

// ResetTimeout clears the accumulated timeout; call once per flow-table
// miss before classification runs its chain of elements.
func (c *Context) ResetTimeout() {
	c.timeoutMsec = 0
}

// SetReleaseFunc registers fn on the current FCB's release chain.
func (c *Context) SetReleaseFunc(fn ReleaseFunc) {
	if c.current != nil {
		c.current.AddReleaseFunc(fn)
	}
}

// UnsetReleaseFunc removes fn from the current FCB's release chain,
// mirroring fcb_remove_release_fnt. It is a no-op if no FCB is current.
func (c *Context) UnsetReleaseFunc(fn ReleaseFunc) bool {
	if c.current == nil {
		return false
	}
	return c.current.RemoveReleaseFunc(fn)
}

// perThread is a convenience registry mapping a thread index to its
// Context, used by elements that are handed a thread index rather than
// already holding the right Context — a handler read arriving from an
// arbitrary goroutine, for instance.
type perThread struct {
	mu       sync.Mutex
	contexts map[int]*Context
}

func newPerThread() *perThread {
	return &perThread{contexts: make(map[int]*Context)}
}

func (pt *perThread) get(thread int) *Context {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	ctx, ok := pt.contexts[thread]
	if !ok {
		ctx = NewContext()
		pt.contexts[thread] = ctx
	}
	return ctx
}
