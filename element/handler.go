package element

import (
	"sync"

	"github.com/pkg/errors"
)

// Flag annotates a handler with scheduling/safety constraints: Calm
// (rate-limited), Button (write-only trigger), Expensive (must not be
// polled on hot paths), Deprecated.
type Flag int

const (
	FlagNone Flag = 0
	FlagCalm Flag = 1 << iota
	FlagButton
	FlagExpensive
	FlagDeprecated
)

// ReadFunc produces a handler's current text value.
type ReadFunc func() (string, error)

// WriteFunc consumes a text value and reports the resulting status.
type WriteFunc func(value string) error

type handlerEntry struct {
	flags Flag
	read  ReadFunc
	write WriteFunc
}

// Registry is the control-plane's view of every element's named
// read/write endpoints, addressed as "<element>/<handler>". Handlers may
// be invoked from any goroutine; Registry itself is safe for concurrent
// use, but thread-safety of the ReadFunc/WriteFunc bodies is each
// element's own responsibility.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]handlerEntry
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]handlerEntry)}
}

// AddReadHandler registers a read-only endpoint.
func (r *Registry) AddReadHandler(element, name string, flags Flag, fn ReadFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := element + "/" + name
	e := r.handlers[key]
	e.flags |= flags
	e.read = fn
	r.handlers[key] = e
}

// AddWriteHandler registers a write-only (or button) endpoint.
func (r *Registry) AddWriteHandler(element, name string, flags Flag, fn WriteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := element + "/" + name
	e := r.handlers[key]
	e.flags |= flags
	e.write = fn
	r.handlers[key] = e
}

// Read invokes the named handler's ReadFunc.
func (r *Registry) Read(element, name string) (string, error) {
	r.mu.RLock()
	e, ok := r.handlers[element+"/"+name]
	r.mu.RUnlock()
	if !ok || e.read == nil {
		return "", errors.Errorf("element: no read handler %s/%s", element, name)
	}
	return e.read()
}

// Write invokes the named handler's WriteFunc.
func (r *Registry) Write(element, name, value string) error {
	r.mu.RLock()
	e, ok := r.handlers[element+"/"+name]
	r.mu.RUnlock()
	if !ok || e.write == nil {
		return errors.Errorf("element: no write handler %s/%s", element, name)
	}
	return e.write(value)
}

// Flags returns the flags registered for a handler.
func (r *Registry) Flags(element, name string) (Flag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.handlers[element+"/"+name]
	return e.flags, ok
}
