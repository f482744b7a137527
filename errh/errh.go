// Package errh implements the control-plane error accumulator threaded
// through configure/initialize: messages accumulate with severity and
// propagate to the caller via a Handler.
//
// Grounded on the teacher's printer package (printer/printer.go), which
// already distinguishes informational/warning/error/fatal output levels
// and colors them via logrusorgru/aurora; Handler reuses that severity
// vocabulary instead of inventing a new one. Handler only accumulates
// messages; it does not print them.
package errh

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Severity orders messages from least to most severe.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Message is one accumulated diagnostic, optionally naming the element
// that raised it.
type Message struct {
	Severity Severity
	Element  string
	Err      error
}

func (m Message) String() string {
	if m.Element == "" {
		return fmt.Sprintf("[%s] %v", m.Severity, m.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", m.Severity, m.Element, m.Err)
}

// Handler accumulates Messages across a configure/initialize pass. It is
// safe for concurrent use since handlers may run config callbacks from
// multiple elements during graph construction.
type Handler struct {
	mu       sync.Mutex
	messages []Message
}

// New returns an empty Handler.
func New() *Handler {
	return &Handler{}
}

// Add records a message at the given severity against element (may be
// empty for handler-wide diagnostics not tied to one element).
func (h *Handler) Add(severity Severity, element string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, Message{Severity: severity, Element: element, Err: err})
}

// Errorf records an Error-severity message built from format/args.
func (h *Handler) Errorf(element, format string, args ...interface{}) {
	h.Add(Error, element, errors.Errorf(format, args...))
}

// Warningf records a Warning-severity message built from format/args.
func (h *Handler) Warningf(element, format string, args ...interface{}) {
	h.Add(Warning, element, errors.Errorf(format, args...))
}

// Messages returns a copy of every message accumulated so far.
func (h *Handler) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// HasErrors reports whether any message at Error severity or above was
// recorded; a configure/initialize pass that logged only Warning/Info
// messages still succeeds.
func (h *Handler) HasErrors() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.messages {
		if m.Severity >= Error {
			return true
		}
	}
	return false
}

// Err collapses every Error-or-above message into a single wrapped error,
// or nil if there were none. Used by callers (e.g. runtime.Build)
// that must return a plain error from an API boundary.
func (h *Handler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var lines []string
	for _, m := range h.messages {
		if m.Severity < Error {
			continue
		}
		lines = append(lines, m.String())
	}
	if len(lines) == 0 {
		return nil
	}
	msg := lines[0]
	for _, l := range lines[1:] {
		msg += "; " + l
	}
	return errors.New(msg)
}
