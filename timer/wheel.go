// Package timer implements the ordered set of pending timer events. It
// answers "how long until the next event" and "which events are due", and
// is driven exclusively by the protocol engine (nothing in this package
// touches sockets or the routing table).
package timer

import (
	"time"

	"github.com/encodeous/ripd/state"
)

// Now is the wheel's time source: monotonic seconds since epoch, integer
// precision. It is a variable so tests can freeze time deterministically.
var Now = func() int64 {
	return time.Now().Unix()
}

// Event is a single pending timer, keyed by (Kind, Key). Key is a
// destination router id for Timeout/Garbage timers and state.UpdateKey for
// the single Update timer.
type Event struct {
	Deadline int64
	Message  string
	Kind     state.TimerKind
	Key      state.RouterId
}

// Wheel is the pending-timer set. The zero value is ready to use.
type Wheel struct {
	events []Event
}

// Add appends a new timer. The caller is expected to have already removed
// any existing timer with the same (kind, key) pair: at most one timer per
// pair may exist at any instant.
func (w *Wheel) Add(deadline int64, message string, kind state.TimerKind, key state.RouterId) {
	w.events = append(w.events, Event{Deadline: deadline, Message: message, Kind: kind, Key: key})
}

// AddIn is a convenience wrapper computing the deadline from a duration in
// seconds from now.
func (w *Wheel) AddIn(delaySeconds int64, message string, kind state.TimerKind, key state.RouterId) {
	w.Add(Now()+delaySeconds, message, kind, key)
}

// Remove drops one event matching (kind, key), if any. If more than one
// exists due to a bug elsewhere, exactly one is removed.
func (w *Wheel) Remove(kind state.TimerKind, key state.RouterId) {
	for i, e := range w.events {
		if e.Kind == kind && e.Key == key {
			w.events = append(w.events[:i], w.events[i+1:]...)
			return
		}
	}
}

// NextDeadline returns the pending event with the smallest deadline and how
// many seconds from now it fires. If every pending event is already in the
// past, the delta for the earliest one is <= 0. Reports ok=false if the
// wheel is empty.
func (w *Wheel) NextDeadline() (delta int64, ev Event, ok bool) {
	if len(w.events) == 0 {
		return 0, Event{}, false
	}
	best := w.events[0]
	for _, e := range w.events[1:] {
		if e.Deadline < best.Deadline {
			best = e
		}
	}
	return best.Deadline - Now(), best, true
}

// Expired returns every event whose deadline has passed (<=now), leaving
// the wheel unmodified. Callers must Remove each one explicitly as they
// process it, rather than mutating the wheel while iterating this result.
func (w *Wheel) Expired() []Event {
	now := Now()
	out := make([]Event, 0)
	for _, e := range w.events {
		if e.Deadline <= now {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many timers are currently pending.
func (w *Wheel) Len() int {
	return len(w.events)
}

// Has reports whether a timer with the given (kind, key) currently exists.
func (w *Wheel) Has(kind state.TimerKind, key state.RouterId) bool {
	for _, e := range w.events {
		if e.Kind == kind && e.Key == key {
			return true
		}
	}
	return false
}
