package state

import (
	"sort"
)

// Table is a routing table: destination router id -> best known route.
// The zero value is not usable; construct one with NewTable so the
// self-entry invariant holds from the start.
type Table struct {
	Self    RouterId
	entries map[RouterId]Route
}

// NewTable creates a table containing only the mandatory self entry
// (self, 0).
func NewTable(self RouterId) *Table {
	return &Table{
		Self: self,
		entries: map[RouterId]Route{
			self: {NextHop: self, Cost: 0},
		},
	}
}

// Get returns the route to dest and whether it is present.
func (t *Table) Get(dest RouterId) (Route, bool) {
	r, ok := t.entries[dest]
	return r, ok
}

// Set installs or overwrites the route to dest. Setting the self entry is
// refused; it is never removed or mutated after NewTable.
func (t *Table) Set(dest RouterId, r Route) {
	if dest == t.Self {
		return
	}
	t.entries[dest] = r
}

// Delete removes dest from the table. Deleting the self entry is refused.
func (t *Table) Delete(dest RouterId) {
	if dest == t.Self {
		return
	}
	delete(t.entries, dest)
}

// Destinations returns every known destination, sorted, for deterministic
// iteration (serialization, tests, printing).
func (t *Table) Destinations() []RouterId {
	dests := make([]RouterId, 0, len(t.entries))
	for d := range t.entries {
		dests = append(dests, d)
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i] < dests[j] })
	return dests
}

// Clone returns a deep copy, used by the relaxer's idempotence tests and
// anywhere the caller must compare tables before/after a mutation.
func (t *Table) Clone() *Table {
	c := &Table{Self: t.Self, entries: make(map[RouterId]Route, len(t.entries))}
	for d, r := range t.entries {
		c.entries[d] = r
	}
	return c
}

// Equal reports whether two tables carry identical entries.
func (t *Table) Equal(o *Table) bool {
	if t.Self != o.Self || len(t.entries) != len(o.entries) {
		return false
	}
	for d, r := range t.entries {
		or, ok := o.entries[d]
		if !ok || or != r {
			return false
		}
	}
	return true
}

// Len returns the number of destinations currently in the table.
func (t *Table) Len() int {
	return len(t.entries)
}
