// Package algo implements the Bellman-Ford relaxation rule that merges a
// neighbour's advertised table into the local routing table. Relax is a
// pure function of its inputs: it never touches timers or sockets.
package algo

import (
	"github.com/encodeous/ripd/wire"

	"github.com/encodeous/ripd/state"
)

// Relax merges a received table R (as a flattened list of (dest, metric)
// pairs) from neighbour s into the local table t, using the direct-link
// cost map neighbours. It returns the set of destinations R carried with a
// finite (<Infinity) metric.
//
// t is mutated in place; callers that need the pre-relax table for
// idempotence or change-detection checks should Clone it first.
func Relax(t *state.Table, r []wire.DestMetric, s state.RouterId, neighbours map[state.RouterId]state.Metric) []state.RouterId {
	updated := make([]state.RouterId, 0, len(r))

	// The direct link cost to s, if s is a configured neighbour, is
	// authoritative and never changes regardless of what s advertises.
	if cost, ok := neighbours[s]; ok {
		t.Set(s, state.Route{NextHop: s, Cost: cost})
	}

	sRoute, haveS := t.Get(s)

	for _, adv := range r {
		d := adv.Dest
		if adv.Metric < state.Infinity {
			updated = append(updated, d)
		}

		if !haveS {
			// We have no route to the sender at all (e.g. it isn't a
			// configured neighbour and we've never learned a route to it
			// transitively yet); we cannot compute a cost through it.
			continue
		}

		existing, exists := t.Get(d)

		// On the wire, an entry only carries (destination, metric); the
		// next hop of anything R advertises is always the sender s (see
		// wire.Decode / entry.RouterId).
		switch {
		case !exists && adv.Metric != state.Infinity:
			// Brand new destination, learned via s.
			t.Set(d, state.Route{NextHop: s, Cost: state.AddMetric(adv.Metric, sRoute.Cost)})

		case exists:
			// A route is refreshed unconditionally from its current owner
			// (same next hop, and that next hop's id is itself below the
			// Infinity sentinel), even if the new cost is worse: the
			// owner's report is authoritative. Otherwise it is only
			// replaced by a strictly cheaper path through a different
			// upstream; ties and worse alternates are left unchanged.
			if existing.NextHop == s && int(s) < int(state.Infinity) {
				t.Set(d, state.Route{NextHop: s, Cost: state.AddMetric(adv.Metric, sRoute.Cost)})
			} else if int(existing.Cost) > int(adv.Metric)+int(sRoute.Cost) {
				t.Set(d, state.Route{NextHop: s, Cost: state.AddMetric(adv.Metric, sRoute.Cost)})
			}
		}
	}

	return updated
}

// IntegritySweep marks unreachable any destination whose next hop is not
// itself a known destination in the table. It runs after every relax pass
// so that garbage-collecting a transit router poisons everything routed
// through it. Timers for such destinations are left untouched; garbage
// collection will remove them in due course.
func IntegritySweep(t *state.Table) {
	for _, d := range t.Destinations() {
		if d == t.Self {
			continue
		}
		r, _ := t.Get(d)
		if _, ok := t.Get(r.NextHop); !ok {
			t.Set(d, state.Route{NextHop: r.NextHop, Cost: state.Infinity})
		}
	}
}
