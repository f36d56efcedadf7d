package algo

import (
	"testing"

	"github.com/encodeous/ripd/state"
	"github.com/encodeous/ripd/wire"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func tableDiff(t *testing.T, want, got *state.Table) {
	t.Helper()
	wantDests := want.Destinations()
	gotDests := got.Destinations()
	if diff := cmp.Diff(wantDests, gotDests); diff != "" {
		t.Fatalf("destination sets differ (-want +got):\n%s", diff)
	}
	for _, d := range wantDests {
		wr, _ := want.Get(d)
		gr, _ := got.Get(d)
		if wr != gr {
			t.Fatalf("route to %v: want %v got %v", d, wr, gr)
		}
	}
}

func TestRelaxLearnsNewDestination(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 1}

	updated := Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 1}}, 2, neighbours)

	assert.Equal(t, []state.RouterId{3}, updated)
	r, ok := tbl.Get(3)
	assert.True(t, ok)
	assert.Equal(t, state.Route{NextHop: 2, Cost: 2}, r)
}

func TestRelaxRefreshesAuthoritativeUpstream(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 1}
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 1}}, 2, neighbours)

	// same upstream re-advertises a worse cost: must still refresh (the
	// owner is authoritative even when worse).
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 5}}, 2, neighbours)
	r, _ := tbl.Get(3)
	assert.Equal(t, state.Route{NextHop: 2, Cost: 6}, r)
}

func TestRelaxIgnoresWorseAlternateUpstream(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 1, 4: 1}
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 1}}, 2, neighbours) // cost 2 via 2

	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 5}}, 4, neighbours) // cost 6 via 4, worse
	r, _ := tbl.Get(3)
	assert.Equal(t, state.Route{NextHop: 2, Cost: 2}, r, "should not switch to a worse alternate path")
}

func TestRelaxAdoptsCheaperAlternateUpstream(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 5, 4: 1}
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 1}}, 2, neighbours) // cost 6 via 2

	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 1}}, 4, neighbours) // cost 2 via 4, cheaper
	r, _ := tbl.Get(3)
	assert.Equal(t, state.Route{NextHop: 4, Cost: 2}, r)
}

func TestRelaxClampsToInfinity(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 15}
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 15}}, 2, neighbours)
	r, _ := tbl.Get(3)
	assert.Equal(t, state.Infinity, r.Cost, "no relaxer output may exceed Infinity")
}

func TestRelaxIdempotence(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 1}
	adv := []wire.DestMetric{{Dest: 3, Metric: 4}, {Dest: 5, Metric: 2}}

	Relax(tbl, adv, 2, neighbours)
	once := tbl.Clone()
	Relax(tbl, adv, 2, neighbours)

	tableDiff(t, once, tbl)
}

func TestRelaxNeverIgnoresRetraction(t *testing.T) {
	tbl := state.NewTable(1)
	neighbours := map[state.RouterId]state.Metric{2: 1}
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: 1}}, 2, neighbours)
	Relax(tbl, []wire.DestMetric{{Dest: 3, Metric: state.Infinity}}, 2, neighbours)
	r, ok := tbl.Get(3)
	assert.True(t, ok)
	assert.Equal(t, state.Infinity, r.Cost)
}

func TestIntegritySweepPoisonsOrphanedTransitRoute(t *testing.T) {
	tbl := state.NewTable(1)
	tbl.Set(2, state.Route{NextHop: 2, Cost: 1})
	tbl.Set(3, state.Route{NextHop: 2, Cost: 2})

	tbl.Delete(2) // simulate garbage collection of the transit router

	IntegritySweep(tbl)

	r, ok := tbl.Get(3)
	assert.True(t, ok, "the route entry itself is not removed by the sweep")
	assert.Equal(t, state.Infinity, r.Cost)
	assert.Equal(t, state.RouterId(2), r.NextHop, "next hop is preserved, only cost is poisoned")
}

func TestIntegritySweepLeavesHealthyRoutesAlone(t *testing.T) {
	tbl := state.NewTable(1)
	tbl.Set(2, state.Route{NextHop: 2, Cost: 1})
	tbl.Set(3, state.Route{NextHop: 2, Cost: 2})

	IntegritySweep(tbl)

	r, _ := tbl.Get(3)
	assert.Equal(t, state.Metric(2), r.Cost)
}

func TestIntegritySweepNeverTouchesSelf(t *testing.T) {
	tbl := state.NewTable(1)
	IntegritySweep(tbl)
	r, ok := tbl.Get(1)
	assert.True(t, ok)
	assert.Equal(t, state.Route{NextHop: 1, Cost: 0}, r)
}
