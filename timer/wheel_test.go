package timer

import (
	"testing"

	"github.com/encodeous/ripd/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFrozenClock(t *testing.T, at int64) {
	t.Helper()
	old := Now
	Now = func() int64 { return at }
	t.Cleanup(func() { Now = old })
}

func TestAddRemoveSingleEvent(t *testing.T) {
	withFrozenClock(t, 1000)
	var w Wheel
	w.AddIn(30, "timeout", state.KindTimeout, 5)
	assert.True(t, w.Has(state.KindTimeout, 5))
	w.Remove(state.KindTimeout, 5)
	assert.False(t, w.Has(state.KindTimeout, 5))
	assert.Equal(t, 0, w.Len())
}

func TestRemoveDropsExactlyOne(t *testing.T) {
	withFrozenClock(t, 0)
	var w Wheel
	w.Add(5, "dup", state.KindTimeout, 1)
	w.Add(5, "dup", state.KindTimeout, 1)
	w.Remove(state.KindTimeout, 1)
	assert.Equal(t, 1, w.Len())
}

func TestNextDeadlinePicksEarliest(t *testing.T) {
	withFrozenClock(t, 100)
	var w Wheel
	w.Add(150, "later", state.KindGarbage, 2)
	w.Add(120, "sooner", state.KindTimeout, 1)
	delta, ev, ok := w.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, int64(20), delta)
	assert.Equal(t, state.KindTimeout, ev.Kind)
	assert.Equal(t, state.RouterId(1), ev.Key)
}

func TestNextDeadlineEmptyWheel(t *testing.T) {
	var w Wheel
	_, _, ok := w.NextDeadline()
	assert.False(t, ok)
}

func TestNextDeadlinePastEventReturnsNonPositiveDelta(t *testing.T) {
	withFrozenClock(t, 100)
	var w Wheel
	w.Add(90, "already due", state.KindTimeout, 3)
	delta, _, ok := w.NextDeadline()
	require.True(t, ok)
	assert.LessOrEqual(t, delta, int64(0))
}

func TestExpiredDoesNotMutateWheel(t *testing.T) {
	withFrozenClock(t, 100)
	var w Wheel
	w.Add(50, "due", state.KindTimeout, 1)
	w.Add(200, "not due", state.KindGarbage, 1)

	expired := w.Expired()
	if diff := cmp.Diff(1, len(expired)); diff != "" {
		t.Fatalf("expired mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, w.Len(), "Expired must not remove events itself")

	for _, e := range expired {
		w.Remove(e.Kind, e.Key)
	}
	assert.Equal(t, 1, w.Len())
}

func TestRearmReplacesRatherThanDuplicatesUpdateTimer(t *testing.T) {
	withFrozenClock(t, 0)
	var w Wheel
	w.AddIn(5, "update", state.KindUpdate, state.UpdateKey)
	w.Remove(state.KindUpdate, state.UpdateKey)
	w.AddIn(6, "update", state.KindUpdate, state.UpdateKey)
	assert.Equal(t, 1, w.Len())
	assert.True(t, w.Has(state.KindUpdate, state.UpdateKey))
}
