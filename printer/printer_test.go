package printer

import (
	"strings"
	"testing"

	"github.com/encodeous/ripd/state"
	"github.com/stretchr/testify/assert"
)

func TestStringIncludesHeaderAndEntries(t *testing.T) {
	tbl := state.NewTable(1)
	tbl.Set(2, state.Route{NextHop: 2, Cost: 1})
	tbl.Set(3, state.Route{NextHop: 2, Cost: state.Infinity})

	out := String(tbl)
	assert.True(t, strings.Contains(out, "Destination"))
	assert.True(t, strings.Contains(out, "Next Hop"))
	assert.True(t, strings.Contains(out, "Cost"))
	assert.True(t, strings.Contains(out, "unreachable"))
}

func TestStringSortsByDestination(t *testing.T) {
	tbl := state.NewTable(5)
	tbl.Set(2, state.Route{NextHop: 2, Cost: 1})
	tbl.Set(9, state.Route{NextHop: 2, Cost: 2})
	tbl.Set(1, state.Route{NextHop: 2, Cost: 3})

	out := String(tbl)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	rows := lines[1:] // drop header
	// the three routes set above plus the self entry (5)
	assert.Len(t, rows, 4)
	assert.True(t, strings.Contains(rows[0], "1"))
	assert.True(t, strings.Contains(rows[1], "2"))
	assert.True(t, strings.Contains(rows[2], "5"))
	assert.True(t, strings.Contains(rows[3], "9"))
}
