// Package printer renders a routing table as a human-readable, fixed-width
// three-column dump of destination, next hop, and cost.
package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/encodeous/ripd/state"
)

// Fprint writes t as a fixed-width table of Destination | Next Hop | Cost
// rows, sorted by destination, to w.
func Fprint(w io.Writer, t *state.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Destination\tNext Hop\tCost\n")
	for _, d := range t.Destinations() {
		r, _ := t.Get(d)
		cost := fmt.Sprintf("%d", r.Cost)
		if r.Cost == state.Infinity {
			cost = "16 (unreachable)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d, r.NextHop, cost)
	}
	_ = tw.Flush()
}

// String renders t the same way Fprint does, for use in tests and log
// lines.
func String(t *state.Table) string {
	var b strings.Builder
	Fprint(&b, t)
	return b.String()
}
