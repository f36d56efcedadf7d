// Package state holds the pure data model shared by every other package:
// router identifiers, metrics, routes, the routing table, neighbour sets,
// timer events and the validated configuration record. Nothing here does
// I/O; it is the vocabulary the rest of the daemon is written in.
package state

import "fmt"

// RouterId identifies a router. It is opaque: no CIDR, no structure, just
// an integer that is unique per node in the simulated network.
type RouterId int

func (r RouterId) String() string {
	return fmt.Sprintf("%d", int(r))
}

// Metric is a RIP-style hop cost in [0, Infinity]. 0 means "self", Infinity
// (16) means "unreachable". Arithmetic on metrics must always clamp to
// Infinity via AddMetric rather than overflowing or wrapping.
type Metric uint8

// Infinity is the reserved sentinel metric meaning unreachable.
const Infinity Metric = 16

// AddMetric adds two metrics, clamping the result to Infinity.
func AddMetric(a, b Metric) Metric {
	sum := int(a) + int(b)
	if sum >= int(Infinity) {
		return Infinity
	}
	return Metric(sum)
}

// Route is a single routing-table entry. The destination itself is not
// stored here; it is the key under which a Route lives in a Table.
type Route struct {
	NextHop RouterId
	Cost    Metric
}

func (r Route) String() string {
	return fmt.Sprintf("(nh=%s cost=%d)", r.NextHop, r.Cost)
}

// TimerKind distinguishes the three kinds of timer the engine tracks.
type TimerKind int

const (
	KindUpdate TimerKind = iota
	KindTimeout
	KindGarbage
)

func (k TimerKind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	case KindTimeout:
		return "timeout"
	case KindGarbage:
		return "garbage"
	default:
		return "unknown"
	}
}

// UpdateKey is the sentinel timer key used for the single periodic update
// timer, which is not keyed on a destination.
const UpdateKey RouterId = -1

// OutputEndpoint names one configured neighbour: the UDP port advertisements
// are sent to, the direct link cost to it, and its router id.
type OutputEndpoint struct {
	Port   int
	Cost   Metric
	NodeId RouterId
}

// Config is the validated configuration record produced by the config
// parser (see the `config` package) and consumed by core.NewEngine.
type Config struct {
	Id      RouterId
	Inputs  []int
	Outputs []OutputEndpoint
	Period  int
	Timeout int
	Garbage int
}

// Neighbours returns the direct-link-cost map derived once from the
// configured outputs, keyed by neighbour router id.
func (c Config) Neighbours() map[RouterId]Metric {
	n := make(map[RouterId]Metric, len(c.Outputs))
	for _, o := range c.Outputs {
		n[o.NodeId] = o.Cost
	}
	return n
}
