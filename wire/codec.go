// Package wire implements the on-wire advertisement codec: a
// self-describing JSON record carrying a RIP-style command/version pair,
// the sender's router id, and a list of (addr_identifier, router_id,
// metric) entries.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/encodeous/ripd/state"
)

// MaxDatagramSize is the largest advertisement transport.Transport will
// hand to Decode; larger datagrams are truncated by the receiver.
const MaxDatagramSize = 4096

// command and version are fixed constants for this protocol revision. Any
// packet not carrying exactly these values is rejected as malformed.
const (
	command = 2
	version = 2
	// addrIdentifier is the constant tag carried by every entry, matching
	// the RIPv2 AFI convention the original protocol imitates.
	addrIdentifier = "AF_INET"
)

// entry is the wire shape of a single routing-table row.
type entry struct {
	AddrIdentifier string       `json:"addr_identifier"`
	RouterId       state.RouterId `json:"router_id"`
	Metric         state.Metric   `json:"metric"`
}

// packet is the wire shape of a full advertisement.
type packet struct {
	Command int          `json:"command"`
	Version int          `json:"version"`
	Rid     state.RouterId `json:"rid"`
	Entries []entry      `json:"entries"`
}

// MalformedPacket is returned by Decode when the payload is not
// well-formed JSON or does not carry the expected command/version.
type MalformedPacket struct {
	Reason string
	Cause  error
}

func (e *MalformedPacket) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed packet: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed packet: %s", e.Reason)
}

func (e *MalformedPacket) Unwrap() error {
	return e.Cause
}

// DestMetric is a flattened (destination, metric) pair as returned by
// Decode, before the caller attaches a next-hop (that's the relaxer's job).
type DestMetric struct {
	Dest   state.RouterId
	Metric state.Metric
}

// Encode is a total function: it never fails on well-formed inputs. It
// serializes sender's table (already excluding nothing; poisoned reverse is
// applied by the caller before entries reach here) into the wire format.
func Encode(sender state.RouterId, entries []DestMetric) []byte {
	p := packet{
		Command: command,
		Version: version,
		Rid:     sender,
		Entries: make([]entry, 0, len(entries)),
	}
	for _, e := range entries {
		p.Entries = append(p.Entries, entry{
			AddrIdentifier: addrIdentifier,
			RouterId:       e.Dest,
			Metric:         e.Metric,
		})
	}
	// json.Marshal on this shape cannot fail: no channels, funcs, or
	// cyclic structures are ever placed into a packet.
	b, _ := json.Marshal(p)
	return b
}

// Decode parses a datagram into the sender's id and its flattened list of
// (destination, metric) entries. It fails with *MalformedPacket on
// unparseable input or a command/version mismatch. Unknown fields in the
// payload are tolerated and ignored.
func Decode(data []byte) (state.RouterId, []DestMetric, error) {
	var p packet
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, nil, &MalformedPacket{Reason: "invalid JSON", Cause: err}
	}
	if p.Command != command {
		return 0, nil, &MalformedPacket{Reason: fmt.Sprintf("unexpected command %d", p.Command)}
	}
	if p.Version != version {
		return 0, nil, &MalformedPacket{Reason: fmt.Sprintf("unexpected version %d", p.Version)}
	}
	out := make([]DestMetric, 0, len(p.Entries))
	for _, e := range p.Entries {
		out = append(out, DestMetric{Dest: e.RouterId, Metric: e.Metric})
	}
	return p.Rid, out, nil
}
