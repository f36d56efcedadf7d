// Package core is the top-level event loop of the routing daemon. It owns
// the routing table, the timer wheel, and the transport, and dispatches
// every state transition from a single goroutine.
package core

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/encodeous/ripd/algo"
	"github.com/encodeous/ripd/printer"
	"github.com/encodeous/ripd/state"
	"github.com/encodeous/ripd/timer"
	"github.com/encodeous/ripd/transport"
	"github.com/encodeous/ripd/wire"
)

// Engine owns everything the event loop touches: the routing table, the
// pending timers, the transport, and the static configuration derived from
// it. Nothing outside Start and Run mutates Table or Timers.
type Engine struct {
	Cfg        state.Config
	Neighbours map[state.RouterId]state.Metric
	Table      *state.Table
	Timers     timer.Wheel
	Transport  *transport.Transport
	Log        *slog.Logger
}

// NewEngine builds an Engine ready to Run, but does not yet bind sockets or
// send anything (see Start for the cold-start sequence).
func NewEngine(cfg state.Config, tr *transport.Transport, log *slog.Logger) *Engine {
	return &Engine{
		Cfg:        cfg,
		Neighbours: cfg.Neighbours(),
		Table:      state.NewTable(cfg.Id),
		Transport:  tr,
		Log:        log,
	}
}

// jitteredPeriod draws a duration uniformly from [ceil(0.8*period), floor(1.2*period)],
// redrawn on every rearm. The lower bound uses ceiling division, so a
// period of 1 still yields a lower bound of 1 rather than 0.
func jitteredPeriod(period int) int64 {
	lo := int64((period*8 + 9) / 10)
	hi := int64(period * 12 / 10)
	if hi <= lo {
		return lo
	}
	return lo + rand.Int64N(hi-lo+1)
}

// armUpdateTimer cancels any pending update timer and installs a new one
// with a freshly drawn jittered period.
func (e *Engine) armUpdateTimer() {
	e.Timers.Remove(state.KindUpdate, state.UpdateKey)
	delay := jitteredPeriod(e.Cfg.Period)
	e.Timers.AddIn(delay, "periodic update", state.KindUpdate, state.UpdateKey)
}

// serialize builds the wire entries for neighbour n, applying poisoned
// reverse: any entry whose next hop is n is advertised at cost Infinity.
// The local table itself is never mutated by this.
func (e *Engine) serialize(n state.RouterId) []wire.DestMetric {
	dests := e.Table.Destinations()
	out := make([]wire.DestMetric, 0, len(dests))
	for _, d := range dests {
		r, _ := e.Table.Get(d)
		cost := r.Cost
		if r.NextHop == n {
			cost = state.Infinity
		}
		out = append(out, wire.DestMetric{Dest: d, Metric: cost})
	}
	return out
}

// broadcast sends the current table (with poisoned reverse applied
// per-neighbour) to every configured output.
func (e *Engine) broadcast() {
	for _, out := range e.Cfg.Outputs {
		data := wire.Encode(e.Cfg.Id, e.serialize(out.NodeId))
		if err := e.Transport.Send(out.Port, data); err != nil {
			e.Log.Warn("send failed", "neighbour", out.NodeId, "port", out.Port, "error", err)
		}
	}
}

// Start performs the cold-start sequence: install the self-entry (already
// done by NewEngine), arm the update timer, and send the initial
// advertisement.
func (e *Engine) Start() {
	e.armUpdateTimer()
	e.broadcast()
	e.Log.Info("engine started", "id", e.Cfg.Id, "neighbours", len(e.Cfg.Outputs))
}

// handleDatagram decodes one datagram, relaxes it into the table, and
// refreshes/starts the timeout timer for every destination it carried with
// finite cost. It reports whether the table changed.
func (e *Engine) handleDatagram(dgram transport.Datagram) bool {
	sender, entries, err := wire.Decode(dgram.Payload)
	if err != nil {
		e.Log.Warn("dropping malformed packet", "listener", dgram.ListenerId, "port", dgram.Port, "error", err)
		return false
	}

	e.Log.Debug("received advertisement", "listener", dgram.ListenerId, "port", dgram.Port, "sender", sender, "entries", len(entries))

	before := e.Table.Clone()
	algo.Relax(e.Table, entries, sender, e.Neighbours)

	for _, en := range entries {
		if en.Dest == e.Cfg.Id {
			continue
		}
		if en.Metric != state.Infinity {
			e.Timers.Remove(state.KindTimeout, en.Dest)
			e.Timers.AddIn(int64(e.Cfg.Timeout), "neighbour timeout", state.KindTimeout, en.Dest)
			// A fresh reachable advertisement means any pending garbage
			// timer for this destination is stale; cancel it.
			e.Timers.Remove(state.KindGarbage, en.Dest)
		}
	}

	return !before.Equal(e.Table)
}

// processExpired handles every timer that has fired this tick, processing
// Timeout events before Garbage events, so a timeout can enqueue a garbage
// timer for the same destination without a stale garbage racing ahead of
// it. Update may be processed in any relative order.
func (e *Engine) processExpired() {
	expired := e.Timers.Expired()

	order := map[state.TimerKind]int{state.KindTimeout: 0, state.KindGarbage: 1, state.KindUpdate: 0}
	// stable partition: timeouts (and updates) before garbages.
	timeoutsFirst := make([]timer.Event, 0, len(expired))
	garbages := make([]timer.Event, 0, len(expired))
	for _, ev := range expired {
		if order[ev.Kind] == 1 {
			garbages = append(garbages, ev)
		} else {
			timeoutsFirst = append(timeoutsFirst, ev)
		}
	}

	for _, ev := range append(timeoutsFirst, garbages...) {
		e.Timers.Remove(ev.Kind, ev.Key)
		switch ev.Kind {
		case state.KindUpdate:
			e.broadcast()
			e.armUpdateTimer()

		case state.KindTimeout:
			r, ok := e.Table.Get(ev.Key)
			if !ok {
				continue
			}
			e.Table.Set(ev.Key, state.Route{NextHop: r.NextHop, Cost: state.Infinity})
			e.Log.Debug("route timed out", "dest", ev.Key)
			e.broadcast()
			e.Timers.AddIn(int64(e.Cfg.Garbage), "garbage collect", state.KindGarbage, ev.Key)

		case state.KindGarbage:
			e.Table.Delete(ev.Key)
			e.Log.Debug("route garbage collected", "dest", ev.Key)
		}
	}
}

// Run is the event loop: it selects between the next timer deadline and
// arriving datagrams, batching every datagram that is already waiting in
// one iteration before deciding whether to send a triggered update, then
// runs the integrity sweep and processes whatever timers have expired.
// Everything here executes on the calling goroutine; Bind's reader
// goroutines only ever write to Transport.Incoming.
func (e *Engine) Run(ctx context.Context) {
	for {
		delta, _, ok := e.Timers.NextDeadline()
		var wake <-chan time.Time
		var t *time.Timer
		if ok {
			if delta < 0 {
				delta = 0
			}
			t = time.NewTimer(time.Duration(delta) * time.Second)
			wake = t.C
		}

		select {
		case <-ctx.Done():
			return

		case dgram := <-e.Transport.Incoming:
			triggered := e.handleDatagram(dgram)
		drain:
			for {
				select {
				case d := <-e.Transport.Incoming:
					if e.handleDatagram(d) {
						triggered = true
					}
				default:
					break drain
				}
			}
			if triggered {
				e.Log.Debug("sending triggered update")
				e.broadcast()
				e.armUpdateTimer()
			}

		case <-wake:
		}

		algo.IntegritySweep(e.Table)
		e.processExpired()

		if t != nil {
			t.Stop()
		}
	}
}

// Snapshot returns a copy of the routing table, safe to read from outside
// the engine goroutine (e.g. for a CLI status command); it must not be
// called concurrently with Run.
func (e *Engine) Snapshot() *state.Table {
	return e.Table.Clone()
}

// String renders the current table via the printer package.
func (e *Engine) String() string {
	return printer.String(e.Table)
}
