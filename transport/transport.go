// Package transport binds one datagram socket per configured input port on
// loopback and sends serialized advertisements to configured neighbours. A
// dedicated goroutine per listener does the blocking ReadFromUDP and hands
// raw bytes to a single channel the engine loop selects on, keeping every
// decision (decode, relax, timer mutation) on one goroutine.
package transport

import (
	"fmt"
	"net"

	"github.com/encodeous/ripd/wire"
	"github.com/google/uuid"
)

// Datagram is a single received packet, tagged with the listener that
// received it for diagnostic logging.
type Datagram struct {
	ListenerId uuid.UUID
	Port       int
	Payload    []byte
}

// Transport owns one net.UDPConn per configured input port and a channel
// that every listener's reader goroutine forwards into.
type Transport struct {
	listeners []*net.UDPConn
	Incoming  chan Datagram
}

// Bind opens one loopback UDP socket per input port and starts its reader
// goroutine. It returns a *BindFailure wrapping the first bind error.
func Bind(inputPorts []int) (*Transport, error) {
	t := &Transport{
		Incoming: make(chan Datagram, 64),
	}
	for _, port := range inputPorts {
		addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			t.Close()
			return nil, &BindFailure{Port: port, Cause: err}
		}
		t.listeners = append(t.listeners, conn)
		id := uuid.New()
		go t.readLoop(id, port, conn)
	}
	return t, nil
}

func (t *Transport) readLoop(id uuid.UUID, port int, conn *net.UDPConn) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return // socket closed
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		t.Incoming <- Datagram{ListenerId: id, Port: port, Payload: payload}
	}
}

// Send transmits data to one neighbour on loopback:port. Failures are
// returned as *SendFailure for the caller to log and continue; a peer may
// be temporarily unavailable.
func (t *Transport) Send(port int, data []byte) error {
	if len(t.listeners) == 0 {
		return &SendFailure{Port: port, Cause: fmt.Errorf("no bound socket to send from")}
	}
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	// Any bound socket can originate a send; the first one is used
	// consistently.
	if _, err := t.listeners[0].WriteToUDP(data, addr); err != nil {
		return &SendFailure{Port: port, Cause: err}
	}
	return nil
}

// Close shuts down every bound socket, unblocking their reader goroutines.
func (t *Transport) Close() {
	for _, conn := range t.listeners {
		_ = conn.Close()
	}
}

// BindFailure is a fatal startup error: the daemon could not bind one of
// its configured input ports.
type BindFailure struct {
	Port  int
	Cause error
}

func (e *BindFailure) Error() string {
	return fmt.Sprintf("failed to bind input port %d: %v", e.Port, e.Cause)
}

func (e *BindFailure) Unwrap() error { return e.Cause }

// SendFailure is a runtime error: sending to one neighbour failed. It is
// logged and the event loop continues; there is no retry.
type SendFailure struct {
	Port  int
	Cause error
}

func (e *SendFailure) Error() string {
	return fmt.Sprintf("failed to send to port %d: %v", e.Port, e.Cause)
}

func (e *SendFailure) Unwrap() error { return e.Cause }
