// Package registry implements the peer registry and liveness state machine:
// discovering peers, tracking their health with timeouts and retry
// schedules, and deciding when to greet, re-greet, or declare them gone.
package registry

import (
	"net"
	"time"
)

// Status is a Peer's position in the liveness state machine.
type Status int

// The liveness states a Peer can be in.
const (
	StatusUnknown Status = iota
	StatusContacted
	StatusActive
	StatusInactive
)

// String renders a Status for logging.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusContacted:
		return "contacted"
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "invalid"
	}
}

// Peer is one node in the mesh as seen by this node.
type Peer struct {
	// Address is the canonical textual form; it is the registry's sole
	// lookup key.
	Address string
	// SocketAddr is Address plus the fixed mesh port.
	SocketAddr *net.UDPAddr

	Status Status

	// LastMessageAt is the monotonic time of the most recent well-formed
	// inbound datagram from this peer.
	LastMessageAt time.Time
	// LastGreetedAt is the monotonic time of the most recent greeting we
	// sent to this peer.
	LastGreetedAt time.Time

	// Nick is learned from greetings. An incoming JOIN event carrying a
	// different nick never overwrites this (spec open question: greeting
	// nick is authoritative).
	Nick string

	// Self marks the registry's own address; self is never greeted or
	// broadcast to, and is excluded from the active count.
	Self bool

	// channels is the set of channel names this peer has most recently
	// announced membership in (via greeting or JOIN), used to turn the
	// difference between successive greetings into implicit joins and parts.
	channels map[string]struct{}
}

func newPeer(addr string, sock *net.UDPAddr) *Peer {
	return &Peer{
		Address:    addr,
		SocketAddr: sock,
		Status:     StatusUnknown,
		channels:   make(map[string]struct{}),
	}
}

func (p *Peer) addChannel(name string) {
	p.channels[name] = struct{}{}
}

// Channels returns the channels this peer is currently known to occupy.
func (p *Peer) Channels() []string {
	out := make([]string, 0, len(p.channels))
	for c := range p.channels {
		out = append(out, c)
	}
	return out
}
