package registry

import (
	"time"

	"go.uber.org/zap"
)

// Service runs one tick of the liveness state machine across every known
// peer, per spec §4.3:
//
//	UNKNOWN    -> send greeting, advance to CONTACTED
//	CONTACTED  -> re-send greeting after RetryInterval, stays CONTACTED
//	ACTIVE     -> demote to INACTIVE once silent for Timeout
//	INACTIVE   -> re-send greeting after RetryInterval, stays INACTIVE
//	             until a reply promotes it back to ACTIVE
//
// The caller (the daemon) is expected to invoke Service on a ticker sized
// to the smallest configured interval.
func (r *Registry) Service() {
	r.actionch <- r.service
}

func (r *Registry) service() {
	now := time.Now()
	for _, p := range r.peers {
		if p.Self {
			continue
		}
		switch p.Status {
		case StatusUnknown:
			r.sendGreeting(p)
			p.Status = StatusContacted

		case StatusContacted, StatusInactive:
			if now.Sub(p.LastGreetedAt) >= r.cfg.RetryInterval {
				r.sendGreeting(p)
			}

		case StatusActive:
			if now.Sub(p.LastMessageAt) >= r.cfg.Timeout {
				p.Status = StatusInactive
				r.log.Info("peer timed out", zap.String("peer", p.Address))
			} else if now.Sub(p.LastGreetedAt) >= r.cfg.PingInterval {
				r.sendGreeting(p)
			}
		}
	}
	r.recountActive()
}

// sendGreeting re-advertises the local nick and channel set to p and
// stamps LastGreetedAt. Both the initial greeting and the periodic
// keepalive ping reuse this same datagram shape.
func (r *Registry) sendGreeting(p *Peer) {
	fields := append([]string{r.nick}, r.chs.JoinedChannels()...)
	r.send(p, encodeEvent(EventGreeting, r.cfg.PacketLen, fields...))
	p.LastGreetedAt = time.Now()
}

func (r *Registry) send(p *Peer, datagram []byte) {
	if r.conn == nil || p.SocketAddr == nil {
		return
	}
	if _, err := r.conn.WriteToUDP(datagram, p.SocketAddr); err != nil {
		r.log.Debug("write to peer failed", zap.String("peer", p.Address), zap.Error(err))
	}
}

// BroadcastAll sends an event to every known ACTIVE peer. It is the sole
// broadcast primitive: spec §9 does not require per-channel addressing
// (datagrams are cheap to fan out to the whole, typically small, mesh),
// so BroadcastChannel is implemented in terms of it.
func (r *Registry) BroadcastAll(tag EventTag, fields ...string) {
	r.actionch <- func() {
		datagram := encodeEvent(tag, r.cfg.PacketLen, fields...)
		for _, p := range r.peers {
			if p.Self || p.Status != StatusActive {
				continue
			}
			r.send(p, datagram)
		}
	}
}

// BroadcastChannel sends an event to every known ACTIVE peer, identical to
// BroadcastAll. channel is accepted only to keep the call sites
// self-documenting; restricting delivery to announced channel membership
// would drop messages to peers whose membership hasn't caught up yet (e.g.
// right after a greeting promotes them to ACTIVE but before they've
// re-announced it), so this is not a distinct wire mechanism.
func (r *Registry) BroadcastChannel(channel string, tag EventTag, fields ...string) {
	r.BroadcastAll(tag, fields...)
}
