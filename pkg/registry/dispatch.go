package registry

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// HandleDatagram is the daemon's entry point for every inbound mesh
// packet. It queues the actual parsing and state update onto the loop
// goroutine so the UDP read loop never blocks on registry state.
func (r *Registry) HandleDatagram(from *net.UDPAddr, buf []byte) {
	if len(buf) == 0 {
		return
	}
	tag := EventTag(buf[0])
	body := append([]byte(nil), buf[1:]...)
	canon, err := canonicalizeAddress(from.IP.String())
	if err != nil {
		return
	}
	r.actionch <- func() {
		r.dispatch(canon, from, tag, body)
	}
}

// dispatch runs on the loop goroutine. It must never be called directly
// from outside it.
func (r *Registry) dispatch(addr string, sock *net.UDPAddr, tag EventTag, body []byte) {
	if addr == r.self {
		return
	}
	p := r.getOrCreatePeer(addr)
	p.SocketAddr = sock
	now := time.Now()

	// The overlay can deliver the same datagram over more than one path;
	// GREETING is idempotent by construction and always reprocessed, but a
	// duplicate MSG/NOTICE/JOIN/PART/NICK would otherwise double-deliver to
	// the chat front end.
	if tag != EventGreeting {
		key := fmt.Sprintf("%s:%d:%x", addr, tag, body)
		if _, dup := r.recent.Get(key); dup {
			return
		}
		r.recent.Add(key, struct{}{})
	}

	switch tag {
	case EventGreeting:
		r.handleGreeting(p, body, now)
	case EventMsg:
		r.handleChannelText(p, body, r.chat.DeliverMsg)
	case EventNotice:
		r.handleChannelText(p, body, r.chat.DeliverNotice)
	case EventJoin:
		r.handleJoin(p, body)
	case EventPart:
		r.handlePart(p, body)
	case EventNick:
		r.handleNick(p, body)
	default:
		r.log.Debug("dropping datagram with unknown tag", zap.String("peer", addr), zap.Uint8("tag", byte(tag)))
		return
	}
	p.LastMessageAt = now
}

// handleGreeting parses <nick>\0<channel>\0<channel>\0... A greeting's
// nick is always authoritative over whatever a later JOIN might claim
// (Open Question 1 resolution): only GREETING and NICK write Peer.Nick here.
func (r *Registry) handleGreeting(p *Peer, body []byte, now time.Time) {
	nick, rest, ok := takeNullField(body)
	if !ok {
		r.log.Debug("dropping truncated greeting", zap.String("peer", p.Address))
		return
	}
	wasActive := p.Status == StatusActive
	p.Nick = nick

	channels := splitNullFields(rest)
	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		seen[ch] = struct{}{}
		if _, already := p.channels[ch]; !already {
			r.chat.DeliverJoin(ch, p.Nick, p.Address)
		}
	}
	// Channels the peer no longer lists are implicit parts.
	for ch := range p.channels {
		if _, still := seen[ch]; !still {
			r.chat.DeliverPart(ch, p.Nick, "")
		}
	}
	p.channels = seen
	p.Status = StatusActive

	if !wasActive {
		r.sendGreeting(p)
	}
	r.recountActive()
}

// handleChannelText handles MSG/NOTICE, wire fields <channel>, <text>. The
// sender's nick is always the peer's already-known nick, never a wire
// field: neither event carries one.
func (r *Registry) handleChannelText(p *Peer, body []byte, deliver func(channel, nick, text string)) {
	channel, rest, ok := takeNullField(body)
	if !ok {
		return
	}
	deliver(channel, p.Nick, trimTrailingNull(rest))
}

// handleJoin handles JOIN, wire field <channel>. The delivered nick is
// always the peer's already-known nick (Open Question 1 resolution): a
// JOIN never updates Peer.Nick, only GREETING does.
func (r *Registry) handleJoin(p *Peer, body []byte) {
	channel, _, ok := takeNullField(body)
	if !ok {
		return
	}
	p.addChannel(channel)
	r.chat.DeliverJoin(channel, p.Nick, p.Address)
}

// handlePart handles PART, wire fields <channel>, <reason>. As with JOIN,
// the nick delivered is the peer's already-known nick.
func (r *Registry) handlePart(p *Peer, body []byte) {
	channel, rest, ok := takeNullField(body)
	if !ok {
		return
	}
	reason := trimTrailingNull(rest)
	delete(p.channels, channel)
	r.chat.DeliverPart(channel, p.Nick, reason)
}

// handleNick handles NICK, wire field <new_nick>. The old nick is never
// transmitted; it is whatever Peer.Nick already held.
func (r *Registry) handleNick(p *Peer, body []byte) {
	newNick, _, ok := takeNullField(body)
	if !ok {
		return
	}
	oldNick := p.Nick
	p.Nick = newNick
	r.chat.DeliverNick(oldNick, newNick)
}

// trimTrailingNull strips the single trailing NUL terminator encodeEvent
// always appends after its final field, so the remainder of a datagram can
// be treated as plain text instead of another null-terminated field.
func trimTrailingNull(b []byte) string {
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}
