package daemon

import (
	"github.com/rochack/meshchat-go/pkg/registry"
)

// registryBridge adapts *registry.Registry to ircd.PeerEvents: a local
// chat action becomes an outbound mesh broadcast. It tracks nick itself
// (kept in lockstep with every OnLocalNick call, the sole place ircd
// reports a nick change) rather than reading registry state, since both
// sides are driven from ircd's own single-owner command loop and a
// plain field is enough.
type registryBridge struct {
	reg  *registry.Registry
	nick string
}

func newRegistryBridge(reg *registry.Registry) *registryBridge {
	return &registryBridge{reg: reg}
}

func (b *registryBridge) OnLocalJoin(channel string) {
	b.reg.BroadcastAll(registry.EventJoin, channel, b.nick)
}

func (b *registryBridge) OnLocalPart(channel, reason string) {
	b.reg.BroadcastAll(registry.EventPart, channel, reason)
}

func (b *registryBridge) OnLocalMsg(channel, text string) {
	b.reg.BroadcastChannel(channel, registry.EventMsg, channel, text)
}

func (b *registryBridge) OnLocalNotice(channel, text string) {
	b.reg.BroadcastChannel(channel, registry.EventNotice, channel, text)
}

func (b *registryBridge) OnLocalNick(newNick string) {
	hadNick := b.nick != ""
	b.nick = newNick
	b.reg.SetNick(newNick)
	if hadNick {
		b.reg.BroadcastAll(registry.EventNick, newNick)
	}
}

// OnLocalQuit is intentionally a no-op: the original relay never tells the
// mesh a local IRC client disconnected (there is no on_quit entry in its
// callback table), since quitting only affects which sessions a locally
// bridged identity has, not the identity's mesh presence.
func (b *registryBridge) OnLocalQuit(reason string) {}
