package daemon

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rochack/meshchat-go/pkg/registry"
)

type noopChat struct{}

func (noopChat) DeliverJoin(channel, nick, host string)   {}
func (noopChat) DeliverPart(channel, nick, reason string) {}
func (noopChat) DeliverQuit(nick, reason string)          {}
func (noopChat) DeliverMsg(channel, nick, text string)    {}
func (noopChat) DeliverNotice(channel, nick, text string) {}
func (noopChat) DeliverNick(oldNick, newNick string)      {}

type noopChannels struct{}

func (noopChannels) JoinedChannels() []string { return nil }

func newTestBridge(t *testing.T) *registryBridge {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("::1")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	reg := registry.New(registry.Config{}, noopChat{}, noopChannels{}, zaptest.NewLogger(t))
	require.NoError(t, reg.Start(conn))
	t.Cleanup(reg.Stop)

	return newRegistryBridge(reg)
}

func TestOnLocalNickUpdatesBridgeNick(t *testing.T) {
	b := newTestBridge(t)
	require.Empty(t, b.nick)

	b.OnLocalNick("alice")
	require.Equal(t, "alice", b.nick)

	b.OnLocalNick("alice2")
	require.Equal(t, "alice2", b.nick)
}

func TestLocalActionsWithNoPeersDoNotPanic(t *testing.T) {
	b := newTestBridge(t)
	b.OnLocalNick("alice")

	require.NotPanics(t, func() {
		b.OnLocalJoin("#lobby")
		b.OnLocalPart("#lobby", "leaving")
		b.OnLocalMsg("#lobby", "hello")
		b.OnLocalNotice("#lobby", "fyi")
		b.OnLocalQuit("bye")
	})
}
