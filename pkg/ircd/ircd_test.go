package ircd

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePeers struct {
	joins   []string
	parts   []string
	msgs    []string
	notices []string
	nicks   []string
	quits   []string
}

func (f *fakePeers) OnLocalJoin(channel string)         { f.joins = append(f.joins, channel) }
func (f *fakePeers) OnLocalPart(channel, reason string)  { f.parts = append(f.parts, channel) }
func (f *fakePeers) OnLocalMsg(channel, text string)     { f.msgs = append(f.msgs, text) }
func (f *fakePeers) OnLocalNotice(channel, text string)  { f.notices = append(f.notices, text) }
func (f *fakePeers) OnLocalNick(newNick string)          { f.nicks = append(f.nicks, newNick) }
func (f *fakePeers) OnLocalQuit(reason string)           { f.quits = append(f.quits, reason) }

func startTestServer(t *testing.T, peers PeerEvents) (*Server, net.Conn, *bufio.Reader) {
	t.Helper()
	s := New(Config{}, peers, zaptest.NewLogger(t))
	s.SetHostname("fc00::1")
	ln, err := s.Listen("127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() { s.Close(); ln.Close() })

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return s, conn, bufio.NewReader(conn)
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	_, err := conn.Write([]byte(line + "\r\n"))
	require.NoError(t, err)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\r\n")
}

func TestWelcomeSequenceAfterNickAndUser(t *testing.T) {
	_, conn, r := startTestServer(t, &fakePeers{})
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")

	line := readLine(t, r)
	assert.Contains(t, line, "001 relayuser")
	line = readLine(t, r)
	assert.Contains(t, line, "002 relayuser")
	line = readLine(t, r)
	assert.Contains(t, line, "003 relayuser")
	line = readLine(t, r)
	assert.Contains(t, line, "004 relayuser")
}

func TestJoinReceivesNamesReply(t *testing.T) {
	_, conn, r := startTestServer(t, &fakePeers{})
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")
	for i := 0; i < 4; i++ {
		readLine(t, r) // drain 001-004
	}

	writeLine(t, conn, "JOIN #lobby")
	join := readLine(t, r)
	assert.Contains(t, join, "JOIN :#lobby")
	names := readLine(t, r)
	assert.Contains(t, names, "353")
	assert.Contains(t, names, "relayuser")
	end := readLine(t, r)
	assert.Contains(t, end, "366")
}

func TestPeerEventsFiredOnLocalActions(t *testing.T) {
	peers := &fakePeers{}
	_, conn, r := startTestServer(t, peers)
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")
	for i := 0; i < 4; i++ {
		readLine(t, r)
	}
	writeLine(t, conn, "JOIN #lobby")
	readLine(t, r)
	readLine(t, r)
	readLine(t, r)

	writeLine(t, conn, "PRIVMSG #lobby :hello mesh")

	require.Eventually(t, func() bool { return len(peers.joins) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"#lobby"}, peers.joins)
	require.Eventually(t, func() bool { return len(peers.msgs) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello mesh", peers.msgs[0])
}

func TestCTCPActionRoundTrips(t *testing.T) {
	peers := &fakePeers{}
	_, conn, r := startTestServer(t, peers)
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")
	for i := 0; i < 4; i++ {
		readLine(t, r)
	}
	writeLine(t, conn, "JOIN #lobby")
	readLine(t, r) // JOIN
	readLine(t, r) // 353
	readLine(t, r) // 366

	writeLine(t, conn, "PRIVMSG #lobby :\x01ACTION waves\x01")
	require.Eventually(t, func() bool { return len(peers.msgs) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "\x01ACTION waves\x01", peers.msgs[0])
}

func TestDeliverMsgFormatsPrefix(t *testing.T) {
	s, conn, r := startTestServer(t, &fakePeers{})
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")
	for i := 0; i < 4; i++ {
		readLine(t, r)
	}

	s.DeliverJoin("#lobby", "remoteNick", "fc00::2")
	readLine(t, r) // JOIN line

	s.DeliverMsg("#lobby", "remoteNick", "hi there")
	line := readLine(t, r)
	assert.Equal(t, ":remoteNick@fc00::2 PRIVMSG #lobby :hi there", line)
}

func TestDeliverNickRenamesChannelMembership(t *testing.T) {
	s, conn, r := startTestServer(t, &fakePeers{})
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")
	for i := 0; i < 4; i++ {
		readLine(t, r)
	}

	s.DeliverJoin("#lobby", "remoteNick", "fc00::9")
	readLine(t, r) // JOIN line

	s.DeliverNick("remoteNick", "remoteRenamed")
	nickLine := readLine(t, r)
	assert.Contains(t, nickLine, "NICK :remoteRenamed")

	done := make(chan struct{})
	s.actionch <- func() {
		ch := s.channels["#lobby"]
		_, oldPresent := ch.user("remoteNick")
		_, newPresent := ch.user("remoteRenamed")
		assert.False(t, oldPresent)
		assert.True(t, newPresent)
		close(done)
	}
	<-done
}

func TestPrivmsgDroppedWhenNotJoined(t *testing.T) {
	peers := &fakePeers{}
	_, conn, r := startTestServer(t, peers)
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	writeLine(t, conn, "NICK relayuser")
	writeLine(t, conn, "USER relayuser 0 * :Relay User")
	for i := 0; i < 4; i++ {
		readLine(t, r)
	}

	writeLine(t, conn, "PRIVMSG #lobby :hello")
	writeLine(t, conn, "PING :sentinel")
	line := readLine(t, r)
	assert.Equal(t, "PONG :sentinel", line, "PRIVMSG to an unjoined channel must be dropped silently")
	assert.Empty(t, peers.msgs)
}

func TestOverlongLineClosesConnection(t *testing.T) {
	_, conn, r := startTestServer(t, &fakePeers{})
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	huge := strings.Repeat("a", maxLineLen*2)
	_, err := conn.Write([]byte("PRIVMSG #lobby :" + huge))
	require.NoError(t, err)

	_, err = r.ReadString('\n')
	assert.Error(t, err, "server must close the connection on an unterminated oversized line")
}
