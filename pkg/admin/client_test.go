package admin

import (
	"net"
	"testing"
	"time"

	"github.com/rochack/meshchat-go/pkg/codec"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeAdminService answers exactly one NodeStore_dumpTable query per page
// with a single routing-table entry, reporting more=1 until page reaches 1.
func fakeAdminService(t *testing.T, conn *net.UDPConn) {
	t.Helper()
	for {
		buf := make([]byte, 2048)
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		req, err := codec.Decode(buf[:n])
		if err != nil {
			continue
		}
		args, _ := req.Get("args")
		pageVal, _ := args.Get("page")
		page, _ := pageVal.AsInt()

		more := int64(0)
		if page == 0 {
			more = 1
		}
		reply := codec.Dict(map[string]codec.Value{
			"routingTable": codec.List(
				codec.Dict(map[string]codec.Value{"ip": codec.StringFrom("fc00::1")}),
			),
			"more": codec.Int64(more),
		})
		_, _ = conn.WriteToUDP(codec.Encode(reply), raddr)
	}
}

func TestFetchPeersPaginates(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverConn.Close()
	go fakeAdminService(t, serverConn)

	port := serverConn.LocalAddr().(*net.UDPAddr).Port
	c, err := New("127.0.0.1", port, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Start())
	defer c.Close()

	var found []string
	c.OnDiscoveredAddress(func(addr []byte) {
		found = append(found, string(addr))
	})

	done := make(chan struct{})
	go func() {
		c.FetchPeers()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("FetchPeers did not complete")
	}

	require.Len(t, found, 2, "one entry from page 0 and one from page 1")
	require.Equal(t, "fc00::1", found[0])
}
