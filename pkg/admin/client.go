// Package admin implements the client side of the overlay's local
// administrative service: a request/reply exchange, encoded with
// pkg/codec, used to paginate the overlay's routing table and discover
// mesh peer addresses.
package admin

import (
	"fmt"
	"net"

	"github.com/rochack/meshchat-go/pkg/codec"
	"go.uber.org/zap"
)

const (
	// query is the admin-service function name used to dump the routing
	// table page by page.
	query = "NodeStore_dumpTable"

	// recvBufferSize bounds a single reply datagram. Replies larger than
	// this are logged as truncated and dropped, per spec.
	recvBufferSize = 8192
)

// DiscoveredAddressFunc is called once per address found in a routing-table
// page. The client does not deduplicate; that is the registry's job.
type DiscoveredAddressFunc func(addr []byte)

// Client queries the admin service over a connected UDP socket.
type Client struct {
	conn *net.UDPConn
	addr *net.UDPAddr

	onAddr DiscoveredAddressFunc

	page int

	log *zap.Logger
}

// New resolves the admin service's address but does not open the socket
// yet; call Start to do that.
func New(host string, port int, log *zap.Logger) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("admin: resolve address: %w", err)
	}
	return &Client{
		addr: addr,
		log:  log.With(zap.String("module", "admin")),
	}, nil
}

// OnDiscoveredAddress registers the callback invoked for every address
// found while paginating the routing table.
func (c *Client) OnDiscoveredAddress(fn DiscoveredAddressFunc) {
	c.onAddr = fn
}

// Start opens the connected UDP socket used for all subsequent requests.
func (c *Client) Start() error {
	conn, err := net.DialUDP("udp", nil, c.addr)
	if err != nil {
		return fmt.Errorf("admin: dial: %w", err)
	}
	c.conn = conn
	return nil
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// FetchPeers drives one full fetch cycle: request page 0, and keep
// requesting the next page while the reply says "more". Called by the
// daemon's peer-fetch timer.
func (c *Client) FetchPeers() {
	c.page = 0
	for {
		more := c.fetchPage(c.page)
		if !more {
			c.page = 0
			return
		}
		c.page++
	}
}

// fetchPage sends one dumpTable request and processes its reply, returning
// whether the admin service reported more pages to come.
func (c *Client) fetchPage(page int) bool {
	req := codec.Dict(map[string]codec.Value{
		"q":    codec.StringFrom(query),
		"args": codec.Dict(map[string]codec.Value{"page": codec.Int64(int64(page))}),
	})
	if _, err := c.conn.Write(codec.Encode(req)); err != nil {
		// Send errors are logged; pagination is not retried this cycle.
		c.log.Warn("failed to send admin request", zap.Int("page", page), zap.Error(err))
		return false
	}

	buf := make([]byte, recvBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		c.log.Warn("failed to read admin reply", zap.Int("page", page), zap.Error(err))
		return false
	}
	if n == len(buf) {
		c.log.Warn("admin reply truncated, dropping", zap.Int("page", page))
		return false
	}

	return c.handleReply(buf[:n], page)
}

// handleReply decodes one routing-table page and reports each entry's
// address through onAddr. Malformed replies are dropped silently for that
// page without aborting the session, per spec.
func (c *Client) handleReply(buf []byte, page int) bool {
	reply, err := codec.Decode(buf)
	if err != nil {
		c.log.Debug("malformed admin reply, dropping page", zap.Int("page", page), zap.Error(err))
		return false
	}

	table, ok := reply.Get("routingTable")
	if !ok {
		c.log.Debug("admin reply missing routingTable", zap.Int("page", page))
		return false
	}
	entries, ok := table.AsList()
	if !ok {
		c.log.Debug("admin reply routingTable is not a list", zap.Int("page", page))
		return false
	}

	for _, entry := range entries {
		ipVal, ok := entry.Get("ip")
		if !ok || ipVal.Kind != codec.KindString {
			continue
		}
		if c.onAddr != nil {
			c.onAddr(ipVal.Str)
		}
	}

	moreVal, ok := reply.Get("more")
	if !ok {
		return false
	}
	more, ok := moreVal.AsInt()
	return ok && more == 1
}
