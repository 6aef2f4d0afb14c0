package registry

import (
	"fmt"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Defaults, order-of-magnitude per spec §4.3.
const (
	DefaultMeshPort      = 14627
	DefaultPacketLen     = 1400
	DefaultPingInterval  = 20 * time.Second
	DefaultTimeout       = 60 * time.Second
	DefaultRetryInterval = 15 * time.Minute

	// recentSeenCacheSize bounds the registry-wide cache of recently seen
	// (peer, tag, payload) keys that keeps a non-greeting datagram arriving
	// twice from being delivered twice to the chat front end.
	recentSeenCacheSize = 1024
)

// ChatEvents is the set of callbacks the registry drives into the chat
// front end when mesh datagrams arrive. It mirrors deliver_* from spec §4.4.
type ChatEvents interface {
	DeliverJoin(channel, nick, host string)
	DeliverPart(channel, nick, reason string)
	DeliverQuit(nick, reason string)
	DeliverMsg(channel, nick, text string)
	DeliverNotice(channel, nick, text string)
	DeliverNick(oldNick, newNick string)
}

// ChannelSource lets the registry ask the chat front end which channels the
// local client currently occupies, for building greetings.
type ChannelSource interface {
	JoinedChannels() []string
}

// Config holds the registry's tunables.
type Config struct {
	Port          int
	PacketLen     int
	PingInterval  time.Duration
	Timeout       time.Duration
	RetryInterval time.Duration
}

// withDefaults fills in zero-valued fields with spec defaults.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultMeshPort
	}
	if c.PacketLen == 0 {
		c.PacketLen = DefaultPacketLen
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	return c
}

// Registry owns the canonical-address-to-Peer map and the liveness state
// machine. All mutating operations are serialized through actionch and run
// on the single loop goroutine, so no mutex is needed to guard peers or
// the recent-datagram cache.
type Registry struct {
	cfg Config

	conn *net.UDPConn
	chat ChatEvents
	chs  ChannelSource

	nick string
	self string // canonical self address, once known

	peers map[string]*Peer

	recent *lru.Cache

	activePeers atomic.Int64
	totalPeers  atomic.Int64

	actionch chan func()
	quit     chan struct{}

	log *zap.Logger
}

// New builds a Registry. conn is supplied later via Start once the mesh
// socket is bound, mirroring the daemon's two-phase construct-then-start
// wiring of every component.
func New(cfg Config, chat ChatEvents, chs ChannelSource, log *zap.Logger) *Registry {
	cache, _ := lru.New(recentSeenCacheSize)
	return &Registry{
		cfg:      cfg.withDefaults(),
		chat:     chat,
		chs:      chs,
		peers:    make(map[string]*Peer),
		recent:   cache,
		actionch: make(chan func(), 256),
		quit:     make(chan struct{}),
		log:      log.With(zap.String("module", "registry")),
	}
}

// Start records the bound mesh socket and starts the serialized-action
// loop goroutine. It does not itself read the socket; the daemon's event
// loop owns the read and calls HandleDatagram.
func (r *Registry) Start(conn *net.UDPConn) error {
	if conn == nil {
		return fmt.Errorf("registry: nil connection")
	}
	r.conn = conn
	go r.loop()
	return nil
}

// Stop ends the action loop.
func (r *Registry) Stop() {
	close(r.quit)
}

func (r *Registry) loop() {
	for {
		select {
		case f := <-r.actionch:
			f()
		case <-r.quit:
			return
		}
	}
}

// SetSelf records the node's own canonical address; if already present in
// the registry, the corresponding Peer is flagged Self and excluded from
// servicing and broadcast.
func (r *Registry) SetSelf(addr string) {
	canon, err := canonicalizeAddress(addr)
	if err != nil {
		r.log.Warn("cannot canonicalize own address", zap.String("addr", addr), zap.Error(err))
		return
	}
	r.actionch <- func() {
		r.self = canon
		if p, ok := r.peers[canon]; ok {
			p.Self = true
		}
	}
}

// SetNick updates the nick advertised in outgoing greetings.
func (r *Registry) SetNick(nick string) {
	r.actionch <- func() {
		r.nick = nick
	}
}

// OnDiscoveredAddress is the AdminClient callback target: it canonicalizes
// the address and ensures a Peer record exists, without resetting the
// status of one that already exists (registry idempotence).
func (r *Registry) OnDiscoveredAddress(addr []byte) {
	canon, err := canonicalizeAddress(string(addr))
	if err != nil {
		r.log.Debug("discarding unparseable discovered address", zap.Error(err))
		return
	}
	r.actionch <- func() {
		r.getOrCreatePeer(canon)
	}
}

// getOrCreatePeer returns the existing Peer for addr or inserts a new
// UNKNOWN one. Must be called from the loop goroutine.
func (r *Registry) getOrCreatePeer(addr string) *Peer {
	if p, ok := r.peers[addr]; ok {
		return p
	}
	sock := &net.UDPAddr{IP: net.ParseIP(addr), Port: r.cfg.Port}
	p := newPeer(addr, sock)
	if addr == r.self {
		p.Self = true
	}
	r.peers[addr] = p
	r.totalPeers.Store(int64(len(r.peers)))
	return p
}

// ActivePeerCount returns the number of peers currently ACTIVE, for
// internal/metrics; safe to call from any goroutine.
func (r *Registry) ActivePeerCount() int64 { return r.activePeers.Load() }

// TotalPeerCount returns the number of known peers, for internal/metrics.
func (r *Registry) TotalPeerCount() int64 { return r.totalPeers.Load() }

func (r *Registry) recountActive() {
	var n int64
	for _, p := range r.peers {
		if !p.Self && p.Status == StatusActive {
			n++
		}
	}
	r.activePeers.Store(n)
}
