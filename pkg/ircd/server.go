// Package ircd implements the line-oriented chat front end: a minimal,
// single-identity IRC subset that one or more local clients connect to,
// bridged out to the mesh via the PeerEvents callbacks.
package ircd

import (
	"net"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Config holds the front end's fixed parameters.
type Config struct {
	// ServerName is this relay's own server name, reported in numeric
	// replies' trailing server-name field (004).
	ServerName string
	// NetworkName is reported in the 002 welcome line.
	NetworkName string
}

func (c Config) withDefaults() Config {
	if c.ServerName == "" {
		c.ServerName = "ircd-meshchat"
	}
	if c.NetworkName == "" {
		c.NetworkName = "MeshChat"
	}
	return c
}

// PeerEvents is how the chat front end tells the mesh side about actions
// the local identity took, so they can be broadcast to peers.
type PeerEvents interface {
	OnLocalJoin(channel string)
	OnLocalPart(channel, reason string)
	OnLocalMsg(channel, text string)
	OnLocalNotice(channel, text string)
	OnLocalNick(newNick string)
	OnLocalQuit(reason string)
}

// Server is the chat front end. Every mutation of its state (sessions,
// channels, the bridged identity) is serialized through actionch, the
// same pattern pkg/registry uses, so the two components can never race
// even though each owns its own goroutine(s).
type Server struct {
	cfg   Config
	log   *zap.Logger
	peers PeerEvents

	hostname string

	nick     string
	username string
	realname string

	sessions map[uuid.UUID]*Session
	channels map[string]*Channel

	sessionCount atomic.Int64

	actionch chan func()
	quit     chan struct{}
	ln       net.Listener
}

// New builds a Server. peers is typically pkg/daemon's adapter that turns
// these callbacks into *registry.Registry broadcasts.
func New(cfg Config, peers PeerEvents, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		peers:    peers,
		log:      log.With(zap.String("module", "ircd")),
		sessions: make(map[uuid.UUID]*Session),
		channels: make(map[string]*Channel),
		actionch: make(chan func(), 256),
		quit:     make(chan struct{}),
	}
}

// SetHostname sets the hostname reported to clients, usually the node's
// own overlay address once the daemon has resolved it.
func (s *Server) SetHostname(host string) {
	s.actionch <- func() { s.hostname = host }
}

// SessionCount returns the number of connected sessions, for internal/metrics.
func (s *Server) SessionCount() int64 { return s.sessionCount.Load() }

// ListenAndServe binds addr and accepts sessions until the listener errs
// or Close is called. It runs the action loop on a background goroutine,
// and blocks accepting connections.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := s.Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Listen binds addr and starts the action loop, returning the bound
// listener for Serve. Split from ListenAndServe so tests can discover the
// ephemeral port a ":0" bind picked.
func (s *Server) Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.ln = ln
	go s.loop()
	s.log.Info("ircd listening", zap.String("addr", ln.Addr().String()))
	return ln, nil
}

// Serve accepts sessions on ln until it errs or Close is called.
func (s *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new sessions and the action loop; in-flight
// connections are closed as their read loops observe EOF.
func (s *Server) Close() {
	close(s.quit)
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) loop() {
	for {
		select {
		case f := <-s.actionch:
			f()
		case <-s.quit:
			return
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	sess := newSession(conn)
	s.log.Debug("session accepted", zap.Stringer("session", sess.id), zap.String("ip", sess.ip))

	done := make(chan struct{})
	s.actionch <- func() {
		s.sessions[sess.id] = sess
		s.sessionCount.Store(int64(len(s.sessions)))
		close(done)
	}
	<-done

	sess.readLoop(func(line string) {
		s.actionch <- func() { s.handleLine(sess, line) }
	})

	removed := make(chan struct{})
	s.actionch <- func() {
		delete(s.sessions, sess.id)
		s.sessionCount.Store(int64(len(s.sessions)))
		close(removed)
	}
	<-removed
}

func (s *Server) selfPrefix() Prefix {
	return Prefix{Nick: s.nick, Host: s.hostname}
}

// broadcastToSessions sends a pre-formatted line to every connected
// session, mirroring ircd_{join,part,quit,...}'s loop over session_list.
func (s *Server) broadcastToSessions(prefix Prefix, format string, args ...interface{}) {
	for _, sess := range s.sessions {
		if err := sess.sendf(prefix, format, args...); err != nil {
			s.log.Debug("write to session failed", zap.Stringer("session", sess.id), zap.Error(err))
		}
	}
}
