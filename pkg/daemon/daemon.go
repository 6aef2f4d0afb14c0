// Package daemon wires the codec, admin client, peer registry, and chat
// front end together and drives their timers, the way cli/server.go wires
// a neo-go network.Server plus its services under one top-level Run.
package daemon

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rochack/meshchat-go/internal/metrics"
	"github.com/rochack/meshchat-go/pkg/admin"
	"github.com/rochack/meshchat-go/pkg/config"
	"github.com/rochack/meshchat-go/pkg/ircd"
	"github.com/rochack/meshchat-go/pkg/registry"
)

// Daemon owns every long-lived component and the single goroutine that
// services their timers.
type Daemon struct {
	cfg config.Config
	log *zap.Logger

	chat    *ircd.Server
	reg     *registry.Registry
	admin   *admin.Client
	bridge  *registryBridge
	metrics *metrics.Metrics
}

// New constructs every component but starts nothing; Run does that once
// the overlay address is known.
func New(cfg config.Config, log *zap.Logger) (*Daemon, error) {
	bridge := newRegistryBridge(nil)

	chatCfg := ircd.Config{ServerName: cfg.Chat.ServerName, NetworkName: cfg.Chat.NetworkName}
	chat := ircd.New(chatCfg, bridge, log)

	regCfg := registry.Config{
		Port:          cfg.Mesh.Port,
		PacketLen:     cfg.Mesh.PacketLen,
		PingInterval:  cfg.Mesh.PingInterval,
		Timeout:       cfg.Mesh.Timeout,
		RetryInterval: cfg.Mesh.RetryInterval,
	}
	reg := registry.New(regCfg, chat, chat, log)
	bridge.reg = reg
	bridge.nick = cfg.Chat.Nick
	reg.SetNick(cfg.Chat.Nick)

	adminClient, err := admin.New(cfg.Admin.Host, cfg.Admin.Port, log)
	if err != nil {
		return nil, fmt.Errorf("daemon: build admin client: %w", err)
	}
	adminClient.OnDiscoveredAddress(reg.OnDiscoveredAddress)

	return &Daemon{
		cfg:     cfg,
		log:     log.With(zap.String("module", "daemon")),
		chat:    chat,
		reg:     reg,
		admin:   adminClient,
		bridge:  bridge,
		metrics: metrics.New(prometheus.DefaultRegisterer, log),
	}, nil
}

// Run resolves the local overlay address, binds the mesh socket, starts
// every component, and blocks servicing fetch/service timers until ctx is
// canceled or the chat listener stops. If no overlay address can be
// found, it returns an error rather than starting anything, per the
// "exits with a diagnostic" requirement.
func (d *Daemon) Run(ctx context.Context) error {
	overlayAddr, err := resolveOverlayAddress(d.cfg.Mesh.OverlayPrefixByte)
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	d.log.Info("resolved overlay address", zap.String("address", overlayAddr))

	d.chat.SetHostname(overlayAddr)
	d.reg.SetSelf(overlayAddr)

	conn, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.ParseIP(overlayAddr), Port: d.cfg.Mesh.Port})
	if err != nil {
		return fmt.Errorf("daemon: bind mesh socket: %w", err)
	}
	defer conn.Close()

	if err := d.reg.Start(conn); err != nil {
		return fmt.Errorf("daemon: start registry: %w", err)
	}
	defer d.reg.Stop()
	go d.readMeshDatagrams(conn)

	if err := d.admin.Start(); err != nil {
		return fmt.Errorf("daemon: start admin client: %w", err)
	}
	defer d.admin.Close()

	if d.cfg.Metrics.Enabled && len(d.cfg.Metrics.Addresses) > 0 {
		d.metrics.ListenAndServe(d.cfg.Metrics.Addresses[0])
		defer func() { _ = d.metrics.Shutdown(context.Background()) }()
	}

	chatErrCh := make(chan error, 1)
	go func() { chatErrCh <- d.chat.ListenAndServe(d.cfg.Chat.ListenAddress) }()
	defer d.chat.Close()

	fetchTicker := time.NewTicker(d.cfg.Mesh.FetchInterval)
	defer fetchTicker.Stop()
	serviceTicker := time.NewTicker(d.cfg.Mesh.ServiceInterval)
	defer serviceTicker.Stop()

	go d.admin.FetchPeers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-chatErrCh:
			if err != nil {
				return fmt.Errorf("daemon: ircd server stopped: %w", err)
			}
			return nil
		case <-fetchTicker.C:
			go d.admin.FetchPeers()
		case <-serviceTicker.C:
			d.reg.Service()
			d.metrics.RefreshFrom(d.reg, d.chat)
		}
	}
}

func (d *Daemon) readMeshDatagrams(conn *net.UDPConn) {
	buf := make([]byte, 65535)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		d.reg.HandleDatagram(addr, datagram)
	}
}
