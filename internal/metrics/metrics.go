// Package metrics registers and serves the daemon's Prometheus metrics,
// the same role neo-go's BasicService-gated Prometheus endpoint plays:
// an optional HTTP listener nudged by gauges the rest of the daemon
// updates as it runs.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PeerCounts is the source of the peer gauges this package publishes; satisfied
// by *registry.Registry.
type PeerCounts interface {
	ActivePeerCount() int64
	TotalPeerCount() int64
}

// SessionCounts is the source of the session gauge; satisfied by *ircd.Server.
type SessionCounts interface {
	SessionCount() int64
}

// Metrics owns the registered collectors and an optional HTTP server.
type Metrics struct {
	peersActive    prometheus.Gauge
	peersTotal     prometheus.Gauge
	sessions       prometheus.Gauge
	datagramsTotal *prometheus.CounterVec

	srv *http.Server
	log *zap.Logger
}

// New registers the meshchat_* collectors against reg.
func New(reg prometheus.Registerer, log *zap.Logger) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		peersActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshchat_peers_active",
			Help: "Number of mesh peers currently considered active.",
		}),
		peersTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshchat_peers_total",
			Help: "Number of mesh peers known to the registry, in any state.",
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshchat_sessions",
			Help: "Number of connected local chat sessions.",
		}),
		datagramsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meshchat_datagrams_total",
			Help: "Mesh datagrams processed, by direction and event tag.",
		}, []string{"direction", "tag"}),
		log: log.With(zap.String("module", "metrics")),
	}
}

// ObserveDatagram increments the datagram counter for one direction/tag pair.
func (m *Metrics) ObserveDatagram(direction, tag string) {
	m.datagramsTotal.WithLabelValues(direction, tag).Inc()
}

// RefreshFrom pulls the current gauge values from the running components.
// The daemon calls this once per service tick, the same cadence neo-go's
// updatePeersConnectedMetric helper is nudged at from its event loop.
func (m *Metrics) RefreshFrom(peers PeerCounts, sessions SessionCounts) {
	m.peersActive.Set(float64(peers.ActivePeerCount()))
	m.peersTotal.Set(float64(peers.TotalPeerCount()))
	m.sessions.Set(float64(sessions.SessionCount()))
}

// ListenAndServe starts the /metrics HTTP endpoint in the background. Call
// Shutdown to stop it.
func (m *Metrics) ListenAndServe(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.srv = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	m.log.Info("metrics listening", zap.String("addr", addr))
}

// Shutdown stops the HTTP server, if running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
