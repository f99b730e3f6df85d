package server

import (
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions  = promauto.NewGauge(prometheus.GaugeOpts{Name: "consolegw_active_sessions", Help: "Currently proxied console sessions"})
	sessionsTotal   = promauto.NewCounter(prometheus.CounterOpts{Name: "consolegw_sessions_total", Help: "Console sessions established"})
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "consolegw_rejections_total", Help: "Rejected connections by reason"}, []string{"reason"})
	sessionSeconds  = promauto.NewHistogram(prometheus.HistogramOpts{Name: "consolegw_session_duration_seconds", Help: "Console session lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 16)})
	bytesToBackend  = promauto.NewCounter(prometheus.CounterOpts{Name: "consolegw_bytes_to_backend_total", Help: "Bytes relayed client to backend"})
	bytesToClient   = promauto.NewCounter(prometheus.CounterOpts{Name: "consolegw_bytes_to_client_total", Help: "Bytes relayed backend to client"})
)

// countingConn instruments the client side of a relay with byte counters.
type countingConn struct {
	net.Conn
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		bytesToBackend.Add(float64(n))
	}
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		bytesToClient.Add(float64(n))
	}
	return n, err
}
