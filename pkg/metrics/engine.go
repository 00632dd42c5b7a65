package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics observes the transfer engine's connection handling.
//
// Create one instance per engine and share it across generations:
// Prometheus rejects duplicate collector registration, so per-bind
// construction would panic on restart.
type EngineMetrics interface {
	// ConnectionAccepted counts a connection admitted into a session.
	ConnectionAccepted()

	// ConnectionRejected counts a connection turned away by the
	// admission guard.
	ConnectionRejected()

	// ConnectionClosed counts a session that has ended.
	ConnectionClosed()

	// SetActiveConnections updates the live session gauge.
	SetActiveConnections(count int32)

	// UserRegistered counts an account registered with a generation.
	UserRegistered()
}

// NewEngineMetrics returns a Prometheus-backed EngineMetrics, or a no-op
// implementation when metrics are disabled.
func NewEngineMetrics() EngineMetrics {
	if !IsEnabled() {
		return noopEngineMetrics{}
	}

	reg := GetRegistry()

	return &engineMetrics{
		connectionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpkeeper_connections_total",
				Help: "Total connections by admission outcome",
			},
			[]string{"outcome"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ftpkeeper_active_connections",
				Help: "Currently active client connections",
			},
		),
		usersRegistered: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpkeeper_users_registered_total",
				Help: "Accounts registered with engine generations",
			},
		),
	}
}

type engineMetrics struct {
	connectionsTotal  *prometheus.CounterVec
	activeConnections prometheus.Gauge
	usersRegistered   prometheus.Counter
}

func (m *engineMetrics) ConnectionAccepted() {
	m.connectionsTotal.WithLabelValues("accepted").Inc()
}

func (m *engineMetrics) ConnectionRejected() {
	m.connectionsTotal.WithLabelValues("rejected").Inc()
}

func (m *engineMetrics) ConnectionClosed() {
	m.connectionsTotal.WithLabelValues("closed").Inc()
}

func (m *engineMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *engineMetrics) UserRegistered() {
	m.usersRegistered.Inc()
}

type noopEngineMetrics struct{}

func (noopEngineMetrics) ConnectionAccepted()        {}
func (noopEngineMetrics) ConnectionRejected()        {}
func (noopEngineMetrics) ConnectionClosed()          {}
func (noopEngineMetrics) SetActiveConnections(int32) {}
func (noopEngineMetrics) UserRegistered()            {}
