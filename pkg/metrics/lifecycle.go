package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LifecycleMetrics observes the supervisor's state machine. One instance
// per supervisor.
type LifecycleMetrics interface {
	// SetState publishes the current lifecycle state as a gauge.
	SetState(state int32)

	// BindFailure counts a failed bind attempt.
	BindFailure()

	// EngineFault counts an asynchronous engine failure.
	EngineFault()
}

// NewLifecycleMetrics returns a Prometheus-backed LifecycleMetrics, or a
// no-op implementation when metrics are disabled.
func NewLifecycleMetrics() LifecycleMetrics {
	if !IsEnabled() {
		return noopLifecycleMetrics{}
	}

	reg := GetRegistry()

	return &lifecycleMetrics{
		state: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ftpkeeper_lifecycle_state",
				Help: "Current lifecycle state (0=stopped 1=starting 2=running 3=stopping 4=failed)",
			},
		),
		bindFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpkeeper_bind_failures_total",
				Help: "Failed attempts to bind the listen address",
			},
		),
		engineFaults: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpkeeper_engine_faults_total",
				Help: "Asynchronous engine failures observed while running",
			},
		),
	}
}

type lifecycleMetrics struct {
	state        prometheus.Gauge
	bindFailures prometheus.Counter
	engineFaults prometheus.Counter
}

func (m *lifecycleMetrics) SetState(state int32) {
	m.state.Set(float64(state))
}

func (m *lifecycleMetrics) BindFailure() {
	m.bindFailures.Inc()
}

func (m *lifecycleMetrics) EngineFault() {
	m.engineFaults.Inc()
}

type noopLifecycleMetrics struct{}

func (noopLifecycleMetrics) SetState(int32) {}
func (noopLifecycleMetrics) BindFailure()   {}
func (noopLifecycleMetrics) EngineFault()   {}
