package netcheck

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records probe outcomes on a private registry so a one-shot CLI
// run can dump them for the node-exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	up      *prometheus.GaugeVec
	latency *prometheus.HistogramVec
	chainID *prometheus.GaugeVec
}

// NewMetrics creates and registers the probe metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolchain_network_up",
				Help: "Whether the last probe of the network succeeded (1) or not (0)",
			},
			[]string{"network"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolchain_network_probe_seconds",
				Help:    "Network probe duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"network"},
		),
		chainID: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolchain_network_chain_id",
				Help: "Chain ID reported by the network endpoint",
			},
			[]string{"network"},
		),
	}
	m.registry.MustRegister(m.up, m.latency, m.chainID)
	return m
}

// Registry returns the registry holding the probe metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(r Result) {
	up := 0.0
	if r.OK() {
		up = 1
	}
	m.up.WithLabelValues(r.Network).Set(up)
	m.latency.WithLabelValues(r.Network).Observe(r.Latency.Seconds())
	if r.ChainID != 0 {
		m.chainID.WithLabelValues(r.Network).Set(float64(r.ChainID))
	}
}
