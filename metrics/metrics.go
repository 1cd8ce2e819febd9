package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	Registrations *prometheus.CounterVec
	Funding       *prometheus.CounterVec
	ChainFailures *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "injpass_registrations_total",
			Help: "NFC registrations by result (created, existing, error).",
		}, []string{"result"}),
		Funding: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "injpass_funding_total",
			Help: "Background initial funding attempts by result.",
		}, []string{"result"}),
		ChainFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "injpass_chain_failures_total",
			Help: "Failed chain calls by operation.",
		}, []string{"op"}),
	}
}

func (m *Metrics) IncRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncFunding(result string) {
	if m == nil {
		return
	}
	m.Funding.WithLabelValues(result).Inc()
}

func (m *Metrics) IncChainFailure(op string) {
	if m == nil {
		return
	}
	m.ChainFailures.WithLabelValues(op).Inc()
}
