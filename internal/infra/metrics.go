package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics はサンドボックスのPrometheusメトリクス。
type Metrics struct {
	PreregistrationsCreated prometheus.Counter
	Tokenizations           *prometheus.CounterVec
}

// NewMetrics はregにメトリクスを登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PreregistrationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_preregistrations_created_total",
			Help: "Total number of card preregistrations created",
		}),
		Tokenizations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sandbox_tokenizations_total",
			Help: "Total number of tokenization requests by result code",
		}, []string{"result"}),
	}
}

// ObservePreregistration は事前登録の発行を記録する。
func (m *Metrics) ObservePreregistration() {
	m.PreregistrationsCreated.Inc()
}

// ObserveTokenization はトークン化の結果を記録する。成功時のresultは"ok"。
func (m *Metrics) ObserveTokenization(result string) {
	m.Tokenizations.WithLabelValues(result).Inc()
}
