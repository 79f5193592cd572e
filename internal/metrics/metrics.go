package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Send outcomes, used as the "outcome" label.
const (
	OutcomeSent          = "sent"
	OutcomeNoWebhook     = "no_webhook"
	OutcomeNothingToSend = "nothing_to_send"
	OutcomeOversized     = "oversized"
	OutcomeTransport     = "transport_error"
	OutcomeRejected      = "rejected"
)

type Metrics struct {
	Registry     *prometheus.Registry
	sends        *prometheus.CounterVec
	payloadBytes prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		sends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatcard_sends_total",
			Help: "Send attempts by outcome.",
		}, []string{"outcome"}),
		payloadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatcard_payload_bytes",
			Help:    "Serialized size of payloads that reached the network.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 7),
		}),
	}
}

// ObserveSend records one send attempt. bytes is only observed for attempts
// that were actually posted. A nil *Metrics discards everything.
func (m *Metrics) ObserveSend(outcome string, bytes int) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeSent, OutcomeRejected, OutcomeTransport:
		m.payloadBytes.Observe(float64(bytes))
	}
}

func (m *Metrics) Sends(outcome string) prometheus.Counter {
	return m.sends.WithLabelValues(outcome)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
