package otp

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts OTP outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	pending  prometheus.GaugeFunc
}

// NewMetrics registers the OTP collectors on reg.
func NewMetrics(reg prometheus.Registerer, codes *Store) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staff_otp_events_total",
			Help: "One-time code events by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "staff_otp_pending",
			Help: "Codes currently held in memory.",
		}, func() float64 { return float64(codes.Len()) }),
	}
	reg.MustRegister(m.outcomes, m.pending)
	return m
}

func (m *Metrics) inc(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) issued()         { m.inc("issued") }
func (m *Metrics) deliveryFailed() { m.inc("delivery_failed") }
func (m *Metrics) verified()       { m.inc("verified") }
func (m *Metrics) rejected()       { m.inc("rejected") }
