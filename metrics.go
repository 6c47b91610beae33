package vcr

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts session decisions and cassette writes. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	decisions *prometheus.CounterVec
	persists  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, unless reg
// is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vcr",
			Name:      "decisions_total",
			Help:      "Intercepted requests by record mode and action.",
		}, []string{"mode", "action"}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vcr",
			Name:      "persists_total",
			Help:      "Cassette writes by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.persists)
	}
	return m
}

func (m *Metrics) observeDecision(mode RecordMode, a Action) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(mode.String(), a.String()).Inc()
}

func (m *Metrics) observePersist(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persists.WithLabelValues(result).Inc()
}
