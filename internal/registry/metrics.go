package registry

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the registry's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Registered prometheus.Counter
	Fired      *prometheus.CounterVec
	Dropped    prometheus.Counter
	Expired    prometheus.Counter
	Cancelled  prometheus.Counter
	Pending    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spongycord",
			Subsystem: "registry",
			Name:      "registered_total",
			Help:      "Reply matchers registered.",
		}),
		Fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spongycord",
			Subsystem: "registry",
			Name:      "fired_total",
			Help:      "Reply matchers fired, by reply tag.",
		}, []string{"tag"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spongycord",
			Subsystem: "registry",
			Name:      "dropped_total",
			Help:      "Inbound frames that matched no pending matcher.",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spongycord",
			Subsystem: "registry",
			Name:      "expired_total",
			Help:      "Reply matchers dropped by the expiry sweep.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spongycord",
			Subsystem: "registry",
			Name:      "cancelled_total",
			Help:      "Reply matchers cancelled by the caller.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spongycord",
			Subsystem: "registry",
			Name:      "pending",
			Help:      "Reply matchers waiting for a frame.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Registered, m.Fired, m.Dropped, m.Expired, m.Cancelled, m.Pending)
	}
	return m
}

func (m *Metrics) registered(pending int) {
	if m == nil {
		return
	}
	m.Registered.Inc()
	m.Pending.Set(float64(pending))
}

func (m *Metrics) fired(tag string, pending int) {
	if m == nil {
		return
	}
	m.Fired.WithLabelValues(tag).Inc()
	m.Pending.Set(float64(pending))
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *Metrics) cancelled(pending int) {
	if m == nil {
		return
	}
	m.Cancelled.Inc()
	m.Pending.Set(float64(pending))
}

func (m *Metrics) expired(n, pending int) {
	if m == nil || n == 0 {
		return
	}
	m.Expired.Add(float64(n))
	m.Pending.Set(float64(pending))
}
