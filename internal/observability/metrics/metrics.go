package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the public booking flow.
type BookingMetrics struct {
	transitionsTotal  *prometheus.CounterVec
	slotFetchTotal    *prometheus.CounterVec
	slotFetchStale    prometheus.Counter
	slotFetchLatency  prometheus.Histogram
	submissionsTotal  *prometheus.CounterVec
	submissionLatency prometheus.Histogram
	activeSessions    prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Wizard transitions by name and result",
		}, []string{"transition", "result"}),
		slotFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_fetch_total",
			Help:      "Slot lookups by outcome (ok, empty, error)",
		}, []string{"outcome"}),
		slotFetchStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_fetch_stale_total",
			Help:      "Slot lookups discarded because a newer date was selected",
		}),
		slotFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_fetch_latency_seconds",
			Help:      "Latency of availability lookups",
			Buckets:   prometheus.DefBuckets,
		}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Appointment submissions by result",
		}, []string{"result"}),
		submissionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "submission_latency_seconds",
			Help:      "Latency of appointment creation calls",
			Buckets:   prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "active_sessions",
			Help:      "Booking sessions currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.transitionsTotal,
		m.slotFetchTotal,
		m.slotFetchStale,
		m.slotFetchLatency,
		m.submissionsTotal,
		m.submissionLatency,
		m.activeSessions,
	)
	return m
}

func (m *BookingMetrics) ObserveTransition(transition string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.transitionsTotal.WithLabelValues(transition, result).Inc()
}

func (m *BookingMetrics) ObserveSlotFetch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.slotFetchTotal.WithLabelValues(outcome).Inc()
	m.slotFetchLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveStaleSlots() {
	if m == nil {
		return
	}
	m.slotFetchStale.Inc()
}

func (m *BookingMetrics) ObserveSubmission(result string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(result).Inc()
	if seconds > 0 {
		m.submissionLatency.Observe(seconds)
	}
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
