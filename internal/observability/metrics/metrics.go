package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the availability and
// reservation flows.
type BookingMetrics struct {
	reserveTotal    *prometheus.CounterVec
	sweepDeleted    prometheus.Counter
	computeDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		reserveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawlink",
			Subsystem: "reservations",
			Name:      "reserve_total",
			Help:      "Total slot reservation attempts",
		}, []string{"outcome"}),
		sweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lawlink",
			Subsystem: "reservations",
			Name:      "sweep_deleted_total",
			Help:      "Expired holds reclaimed by the sweep",
		}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lawlink",
			Subsystem: "availability",
			Name:      "compute_seconds",
			Help:      "Latency of availability computation",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawlink",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reserveTotal, m.sweepDeleted, m.computeDuration, m.cacheLookups)
	return m
}

// ObserveReserve records a reservation attempt: "held", "conflict", or "error".
func (m *BookingMetrics) ObserveReserve(outcome string) {
	if m == nil {
		return
	}
	m.reserveTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveSweep(deleted int64) {
	if m == nil {
		return
	}
	m.sweepDeleted.Add(float64(deleted))
}

func (m *BookingMetrics) ObserveCompute(seconds float64) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(seconds)
}

// ObserveCacheLookup records "hit" or "miss".
func (m *BookingMetrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
