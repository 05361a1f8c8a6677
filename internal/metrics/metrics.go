package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks verification submissions, review decisions and instant checks.
type Metrics struct {
	Submissions          *prometheus.CounterVec
	Reviews              *prometheus.CounterVec
	InstantVerifications *prometheus.CounterVec
	InstantDuration      prometheus.Histogram
	PendingQueue         prometheus.Gauge
}

// New registers the verification metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusstay",
			Subsystem: "verification",
			Name:      "submissions_total",
			Help:      "Manual verification submissions by outcome",
		}, []string{"outcome"}),
		Reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusstay",
			Subsystem: "verification",
			Name:      "reviews_total",
			Help:      "Review decisions by decision",
		}, []string{"decision"}),
		InstantVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusstay",
			Subsystem: "verification",
			Name:      "instant_total",
			Help:      "Instant verification attempts by result",
		}, []string{"result"}),
		InstantDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campusstay",
			Subsystem: "verification",
			Name:      "instant_duration_seconds",
			Help:      "Duration of instant verification provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PendingQueue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "campusstay",
			Subsystem: "verification",
			Name:      "pending_records",
			Help:      "Pending records seen by the last unfiltered or pending queue listing",
		}),
	}
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReview(decision string) {
	if m == nil {
		return
	}
	m.Reviews.WithLabelValues(decision).Inc()
}

// ObserveInstant records the result and duration of a provider call.
// Call with time.Now() at the start of the call.
func (m *Metrics) ObserveInstant(result string, start time.Time) {
	if m == nil {
		return
	}
	m.InstantVerifications.WithLabelValues(result).Inc()
	m.InstantDuration.Observe(time.Since(start).Seconds())
}

// IncInstant counts an attempt that never reached the provider.
func (m *Metrics) IncInstant(result string) {
	if m == nil {
		return
	}
	m.InstantVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingQueue.Set(float64(n))
}
