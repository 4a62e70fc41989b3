package o11y

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain collectors shared by the background components
// and the state machine.
type Metrics struct {
	PositionsApplied  prometheus.Counter
	PositionsRejected *prometheus.CounterVec
	PollDuration      prometheus.Histogram
	UpdatesDropped    prometheus.Counter
	Transitions       *prometheus.CounterVec
	Attempts          *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PositionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recovery_positions_applied_total",
			Help: "Position updates written to the location history",
		}),
		PositionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_positions_rejected_total",
			Help: "Position updates that failed ingestion",
		}, []string{"reason"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recovery_poll_duration_seconds",
			Help:    "Duration of one sweep over the pending update queue",
			Buckets: prometheus.DefBuckets,
		}),
		UpdatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recovery_pending_updates_dropped_total",
			Help: "Queued updates removed from the queue without being applied",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_bike_transitions_total",
			Help: "Bike status transitions",
		}, []string{"from", "to"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_attempts_total",
			Help: "Attempt lifecycle events",
		}, []string{"event"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_notifications_total",
			Help: "Recovery notifications by path and outcome",
		}, []string{"path", "outcome"}),
	}

	reg.MustRegister(
		m.PositionsApplied,
		m.PositionsRejected,
		m.PollDuration,
		m.UpdatesDropped,
		m.Transitions,
		m.Attempts,
		m.Notifications,
	)
	return m
}

// RegisterSubscriberGauge exposes the number of connected live viewers.
func RegisterSubscriberGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "recovery_stream_subscribers",
		Help: "Viewers connected to the live location stream",
	}, func() float64 {
		return float64(count())
	}))
}
