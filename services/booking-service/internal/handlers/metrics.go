package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes.
const (
	outcomeCreated    = "created"
	outcomeReplayed   = "replayed"
	outcomeConflict   = "conflict"
	outcomeNotOffered = "not_offered"
	outcomeRejected   = "rejected"
	outcomeError      = "error"
)

type Metrics struct {
	bookings     *prometheus.CounterVec
	offered      prometheus.Histogram
	cancellation prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		bookings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking submissions by outcome.",
		}, []string{"outcome"}),
		offered: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "offered_slots",
			Help:      "Number of slots offered per day listing.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 96},
		}),
		cancellation: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Meetings cancelled by hosts.",
		}),
	}
}

func (m *Metrics) booking(outcome string) {
	m.bookings.WithLabelValues(outcome).Inc()
}
