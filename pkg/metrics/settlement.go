package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records counters for the settlement engine's money
// movement lifecycle.
type SettlementMetrics struct {
	entriesRecorded  prometheus.Counter
	payoutsCreated   prometheus.Counter
	payoutsCompleted prometheus.Counter
	payoutsFailed    *prometheus.CounterVec
	transferDuration prometheus.Histogram
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	entriesRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commission_entries_recorded",
		Help: "Commission entries recorded from settled orders.",
	})
	payoutsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_created",
		Help: "Payout batches created.",
	})
	payoutsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_completed",
		Help: "Payouts that reached the completed state.",
	})
	payoutsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payouts_failed",
		Help: "Payout failures by classification.",
	}, []string{"kind"})
	transferDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transfer_duration_seconds",
		Help:    "Duration of external transfer calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(entriesRecorded, payoutsCreated, payoutsCompleted, payoutsFailed, transferDuration)
	return &SettlementMetrics{
		entriesRecorded:  entriesRecorded,
		payoutsCreated:   payoutsCreated,
		payoutsCompleted: payoutsCompleted,
		payoutsFailed:    payoutsFailed,
		transferDuration: transferDuration,
	}
}

// IncEntriesRecorded increments the recorded-entries counter.
func (s *SettlementMetrics) IncEntriesRecorded() {
	if s == nil || s.entriesRecorded == nil {
		return
	}
	s.entriesRecorded.Inc()
}

// IncPayoutsCreated increments the created-payouts counter.
func (s *SettlementMetrics) IncPayoutsCreated() {
	if s == nil || s.payoutsCreated == nil {
		return
	}
	s.payoutsCreated.Inc()
}

// IncPayoutsCompleted increments the completed-payouts counter.
func (s *SettlementMetrics) IncPayoutsCompleted() {
	if s == nil || s.payoutsCompleted == nil {
		return
	}
	s.payoutsCompleted.Inc()
}

// IncPayoutsFailed increments the failed-payouts counter for the given kind
// (transient or permanent).
func (s *SettlementMetrics) IncPayoutsFailed(kind string) {
	if s == nil || s.payoutsFailed == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	s.payoutsFailed.WithLabelValues(kind).Inc()
}

// ObserveTransferDuration records how long an external transfer call took.
func (s *SettlementMetrics) ObserveTransferDuration(duration time.Duration) {
	if s == nil || s.transferDuration == nil {
		return
	}
	s.transferDuration.Observe(duration.Seconds())
}
