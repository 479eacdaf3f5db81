package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's collectors.
	Registry = prometheus.NewRegistry()

	bountiesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bounty_board",
			Subsystem: "engine",
			Name:      "bounties_created_total",
			Help:      "Total number of bounties created.",
		},
	)

	submissionsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bounty_board",
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Total number of submissions accepted.",
		},
	)

	approvals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bounty_board",
			Subsystem: "engine",
			Name:      "approvals_total",
			Help:      "Winner approvals by trigger (manual|system) and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bounty_board",
			Subsystem: "payments",
			Name:      "transfers_total",
			Help:      "Reward transfers by outcome.",
		},
		[]string{"outcome"},
	)

	schedulerTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bounty_board",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of auto-resolution passes.",
		},
	)

	schedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bounty_board",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of auto-resolution passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)
)

func init() {
	Registry.MustRegister(
		bountiesCreated,
		submissionsReceived,
		approvals,
		payouts,
		schedulerTicks,
		schedulerTickDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordBountyCreated() { bountiesCreated.Inc() }

func RecordSubmission() { submissionsReceived.Inc() }

func RecordApproval(trigger, outcome string) {
	approvals.WithLabelValues(trigger, outcome).Inc()
}

func RecordPayout(outcome string) {
	payouts.WithLabelValues(outcome).Inc()
}

func RecordTick(seconds float64) {
	schedulerTicks.Inc()
	schedulerTickDuration.Observe(seconds)
}
