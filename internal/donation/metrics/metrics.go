package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donation module.
// Tracks donation creation, recurring state transitions, token migrations and
// the hot aggregate path.
type Metrics struct {
	DonationsCreated     *prometheus.CounterVec
	RecurringTransitions *prometheus.CounterVec
	TokenMigrations      prometheus.Counter
	MigratedRecords      prometheus.Histogram
	TotalsCacheHits      prometheus.Counter
	TotalsCacheMisses    prometheus.Counter
	MonthlyTotalDuration prometheus.Histogram
}

// New creates a new Metrics instance with all donation module metrics registered.
func New() *Metrics {
	return &Metrics{
		DonationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givers_donations_created_total",
			Help: "Total number of donations created",
		}, []string{"kind"}),
		RecurringTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givers_recurring_transitions_total",
			Help: "Total number of recurring donation state transitions",
		}, []string{"transition"}),
		TokenMigrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givers_token_migrations_total",
			Help: "Total number of completed donor token migrations",
		}),
		MigratedRecords: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "givers_token_migration_records",
			Help:    "Number of donation records reassigned per token migration",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		TotalsCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givers_monthly_total_cache_hits_total",
			Help: "Total number of monthly total reads served from cache",
		}),
		TotalsCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givers_monthly_total_cache_misses_total",
			Help: "Total number of monthly total reads computed from the store",
		}),
		MonthlyTotalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "givers_monthly_total_duration_seconds",
			Help:    "Duration of CurrentMonthlyTotal computations (achievement hot path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementDonationCreated records a created donation by kind
// ("one_time" or "recurring").
func (m *Metrics) IncrementDonationCreated(kind string) {
	m.DonationsCreated.WithLabelValues(kind).Inc()
}

// IncrementTransition records a recurring state transition
// ("pause", "resume", "cancel", "delete", "update").
func (m *Metrics) IncrementTransition(transition string) {
	m.RecurringTransitions.WithLabelValues(transition).Inc()
}

// RecordMigration records one completed token migration and how many records
// it reassigned.
func (m *Metrics) RecordMigration(records int) {
	m.TokenMigrations.Inc()
	m.MigratedRecords.Observe(float64(records))
}

// ObserveMonthlyTotal records the duration of a CurrentMonthlyTotal
// computation. Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMonthlyTotal(start time.Time) {
	m.MonthlyTotalDuration.Observe(time.Since(start).Seconds())
}
