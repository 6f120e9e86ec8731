package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "slot_queries_total",
			Help:      "Availability queries served.",
		},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "bookings_created_total",
			Help:      "Bookings committed to the store.",
		},
	)

	commitConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "commit_conflicts_total",
			Help:      "Commits rejected because the slot was already taken.",
		},
	)

	codesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "verification_codes_sent_total",
			Help:      "One-time codes issued by delivery channel.",
		},
		[]string{"channel"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotnik",
			Name:      "verifications_total",
			Help:      "Code verification attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			slotQueries,
			bookingsCreated,
			commitConflicts,
			codesSent,
			verifications,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncSlotQueries() {
	slotQueries.Inc()
}

func IncBookingsCreated() {
	bookingsCreated.Inc()
}

func IncCommitConflicts() {
	commitConflicts.Inc()
}

func IncCodesSent(channel string) {
	codesSent.WithLabelValues(channel).Inc()
}

// IncVerifications records an attempt outcome: ok, mismatch or expired.
func IncVerifications(result string) {
	verifications.WithLabelValues(result).Inc()
}
