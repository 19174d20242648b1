package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Removal reasons for RecordRemoved
const (
	ReasonDelivered = "delivered"
	ReasonDeleted   = "deleted"
	ReasonExpired   = "expired"
)

var (
	remindersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindbot_reminders_created_total",
			Help: "Reminders stored by the remind commands",
		},
	)

	remindersRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindbot_reminders_removed_total",
			Help: "Reminders removed by reason",
		},
		[]string{"reason"},
	)

	whoisQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindbot_whois_queries_total",
			Help: "WHOIS batches sent by the delivery worker",
		},
	)

	workerPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindbot_worker_polls_total",
			Help: "Delivery worker poll iterations",
		},
	)

	dueReceivers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remindbot_due_receivers",
			Help: "Distinct receivers with a due reminder at the last poll",
		},
	)

	deliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindbot_delivery_failures_total",
			Help: "Reminders that failed while being delivered",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCreated records a stored reminder
func RecordCreated() {
	remindersCreated.Inc()
}

// RecordRemoved records n reminders removed for reason
func RecordRemoved(reason string, n int64) {
	if n <= 0 {
		return
	}
	remindersRemoved.WithLabelValues(reason).Add(float64(n))
}

// RecordWhois records one WHOIS batch
func RecordWhois() {
	whoisQueries.Inc()
}

// RecordPoll records one worker iteration and the due receiver count it saw
func RecordPoll(due int) {
	workerPolls.Inc()
	dueReceivers.Set(float64(due))
}

// RecordDeliveryFailure records a reminder that could not be delivered
func RecordDeliveryFailure() {
	deliveryFailures.Inc()
}
