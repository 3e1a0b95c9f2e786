package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "saga"

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders accepted in PENDING state.",
	})

	OrdersFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_finalized_total",
		Help:      "Orders moved to a terminal state.",
	}, []string{"status"})

	Outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_outcomes_total",
		Help:      "Reservation outcomes produced by the evaluator.",
	}, []string{"status", "reason"})

	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumer_messages_total",
		Help:      "Consumed messages by final result.",
	}, []string{"consumer", "result"})

	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumer_retries_total",
		Help:      "Handler retries after a transient error.",
	}, []string{"consumer"})

	DeadLetters = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dead_letters_total",
		Help:      "Messages observed on dead-letter topics.",
	}, []string{"topic"})

	OutboxDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dispatched_total",
		Help:      "Outbox events published to Kafka.",
	}, []string{"relay"})

	OutboxFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failed_total",
		Help:      "Outbox dispatch failures.",
	}, []string{"relay"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
