package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// RabbitMQConnected is 1 while the subscriber considers itself connected.
	RabbitMQConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldops",
		Subsystem: "pipeline",
		Name:      "rabbitmq_connected",
		Help:      "Whether the validation subscriber is currently connected to RabbitMQ (best-effort).",
	})

	// WorkerInFlight is the number of deliveries currently being processed.
	WorkerInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldops",
		Subsystem: "pipeline",
		Name:      "rabbitmq_worker_in_flight",
		Help:      "Current number of RabbitMQ deliveries being processed by worker goroutines.",
	})

	// ProcessedTotal counts processed deliveries by outcome.
	ProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldops",
		Subsystem: "pipeline",
		Name:      "rabbitmq_processed_total",
		Help:      "Total number of RabbitMQ deliveries processed by the validation subscriber, labeled by result.",
	}, []string{"result"})

	// PhotoValidationsTotal counts validation verdicts by status.
	PhotoValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldops",
		Subsystem: "pipeline",
		Name:      "photo_validations_total",
		Help:      "Total number of photo validation verdicts, labeled by status.",
	}, []string{"status"})

	// JobsCompletedTotal counts sector jobs that reached DONE.
	JobsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldops",
		Subsystem: "pipeline",
		Name:      "jobs_completed_total",
		Help:      "Total number of sector jobs whose checklist finished.",
	})
)

// Register registers the pipeline metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RabbitMQConnected,
			WorkerInFlight,
			ProcessedTotal,
			PhotoValidationsTotal,
			JobsCompletedTotal,
		)
	})
}
