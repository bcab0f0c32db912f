package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Scheduling metrics
	AppointmentOperations *prometheus.CounterVec
	AppointmentConflicts  prometheus.Counter
	OperationLatency      *prometheus.HistogramVec

	// Notification metrics
	NotificationRecords   *prometheus.CounterVec
	DispatchAttempts      *prometheus.CounterVec
	UnreachableRecipients prometheus.Counter
	DispatchLatency       prometheus.Histogram

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge
	OutboxRetries           *prometheus.CounterVec
}

// New creates and registers all application metrics on reg. A nil reg uses
// the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AppointmentOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_operations_total",
			Help:      "Scheduling operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		AppointmentConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_conflicts_total",
			Help:      "Writes rejected because a provider was already booked",
		}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "appointment_operation_duration_seconds",
			Help:      "Duration of scheduling operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),

		NotificationRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_records_total",
			Help:      "Durable notification records by kind and result",
		}, []string{"kind", "result"}),
		DispatchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Outbound message attempts by result",
		}, []string{"result"}),
		UnreachableRecipients: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_unreachable_recipients_total",
			Help:      "Recipients skipped for lack of a contact address",
		}),
		DispatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent delivering one outbound message",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_queue_size",
			Help:      "Current number of events in the outbox queue",
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
	}
}

func (m *Metrics) ObserveOperation(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.AppointmentOperations.WithLabelValues(operation, outcome).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.AppointmentConflicts.Inc()
}

func (m *Metrics) IncNotificationRecord(kind, result string) {
	if m == nil {
		return
	}
	m.NotificationRecords.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveDispatch(result string, started time.Time) {
	if m == nil {
		return
	}
	m.DispatchAttempts.WithLabelValues(result).Inc()
	m.DispatchLatency.Observe(time.Since(started).Seconds())
}

func (m *Metrics) AddUnreachable(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.UnreachableRecipients.Add(float64(n))
}

func (m *Metrics) ObserveOutbox(processed bool, eventType string, started time.Time) {
	if m == nil {
		return
	}
	if processed {
		m.OutboxEventsProcessed.Inc()
	} else {
		m.OutboxEventsFailed.Inc()
		m.OutboxRetries.WithLabelValues(eventType).Inc()
	}
	m.OutboxProcessingLatency.Observe(time.Since(started).Seconds())
}

func (m *Metrics) SetOutboxQueueSize(n int) {
	if m == nil {
		return
	}
	m.OutboxQueueSize.Set(float64(n))
}
