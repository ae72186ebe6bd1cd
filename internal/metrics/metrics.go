package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Message handling outcomes.
const (
	OutcomeHandled = "handled"
	OutcomeIgnored = "ignored"
	OutcomeDropped = "dropped"
	OutcomeFailed  = "failed"
)

// Recorder collects service metrics. Components take it as a dependency
// and fall back to NoOp.
type Recorder interface {
	MessageHandled(messageType, outcome string, duration time.Duration)
	EventAppended(messageType string)
	ProcessingError(messageType string)
}

type NoOp struct{}

func (NoOp) MessageHandled(string, string, time.Duration) {}
func (NoOp) EventAppended(string)                         {}
func (NoOp) ProcessingError(string)                       {}

// Prometheus implements Recorder with client_golang collectors labeled with
// the service name.
type Prometheus struct {
	service          string
	messagesHandled  *prometheus.CounterVec
	handleLatency    *prometheus.HistogramVec
	eventsAppended   *prometheus.CounterVec
	processingErrors *prometheus.CounterVec
}

func NewPrometheus(service string, reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		service: service,
		messagesHandled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fooddelivery",
				Name:      "messages_handled_total",
				Help:      "Channel messages handled, by type and outcome",
			},
			[]string{"service", "type", "outcome"},
		),
		handleLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fooddelivery",
				Name:      "message_handle_duration_seconds",
				Help:      "Time spent handling a channel message",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "type"},
		),
		eventsAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fooddelivery",
				Name:      "events_appended_total",
				Help:      "Events appended to entity logs",
			},
			[]string{"service", "type"},
		),
		processingErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fooddelivery",
				Name:      "processing_errors_total",
				Help:      "Commands rejected with a processing error event",
			},
			[]string{"service", "type"},
		),
	}
	reg.MustRegister(p.messagesHandled, p.handleLatency, p.eventsAppended, p.processingErrors)
	return p
}

func (p *Prometheus) MessageHandled(messageType, outcome string, duration time.Duration) {
	p.messagesHandled.WithLabelValues(p.service, messageType, outcome).Inc()
	p.handleLatency.WithLabelValues(p.service, messageType).Observe(duration.Seconds())
}

func (p *Prometheus) EventAppended(messageType string) {
	p.eventsAppended.WithLabelValues(p.service, messageType).Inc()
}

func (p *Prometheus) ProcessingError(messageType string) {
	p.processingErrors.WithLabelValues(p.service, messageType).Inc()
}
