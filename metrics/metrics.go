package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "oneclick"
	subsystem = "bridge"
)

// Metrics exposes Prometheus collectors that report bridge activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	commands      *prometheus.CounterVec
	events        *prometheus.CounterVec
	probeDuration prometheus.Histogram
	sdkReady      prometheus.Gauge
	subscribed    prometheus.Gauge
}

// MustNewMetrics constructs the collectors and registers them with reg.
// Registration errors panic, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commands_total",
				Help:      "Commands dispatched, by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Events emitted to the subscriber, by type and status.",
			},
			[]string{"type", "status"},
		),
		probeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "probe_duration_seconds",
				Help:      "Time spent probing one-click login support.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		sdkReady: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sdk_ready",
				Help:      "1 while the SDK handle is registered.",
			},
		),
		subscribed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriber_attached",
				Help:      "1 while an event subscriber is attached.",
			},
		),
	}
	reg.MustRegister(m.commands, m.events, m.probeDuration, m.sdkReady, m.subscribed)
	return m
}

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeCoerced        = "coerced"
	OutcomeFailure        = "failure"
	OutcomeNotImplemented = "not_implemented"
)

// Event status labels.
const (
	EventDelivered = "delivered"
	EventDropped   = "dropped"
)

func (m *Metrics) ObserveCommand(method, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) ObserveProbe(d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.Observe(d.Seconds())
}

func (m *Metrics) SetReady(ready bool) {
	if m == nil {
		return
	}
	m.sdkReady.Set(boolToFloat(ready))
}

func (m *Metrics) SetSubscribed(attached bool) {
	if m == nil {
		return
	}
	m.subscribed.Set(boolToFloat(attached))
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
