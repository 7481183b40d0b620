// metrics.go exposes Prometheus counters for capture outcomes and payloads.

package xrayradar

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Capture outcomes recorded in xrayradar_events_total.
const (
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeSampled     = "sampled"
	OutcomeFiltered    = "filtered"
	OutcomeRateLimited = "rate_limited"
	OutcomeDisabled    = "disabled"
)

// Metrics holds the client's collectors. A nil *Metrics records nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	payloadBytes  prometheus.Histogram
	truncations   prometheus.Counter
	sendDurations prometheus.Histogram
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrayradar_events_total",
				Help: "Total number of capture calls by outcome",
			},
			[]string{"outcome"},
		),
		payloadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xrayradar_payload_bytes",
				Help:    "Serialized event size in bytes as sent",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
		truncations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xrayradar_payload_truncations_total",
				Help: "Total number of payloads truncated for exceeding the size limit",
			},
		),
		sendDurations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xrayradar_send_duration_seconds",
				Help:    "Time spent delivering a single event",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
	}
}

// Register adds all collectors to reg. Collectors already registered are
// not an error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.events, m.payloadBytes, m.truncations, m.sendDurations}
}

func (m *Metrics) recordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordPayload(size int, truncated bool) {
	if m == nil {
		return
	}
	m.payloadBytes.Observe(float64(size))
	if truncated {
		m.truncations.Inc()
	}
}

func (m *Metrics) recordSend(d time.Duration) {
	if m == nil {
		return
	}
	m.sendDurations.Observe(d.Seconds())
}
