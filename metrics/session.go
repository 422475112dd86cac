package metrics

import (
	"time"

	"github.com/flashbots/fhesession/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every session collector.
const DefaultNamespace = "fhesession"

const resultOK = "ok"

// SessionMetrics records the outcome of every session operation.
type SessionMetrics struct {
	registrations   *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	runs            *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	registered      prometheus.Gauge
	submitted       prometheus.Gauge
}

// NewSessionMetrics registers the session collectors on the server's registry.
func NewSessionMetrics(m *MetricsServer) *SessionMetrics {
	factory := promauto.With(m.Registry())
	ns := m.Namespace()

	return &SessionMetrics{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "registrations_total",
			Help:      "Registration requests by result",
		}, []string{"result"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "submissions_total",
			Help:      "Key share submissions by result",
		}, []string{"result"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "runs_total",
			Help:      "Aggregation attempts by result",
		}, []string{"result"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "backend_duration_seconds",
			Help:      "Latency of cryptographic backend calls",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"stage"}),
		registered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "participants_registered",
			Help:      "Participants holding an identifier",
		}),
		submitted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "participants_submitted",
			Help:      "Participants that submitted a key share",
		}),
	}
}

func result(err error) string {
	if err == nil {
		return resultOK
	}
	if kind := protocol.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func (s *SessionMetrics) ObserveRegistration(err error) {
	s.registrations.WithLabelValues(result(err)).Inc()
}

func (s *SessionMetrics) ObserveSubmission(err error) {
	s.submissions.WithLabelValues(result(err)).Inc()
}

func (s *SessionMetrics) ObserveRun(err error) {
	s.runs.WithLabelValues(result(err)).Inc()
}

// ObserveStage has the protocol.StageObserver signature.
func (s *SessionMetrics) ObserveStage(stage string, elapsed time.Duration, _ error) {
	s.backendDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// SetProgress updates the registration gauges.
func (s *SessionMetrics) SetProgress(registered, submitted int) {
	s.registered.Set(float64(registered))
	s.submitted.Set(float64(submitted))
}
