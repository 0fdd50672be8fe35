package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the gateway and the issuer.
type Metrics struct {
	AuthAttemptsTotal     *prometheus.CounterVec
	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec
	OriginRejectionsTotal prometheus.Counter
	ChallengesIssuedTotal *prometheus.CounterVec
}

// New creates and registers all collectors. A nil registry uses the default registerer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_auth_attempts_total",
				Help: "Challenge and verify attempts by scope, step and outcome",
			},
			[]string{"scope", "step", "outcome"},
		),
		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_upstream_requests_total",
				Help: "Requests sent to the external API",
			},
			[]string{"method", "path", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agora_upstream_request_duration_seconds",
				Help:    "Latency of requests to the external API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		OriginRejectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agora_origin_rejections_total",
				Help: "State-changing requests rejected by the same-origin guard",
			},
		),
		ChallengesIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_issuer_challenges_total",
				Help: "Challenges issued by the reference issuer",
			},
			[]string{"scope"},
		),
	}
}

// ObserveAuth records one protocol step. Safe on a nil receiver.
func (m *Metrics) ObserveAuth(scope, step string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AuthAttemptsTotal.WithLabelValues(scope, step, outcome).Inc()
}

// ObserveUpstream records one upstream round trip. status 0 means a transport failure.
func (m *Metrics) ObserveUpstream(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequestsTotal.WithLabelValues(method, path, label).Inc()
	m.UpstreamDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveOriginRejection counts a same-origin guard failure.
func (m *Metrics) ObserveOriginRejection() {
	if m == nil {
		return
	}
	m.OriginRejectionsTotal.Inc()
}

// ObserveChallenge counts an issued challenge.
func (m *Metrics) ObserveChallenge(scope string) {
	if m == nil {
		return
	}
	m.ChallengesIssuedTotal.WithLabelValues(scope).Inc()
}
