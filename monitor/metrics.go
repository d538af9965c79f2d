// Package monitor holds the Prometheus collectors exported on /metrics.
package monitor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bedrock_gateway"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invocations_total",
		Help:      "Bedrock model invocations by family and outcome",
	}, []string{"family", "outcome"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "invocation_duration_seconds",
		Help:      "Bedrock InvokeModel latency",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"family"})

	invocationTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invocation_tokens_total",
		Help:      "Tokens reported by Claude models",
	}, []string{"direction"})

	credentialLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_lookups_total",
		Help:      "Temporary credential lookups by result (cache_hit, assumed, error)",
	}, []string{"result"})
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	CredentialCacheHit = "cache_hit"
	CredentialAssumed  = "assumed"
	CredentialError    = "error"
)

func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordInvocation(family string, success bool, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	invocations.WithLabelValues(family, outcome).Inc()
	invocationDuration.WithLabelValues(family).Observe(elapsed.Seconds())
}

func RecordTokens(input, output int) {
	if input > 0 {
		invocationTokens.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		invocationTokens.WithLabelValues("output").Add(float64(output))
	}
}

func RecordCredentialLookup(result string) {
	credentialLookups.WithLabelValues(result).Inc()
}
