package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_monitoring_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pump_monitoring_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	metricSamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_monitoring_metric_samples_total",
		Help: "Count of recorded pump metric samples by source",
	}, []string{"source"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_monitoring_pump_status_transitions_total",
		Help: "Count of derived pump status writes by resulting status",
	}, []string{"status"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_monitoring_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pump_monitoring_rate_limited_total",
		Help: "Count of requests rejected by the rate limiter",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSample counts a recorded metric sample. Source is "manual" for
// caller-supplied readings and "simulated" for generated ones.
func ObserveSample(source string) {
	metricSamplesTotal.WithLabelValues(source).Inc()
}

// ObserveStatusTransition counts a derived status write.
func ObserveStatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

// ObserveLogin counts a login attempt with a result label ("success" or
// "failure").
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func ObserveRateLimited() {
	rateLimited.Inc()
}
