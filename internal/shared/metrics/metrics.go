package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the check-in service
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	CheckinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_attempts_total",
			Help: "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	GuestResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_guest_resolutions_total",
			Help: "Resolved guests by the lookup phase that found them",
		},
		[]string{"phase"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luma_request_duration_seconds",
			Help:    "Duration of requests to the Luma API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	ScriptLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_script_loads_total",
			Help: "Decoder script downloads by source and result",
		},
		[]string{"source", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CheckinsTotal,
		GuestResolutionsTotal,
		UpstreamRequestDuration,
		ScriptLoadsTotal,
	)
}

// Check-in outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeNotFound      = "not_found"
	OutcomeRejected      = "rejected"
	OutcomeMisconfigured = "misconfigured"
	OutcomeError         = "error"
)

// ObserveUpstream records one Luma API call. status is the HTTP status code,
// or 0 when the request never got a response.
func ObserveUpstream(endpoint string, status int, started time.Time) {
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestDuration.WithLabelValues(endpoint, label).Observe(time.Since(started).Seconds())
}

// Middleware records request counts and latency per matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
