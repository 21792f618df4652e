package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careroute_queries_routed_total",
			Help: "Queries routed, by category and decision source",
		},
		[]string{"category", "source"},
	)

	AgentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careroute_agent_calls_total",
			Help: "Downstream agent calls, by agent and outcome",
		},
		[]string{"agent", "success"},
	)

	AgentCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careroute_agent_call_duration_seconds",
			Help:    "Duration of downstream agent calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"agent"},
	)

	OrchestrationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "careroute_orchestration_errors_total",
			Help: "Unexpected failures recovered at the orchestrator boundary",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careroute_http_requests_total",
			Help: "HTTP requests served, by route and status",
		},
		[]string{"service", "method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "careroute_http_request_duration_seconds",
			Help: "HTTP request latency in seconds",
		},
		[]string{"service", "method", "route"},
	)
)

// ObserveAgentCall records one downstream call.
func ObserveAgentCall(agent string, success bool, elapsed time.Duration) {
	AgentCalls.WithLabelValues(agent, strconv.FormatBool(success)).Inc()
	AgentCallDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
}

// Middleware counts requests per matched route for the named service.
func Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(service, c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(service, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
