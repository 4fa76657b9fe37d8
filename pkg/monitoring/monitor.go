package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ClaimCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_claims_total",
			Help: "Reward claim attempts by outcome",
		},
		[]string{"game", "kind", "outcome"},
	)

	TxRetryCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_tx_retries_total",
			Help: "Optimistic transaction retries after write conflicts",
		},
	)

	CodesRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "code_pool_remaining",
			Help: "Unclaimed codes left in a pool",
		},
		[]string{"game", "slot"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ClaimCounter)
	prometheus.MustRegister(TxRetryCounter)
	prometheus.MustRegister(CodesRemaining)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
