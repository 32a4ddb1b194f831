package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the HTTP and domain collectors of the service.
type Metrics struct {
	service string

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	statusCategory  *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	stockAdjustFail prometheus.Counter
	gatherer        prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(service string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		service: service,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path", "status"},
		),
		statusCategory: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_status_category_total",
				Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
			},
			[]string{"service", "category", "method", "path"},
		),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "orders_created_total",
			Help:        "Total number of orders persisted",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		stockAdjustFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stock_adjustment_failures_total",
			Help:        "Stock decrements that failed while placing an order",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.duration, m.statusCategory, m.ordersCreated, m.stockAdjustFail)
	return m
}

// OrderCreated counts a persisted order.
func (m *Metrics) OrderCreated() {
	if m != nil {
		m.ordersCreated.Inc()
	}
}

// StockAdjustmentFailed counts a stock decrement that could not be applied.
func (m *Metrics) StockAdjustmentFailed() {
	if m != nil {
		m.stockAdjustFail.Inc()
	}
}

func category(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// Middleware records request count, duration and status category.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusStr := strconv.Itoa(status)

		m.requests.WithLabelValues(m.service, method, path, statusStr).Inc()
		m.duration.WithLabelValues(m.service, method, path, statusStr).Observe(time.Since(start).Seconds())
		if cat := category(status); cat != "" {
			m.statusCategory.WithLabelValues(m.service, cat, method, path).Inc()
		}
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
