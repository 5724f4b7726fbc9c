package middleware

import (
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sageql/sage/pkg/infrastructure/metrics"
)

// MetricsMiddleware provides request metrics collection middleware.
type MetricsMiddleware struct {
	collector metrics.Collector
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(collector metrics.Collector) *MetricsMiddleware {
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	return &MetricsMiddleware{
		collector: collector,
	}
}

// Handler returns the http middleware function.
func (m *MetricsMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := m.collector.StartTimer("http_request_duration")
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := timer.Stop()
			status := strconv.Itoa(ww.Status())
			m.collector.IncrementCounter("http_requests_total",
				"method", r.Method, "status", status)
			m.collector.RecordHistogram("http_request_duration_seconds", duration,
				"method", r.Method)
			if ww.Status() >= http.StatusInternalServerError {
				m.collector.IncrementCounter("http_request_errors_total", "method", r.Method)
			}
		})
	}
}
