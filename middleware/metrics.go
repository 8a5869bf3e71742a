package middleware

import (
	"context"
	"time"

	"topup-service/metrics"
	awspkg "topup-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

// Prometheus records request count and latency by route template.
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// CloudWatchMetrics pushes request metrics asynchronously when enabled.
func CloudWatchMetrics(client *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    route,
			"Status":  statusCodeToRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
			_ = client.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
			switch {
			case status >= 500:
				_ = client.RecordCount(ctx, awspkg.MetricHTTP5xx, dims)
			case status >= 400:
				_ = client.RecordCount(ctx, awspkg.MetricHTTP4xx, dims)
			}
		}()
	}
}

func statusCodeToRange(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	}
	return "unknown"
}
