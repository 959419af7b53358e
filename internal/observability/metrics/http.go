package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records invoice API traffic through the otel meter. Labels are
// limited to the route template, method and status class so invoice ids never
// become series.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	limited  metric.Int64Counter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	scope := strings.TrimSpace(cfg.ServiceName)
	if scope == "" {
		scope = "opsdesk"
	}
	meter := provider.Meter(scope + "/http")

	duration, err := meter.Float64Histogram("opsdesk.http.server.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Invoice API request latency."),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("opsdesk.http.server.active_requests")
	if err != nil {
		return nil, err
	}
	limited, err := meter.Int64Counter("opsdesk.http.server.rate_limited",
		metric.WithDescription("Form saves rejected by the rate limiter."),
	)
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration, active: active, limited: limited}, nil
}

// GinMiddleware records one observation per request. A nil m is a no-op.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		route := routeLabel(c.FullPath())
		routeOnly := metric.WithAttributes(attribute.String("route", route))

		m.active.Add(ctx, 1, routeOnly)
		start := time.Now()
		c.Next()
		m.active.Add(ctx, -1, routeOnly)

		status := c.Writer.Status()
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("method", c.Request.Method),
			attribute.String("status_class", statusClass(status)),
		))
		if status == http.StatusTooManyRequests {
			m.limited.Add(ctx, 1, routeOnly)
		}
	}
}

func routeLabel(fullPath string) string {
	if fullPath = strings.TrimSpace(fullPath); fullPath == "" {
		return "unmatched"
	}
	return fullPath
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
