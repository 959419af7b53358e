package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware continues the caller's trace and wraps each request in a
// server span named after its route template.
func GinMiddleware(component string) gin.HandlerFunc {
	tracer := Tracer(component)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(KeyHTTPMethod.String(c.Request.Method), KeyHTTPRoute.String(route)),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(KeyHTTPStatus.Int(status))
		if status >= http.StatusInternalServerError {
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			Fail(span, err, http.StatusText(status))
		}
	}
}
