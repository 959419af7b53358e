package logger

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/opsdesk/internal/config"
	obsctx "github.com/smallbiznis/opsdesk/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const HeaderRequestID = "X-Request-Id"

const HeaderActorID = "X-Actor-Id"

// New builds the process logger and installs it as the zap global.
func New(cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.InitialFields = map[string]any{
		"service": cfg.ServiceName,
		"version": cfg.Version,
	}

	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// TraceFields returns correlation fields for the span, request and invoice
// carried by ctx.
func TraceFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	req := obsctx.RequestFrom(ctx)
	if req.ID != "" {
		fields = append(fields, zap.String("request_id", req.ID))
	}
	if req.Actor != "" {
		fields = append(fields, zap.String("actor_id", req.Actor))
	}
	if req.InvoiceID != "" {
		fields = append(fields, zap.String("invoice_id", req.InvoiceID))
	}
	return fields
}

// FromContext returns the global logger enriched with TraceFields.
func FromContext(ctx context.Context) *zap.Logger {
	return With(zap.L(), ctx)
}

// With enriches log with TraceFields from ctx.
func With(log *zap.Logger, ctx context.Context) *zap.Logger {
	if log == nil {
		log = zap.L()
	}
	fields := TraceFields(ctx)
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// MiddlewareConfig configures GinMiddleware.
type MiddlewareConfig struct {
	// Logger defaults to the zap global.
	Logger *zap.Logger
	// SkipPaths are served without an access log line.
	SkipPaths []string
}

// GinMiddleware assigns a request id, propagates it through the request
// context and writes one access log line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		ctx := obsctx.WithRequestID(c.Request.Context(), requestID)
		if actorID := strings.TrimSpace(c.GetHeader(HeaderActorID)); actorID != "" {
			ctx = obsctx.WithActor(ctx, actorID)
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}

		log := cfg.Logger
		if log == nil {
			log = zap.L()
		}
		log = With(log, c.Request.Context())

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("http request", append(fields, zap.Any("request", RequestSummary(c.Request)))...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
