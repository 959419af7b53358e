package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/observability/logger"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Provide(TracingConfig),
	fx.Provide(MetricsConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(func() metric.MeterProvider { return otel.GetMeterProvider() }),
	fx.Provide(func() prometheus.Registerer { return prometheus.DefaultRegisterer }),
	fx.Provide(func() prometheus.Gatherer { return prometheus.DefaultGatherer }),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.NewInvoiceSaveMetrics),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func TracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.Endpoint,
		ExporterProtocol: cfg.Tracing.Protocol,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func MetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}
