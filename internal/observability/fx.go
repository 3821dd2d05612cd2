package observability

import (
	"github.com/smallbiznis/storeline/internal/observability/logger"
	"github.com/smallbiznis/storeline/internal/observability/metrics"
	"github.com/smallbiznis/storeline/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			return logger.Config{
				ServiceName:         cfg.ServiceName,
				Environment:         cfg.Environment,
				Version:             cfg.Version,
				Level:               cfg.LogLevel,
				Format:              cfg.LogFormat,
				IncludeCaller:       true,
				IncludeStackOnError: cfg.Debug(),
			}
		},
		logger.New,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				ExporterProtocol: cfg.OtelExporterProtocol,
				SamplingRatio:    cfg.OtelSamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.OtelEnabled,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				ExporterProtocol: cfg.OtelExporterProtocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// The tracer provider has no consumer in the graph; force its construction
	// so the global propagator and exporter are installed.
	fx.Invoke(func(_ *sdktrace.TracerProvider, cfg Config, log *zap.Logger) {
		log.Info("observability configured",
			zap.Bool("otel_enabled", cfg.OtelEnabled),
			zap.String("log_level", cfg.LogLevel),
		)
	}),
)
