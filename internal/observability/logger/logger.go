package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/smallbiznis/storeline/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string

	// Sampling applies per message per second. Zero values fall back to 100/100.
	SamplingInitial    int
	SamplingThereafter int

	IncludeCaller       bool
	IncludeStackOnError bool
}

// New builds the process logger, installs it as the zap global and flushes it
// on shutdown.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "json"
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.Sampling = nil

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	initial, thereafter := cfg.SamplingInitial, cfg.SamplingThereafter
	if initial <= 0 {
		initial = 100
	}
	if thereafter <= 0 {
		thereafter = 100
	}

	options := []zap.Option{
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, time.Second, initial, thereafter)
		}),
	}
	if cfg.IncludeCaller {
		options = append(options, zap.AddCaller())
	}
	if cfg.IncludeStackOnError {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapCfg.Build(options...)
	if err != nil {
		return nil, err
	}

	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "storeline"
	}
	logger = logger.With(
		zap.String("service", service),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(logger)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = logger.Sync()
				return nil
			},
		})
	}

	return logger, nil
}

// FromContext returns the global logger with the request's correlation fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds request id, actor and trace fields that are present in ctx.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}

	fields := make([]zap.Field, 0, 5)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorType != "" {
		fields = append(fields, zap.String("actor_type", actorType))
		if actorID != "" {
			fields = append(fields, zap.String("actor_id", actorID))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
