package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes storefront instruments.
type Metrics struct {
	invoicesCreated   metric.Int64Counter
	invoicesCancelled metric.Int64Counter
	invoiceRejected   metric.Int64Counter
	stockConflicts    metric.Int64Counter
	pointsEarned      metric.Int64Counter
	pointsSpent       metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "storeline"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.invoicesCreated, "storeline_invoices_created_total"},
		{&m.invoicesCancelled, "storeline_invoices_cancelled_total"},
		{&m.invoiceRejected, "storeline_invoice_rejected_total"},
		{&m.stockConflicts, "storeline_stock_conflicts_total"},
		{&m.pointsEarned, "storeline_points_earned_total"},
		{&m.pointsSpent, "storeline_points_spent_total"},
		{&m.rateLimitDenied, "storeline_rate_limit_denied_total"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// NewNop returns instruments backed by the noop provider.
func NewNop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordInvoiceCreated(ctx context.Context, orderType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("order_type", strings.TrimSpace(orderType)))
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordInvoiceCancelled(ctx context.Context) {
	if m == nil {
		return
	}
	m.invoicesCancelled.Add(ctx, 1)
}

// RecordInvoiceRejected counts creation attempts rejected by precondition checks.
func (m *Metrics) RecordInvoiceRejected(ctx context.Context, orderType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("order_type", strings.TrimSpace(orderType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.invoiceRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordStockConflict(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(source)))
	m.stockConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPoints(ctx context.Context, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	if delta > 0 {
		m.pointsEarned.Add(ctx, delta)
		return
	}
	m.pointsSpent.Add(ctx, -delta)
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"order_type":  {},
	"endpoint":    {},
	"status_code": {},
	"source_type": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
