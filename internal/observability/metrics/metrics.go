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

// Metrics exposes pipeline-level instruments.
type Metrics struct {
	rowsLoaded     metric.Int64Counter
	findings       metric.Int64Counter
	featureRows    metric.Int64Counter
	labelsProduced metric.Int64Counter
	stageDuration  metric.Float64Histogram
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp metric protocol %q", protocol)
	}
}

// New configures the pipeline metric instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "churnpipe"
	}
	meter := provider.Meter(name)

	rowsLoaded, err := meter.Int64Counter("churnpipe_rows_loaded_total")
	if err != nil {
		return nil, err
	}
	findings, err := meter.Int64Counter("churnpipe_validation_findings_total")
	if err != nil {
		return nil, err
	}
	featureRows, err := meter.Int64Counter("churnpipe_feature_rows_total")
	if err != nil {
		return nil, err
	}
	labelsProduced, err := meter.Int64Counter("churnpipe_labels_total")
	if err != nil {
		return nil, err
	}
	stageDuration, err := meter.Float64Histogram("churnpipe_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		rowsLoaded:     rowsLoaded,
		findings:       findings,
		featureRows:    featureRows,
		labelsProduced: labelsProduced,
		stageDuration:  stageDuration,
	}, nil
}

// RecordRowsLoaded counts raw rows read per table.
func (m *Metrics) RecordRowsLoaded(ctx context.Context, table string, n int) {
	if m == nil {
		return
	}
	m.rowsLoaded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("table", table)))
}

// RecordFinding counts validation findings by level.
func (m *Metrics) RecordFinding(ctx context.Context, level string) {
	if m == nil {
		return
	}
	m.findings.Add(ctx, 1, metric.WithAttributes(attribute.String("level", level)))
}

// RecordFeatureRows counts emitted feature rows per group.
func (m *Metrics) RecordFeatureRows(ctx context.Context, group string, n int) {
	if m == nil {
		return
	}
	m.featureRows.Add(ctx, int64(n), metric.WithAttributes(attribute.String("group", group)))
}

// RecordLabels counts produced labels by outcome.
func (m *Metrics) RecordLabels(ctx context.Context, outcome string, n int) {
	if m == nil {
		return
	}
	m.labelsProduced.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordStage records a stage duration.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}
