// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"crm-decision-engine/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records evaluation telemetry through an OpenTelemetry meter
// exported in Prometheus format.
type Observability struct {
	meterProvider *metric.MeterProvider
	evaluations   otelmetric.Int64Counter
	duration      otelmetric.Float64Histogram
}

// New installs a global meter provider backed by the Prometheus exporter. When the exporter
// cannot be registered a no-op recorder is returned.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("otel prometheus exporter unavailable, telemetry disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return NewNoop()
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o := newFromMeter(provider.Meter(serviceName))
	o.meterProvider = provider
	return o
}

// NewNoop returns a recorder that drops everything.
func NewNoop() *Observability {
	return newFromMeter(noop.NewMeterProvider().Meter("noop"))
}

func newFromMeter(meter otelmetric.Meter) *Observability {
	evaluations, _ := meter.Int64Counter(
		"evaluations.processed",
		otelmetric.WithDescription("Number of evaluations processed"),
	)
	duration, _ := meter.Float64Histogram(
		"evaluations.duration",
		otelmetric.WithDescription("Evaluation duration"),
		otelmetric.WithUnit("ms"),
	)
	return &Observability{evaluations: evaluations, duration: duration}
}

// RecordEvaluation counts one evaluation and its latency.
func (o *Observability) RecordEvaluation(ctx context.Context, evaluator, status string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("evaluator", evaluator),
		attribute.String("status", status),
	)
	if o.evaluations != nil {
		o.evaluations.Add(ctx, 1, attrs)
	}
	if o.duration != nil {
		o.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
