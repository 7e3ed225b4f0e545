// Package otel wires toolcalc's compute events into OpenTelemetry.
package otel

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InstrumentationName is the meter and tracer scope used by toolcalc.
const InstrumentationName = "github.com/opsacademy/toolcalc"

// ProviderConfig configures NewProviders.
type ProviderConfig struct {
	ServiceName string
	// OTLPEndpoint is an OTLP/HTTP traces URL such as
	// http://localhost:4318/v1/traces. Empty keeps spans in-process.
	OTLPEndpoint string
	// Exporter overrides the OTLP exporter; tests use an in-memory one.
	Exporter sdktrace.SpanExporter
}

// Providers owns the trace and metric providers installed by serve.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *metric.MeterProvider

	reader *metric.ManualReader
}

// NewProviders builds trace and metric providers. Metrics are kept in a
// manual reader and exposed through Snapshot.
func NewProviders(ctx context.Context, cfg ProviderConfig) (*Providers, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "toolcalc"
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	exporter := cfg.Exporter
	if exporter == nil && cfg.OTLPEndpoint != "" {
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		exporter = exp
	}
	if exporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}

	reader := metric.NewManualReader()
	return &Providers{
		Tracer: sdktrace.NewTracerProvider(traceOpts...),
		Meter:  metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)),
		reader: reader,
	}, nil
}

// ComputeObserver returns an observer bound to these providers.
func (p *Providers) ComputeObserver() (*ComputeObserver, error) {
	return NewComputeObserver(p.Meter.Meter(InstrumentationName), p.Tracer.Tracer(InstrumentationName))
}

// MetricPoint is one aggregated series in a Snapshot.
type MetricPoint struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Count      uint64            `json:"count,omitempty"`
	Value      float64           `json:"value"`
}

// Snapshot collects the current metric values. Histograms report their
// sample count and sum.
func (p *Providers) Snapshot(ctx context.Context) ([]MetricPoint, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var points []MetricPoint
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, MetricPoint{
						Name:       m.Name,
						Attributes: attrMap(dp.Attributes),
						Value:      float64(dp.Value),
					})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, MetricPoint{
						Name:       m.Name,
						Attributes: attrMap(dp.Attributes),
						Count:      dp.Count,
						Value:      dp.Sum,
					})
				}
			}
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Name < points[j].Name
	})
	return points, nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.Tracer.Shutdown(ctx), p.Meter.Shutdown(ctx))
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
