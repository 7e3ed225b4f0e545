package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/opsacademy/toolcalc/tool"
)

// ComputeObserver records tool recomputes into OpenTelemetry.
type ComputeObserver struct {
	tracer trace.Tracer

	requests    metric.Int64Counter
	outputs     metric.Int64Counter
	zeroOutputs metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewComputeObserver creates a compute observer bound to the provided
// meter/tracer. A nil tracer disables spans.
func NewComputeObserver(meter metric.Meter, tracer trace.Tracer) (*ComputeObserver, error) {
	requests, err := meter.Int64Counter(
		"toolcalc.compute.requests",
		metric.WithDescription("Number of tool recomputes"),
	)
	if err != nil {
		return nil, err
	}
	outputs, err := meter.Int64Counter(
		"toolcalc.compute.outputs",
		metric.WithDescription("Number of outputs resolved"),
	)
	if err != nil {
		return nil, err
	}
	zeroOutputs, err := meter.Int64Counter(
		"toolcalc.compute.zero_outputs",
		metric.WithDescription("Number of outputs that resolved to 0"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolcalc.compute.latency",
		metric.WithDescription("Recompute latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ComputeObserver{
		tracer:      tracer,
		requests:    requests,
		outputs:     outputs,
		zeroOutputs: zeroOutputs,
		latency:     latency,
	}, nil
}

// ObserveCompute records one recompute.
func (o *ComputeObserver) ObserveCompute(observation tool.ComputeObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_type", observation.ToolType),
		attribute.Bool("has_input", observation.HasAnyInput),
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.requests.Add(ctx, 1, options)
	o.outputs.Add(ctx, int64(observation.Outputs), options)
	o.zeroOutputs.Add(ctx, int64(observation.ZeroOutputs), options)
	o.latency.Record(ctx, observation.Duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	spanAttrs := append(attrs,
		attribute.String("title", observation.Title),
		attribute.Int("outputs", observation.Outputs),
		attribute.Int("zero_outputs", observation.ZeroOutputs),
	)
	_, span := o.tracer.Start(ctx, "tool.compute",
		trace.WithAttributes(spanAttrs...),
		trace.WithTimestamp(observation.Started),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(observation.Started.Add(observation.Duration)))
}

var _ tool.Observer = (*ComputeObserver)(nil)
