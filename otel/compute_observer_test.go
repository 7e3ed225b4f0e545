package otel_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	tcotel "github.com/opsacademy/toolcalc/otel"
	"github.com/opsacademy/toolcalc/tool"
)

// newTestMeter returns a meter backed by a manual reader for collecting metrics in tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

// findMetric searches for a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("%s metric not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s type = %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func sampleObservation() tool.ComputeObservation {
	return tool.ComputeObservation{
		ToolType:    "profit_calculator",
		Title:       "Profit Calculator",
		Outputs:     3,
		ZeroOutputs: 1,
		HasAnyInput: true,
		Started:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:    40 * time.Microsecond,
	}
}

func TestComputeObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	observer, err := tcotel.NewComputeObserver(mp.Meter("test-compute"), nil)
	if err != nil {
		t.Fatalf("NewComputeObserver() error = %v", err)
	}

	observer.ObserveCompute(sampleObservation())
	observer.ObserveCompute(sampleObservation())

	rm := collectMetrics(t, reader)

	if got := sumValue(t, rm, "toolcalc.compute.requests"); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := sumValue(t, rm, "toolcalc.compute.outputs"); got != 6 {
		t.Errorf("outputs = %d, want 6", got)
	}
	if got := sumValue(t, rm, "toolcalc.compute.zero_outputs"); got != 2 {
		t.Errorf("zero_outputs = %d, want 2", got)
	}

	latency := findMetric(rm, "toolcalc.compute.latency")
	if latency == nil {
		t.Fatal("toolcalc.compute.latency metric not found")
	}
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("toolcalc.compute.latency type = %T, want Histogram[float64]", latency.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("latency datapoints = %+v, want one point with count 2", hist.DataPoints)
	}

	dp := hist.DataPoints[0]
	if v, ok := dp.Attributes.Value(attribute.Key("tool_type")); !ok || v.AsString() != "profit_calculator" {
		t.Errorf("tool_type attribute = %v, want profit_calculator", v)
	}
}

func TestComputeObserverRecordsSpan(t *testing.T) {
	_, mp := newTestMeter()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	observer, err := tcotel.NewComputeObserver(mp.Meter("test-compute"), tp.Tracer("test-compute"))
	if err != nil {
		t.Fatalf("NewComputeObserver() error = %v", err)
	}

	obs := sampleObservation()
	observer.ObserveCompute(obs)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "tool.compute" {
		t.Errorf("span name = %q, want tool.compute", span.Name())
	}
	if !span.StartTime().Equal(obs.Started) {
		t.Errorf("start = %v, want %v", span.StartTime(), obs.Started)
	}
	if got := span.EndTime().Sub(span.StartTime()); got != obs.Duration {
		t.Errorf("duration = %v, want %v", got, obs.Duration)
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["title"].AsString() != "Profit Calculator" {
		t.Errorf("title attribute = %v", attrs["title"])
	}
	if attrs["outputs"].AsInt64() != 3 {
		t.Errorf("outputs attribute = %v", attrs["outputs"])
	}
}

func TestComputeObserverNilIsSafe(t *testing.T) {
	var observer *tcotel.ComputeObserver
	observer.ObserveCompute(sampleObservation())
}

func TestComputeObserverReceivesToolCompute(t *testing.T) {
	reader, mp := newTestMeter()
	observer, err := tcotel.NewComputeObserver(mp.Meter("test-compute"), nil)
	if err != nil {
		t.Fatalf("NewComputeObserver() error = %v", err)
	}
	tool.SetObserver(observer)
	t.Cleanup(func() { tool.SetObserver(nil) })

	cfg := tool.Config{
		ToolType: "break_even",
		Title:    "Break Even",
		Inputs:   []tool.Input{{ID: "fixed", Type: tool.TypeCurrency}},
		Outputs: []tool.Output{
			{ID: "units", Formula: "fixed / 10", Format: tool.TypeNumber},
		},
	}
	tool.Compute(cfg, map[string]string{"fixed": "100"})

	rm := collectMetrics(t, reader)
	if got := sumValue(t, rm, "toolcalc.compute.requests"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if got := sumValue(t, rm, "toolcalc.compute.zero_outputs"); got != 0 {
		t.Errorf("zero_outputs = %d, want 0", got)
	}
}
