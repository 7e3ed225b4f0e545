package otel_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	tcotel "github.com/opsacademy/toolcalc/otel"
)

func TestProvidersSnapshotAndExport(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()

	providers, err := tcotel.NewProviders(ctx, tcotel.ProviderConfig{Exporter: exporter})
	if err != nil {
		t.Fatalf("NewProviders() error = %v", err)
	}

	observer, err := providers.ComputeObserver()
	if err != nil {
		t.Fatalf("ComputeObserver() error = %v", err)
	}
	observer.ObserveCompute(sampleObservation())

	points, err := providers.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	byName := map[string]tcotel.MetricPoint{}
	for _, p := range points {
		byName[p.Name] = p
	}
	if got := byName["toolcalc.compute.requests"].Value; got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := byName["toolcalc.compute.latency"].Count; got != 1 {
		t.Errorf("latency count = %d, want 1", got)
	}
	if got := byName["toolcalc.compute.requests"].Attributes["tool_type"]; got != "profit_calculator" {
		t.Errorf("tool_type = %q, want profit_calculator", got)
	}

	if err := providers.Tracer.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "tool.compute" {
		t.Fatalf("exported spans = %+v, want one tool.compute span", spans)
	}

	if err := providers.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestProvidersWithoutExporter(t *testing.T) {
	ctx := context.Background()
	providers, err := tcotel.NewProviders(ctx, tcotel.ProviderConfig{ServiceName: "toolcalc-test"})
	if err != nil {
		t.Fatalf("NewProviders() error = %v", err)
	}
	defer providers.Shutdown(ctx)

	points, err := providers.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(points) != 0 {
		t.Errorf("expected no points before any compute, got %d", len(points))
	}
}
