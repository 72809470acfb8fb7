package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestCountersAreCollected(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	m := New(mp)
	m.ExplainCall(ctx, "fast", true)
	m.ExplainCall(ctx, "fast", true)
	m.ExplainCall(ctx, "strong", false)
	m.Escalation(ctx)
	m.CacheHit(ctx)
	m.Listing(ctx, "HIGH")
	m.Listing(ctx, "invalid")

	snap, err := Snapshot(ctx, reader)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	tests := map[string]int64{
		"trustcart_explain_calls_total{model=fast,ok=true}":    2,
		"trustcart_explain_calls_total{model=strong,ok=false}": 1,
		EscalationsTotal: 1,
		CacheHitsTotal:   1,
		"trustcart_listings_total{risk_level=HIGH}":    1,
		"trustcart_listings_total{risk_level=invalid}": 1,
	}
	for name, want := range tests {
		if got := snap[name]; got != want {
			t.Errorf("%s = %d; want %d (snapshot %v)", name, got, want, snap)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.ExplainCall(ctx, "fast", true)
	m.Escalation(ctx)
	m.CacheHit(ctx)
	m.Listing(ctx, "LOW")
}
