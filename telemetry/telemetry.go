// Package telemetry holds the OpenTelemetry instruments used by the pipeline.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "trustcart"

// Counter names.
const (
	ExplainCallsTotal = "trustcart_explain_calls_total"
	EscalationsTotal  = "trustcart_explain_escalations_total"
	CacheHitsTotal    = "trustcart_explain_cache_hits_total"
	ListingsTotal     = "trustcart_listings_total"
)

// Metrics groups the pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	explainCalls metric.Int64Counter
	escalations  metric.Int64Counter
	cacheHits    metric.Int64Counter
	listings     metric.Int64Counter
}

// New creates the counters on mp. A nil mp uses the global provider.
func New(mp metric.MeterProvider) *Metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	calls, _ := meter.Int64Counter(ExplainCallsTotal, metric.WithDescription("explanation backend invocations"))
	esc, _ := meter.Int64Counter(EscalationsTotal, metric.WithDescription("strong-model escalations"))
	hits, _ := meter.Int64Counter(CacheHitsTotal, metric.WithDescription("explanations served from cache"))
	listings, _ := meter.Int64Counter(ListingsTotal, metric.WithDescription("listings analyzed, by outcome"))
	return &Metrics{explainCalls: calls, escalations: esc, cacheHits: hits, listings: listings}
}

// ExplainCall records one backend invocation and whether it succeeded.
func (m *Metrics) ExplainCall(ctx context.Context, model string, ok bool) {
	if m == nil {
		return
	}
	m.explainCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("ok", ok),
	))
}

func (m *Metrics) Escalation(ctx context.Context) {
	if m == nil {
		return
	}
	m.escalations.Add(ctx, 1)
}

func (m *Metrics) CacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

// Listing records one analyzed listing. Invalid listings use the level "invalid".
func (m *Metrics) Listing(ctx context.Context, level string) {
	if m == nil {
		return
	}
	m.listings.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_level", level)))
}

// Tracer returns the tracer used for pipeline spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// NewInProcessProvider builds a meter provider backed by a manual reader so
// counters can be read back in-process, and installs it globally.
func NewInProcessProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return mp, reader
}

// Snapshot collects reader and sums every int64 counter by name and attribute
// set, e.g. "trustcart_listings_total{risk_level=HIGH}".
func Snapshot(ctx context.Context, reader sdkmetric.Reader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("telemetry: collect: %w", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[seriesName(m.Name, dp.Attributes)] += dp.Value
			}
		}
	}
	return out, nil
}

func seriesName(name string, attrs attribute.Set) string {
	if attrs.Len() == 0 {
		return name
	}
	s := name + "{"
	iter := attrs.Iter()
	for i := 0; iter.Next(); i++ {
		kv := iter.Attribute()
		if i > 0 {
			s += ","
		}
		s += string(kv.Key) + "=" + kv.Value.Emit()
	}
	return s + "}"
}
