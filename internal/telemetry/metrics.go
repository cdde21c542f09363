package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HubMetricsMeterName is the name used for the hub metrics meter
const HubMetricsMeterName = "github.com/addonhub/addonhub/hub"

// Update outcomes recorded on the updates counter
const (
	// OutcomeSuccess means the remote call completed
	OutcomeSuccess = "success"

	// OutcomeSuppressed means a remote-service error was swallowed
	OutcomeSuppressed = "suppressed"

	// OutcomeError means a non-remote failure propagated to the caller
	OutcomeError = "error"
)

// HubMetrics holds the OpenTelemetry instruments for hub update metrics
type HubMetrics struct {
	updateDuration metric.Float64Histogram
	updatesTotal   metric.Int64Counter
	addonsTotal    metric.Int64Gauge
}

// NewHubMetrics creates a new HubMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewHubMetrics(provider metric.MeterProvider) (*HubMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HubMetricsMeterName)

	updateDuration, err := meter.Float64Histogram(
		"addonhub_update_duration_seconds",
		metric.WithDescription("Duration of gated update operations in seconds, cool-down included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 7.5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	updatesTotal, err := meter.Int64Counter(
		"addonhub_updates_total",
		metric.WithDescription("Completed update operations by operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	addonsTotal, err := meter.Int64Gauge(
		"addonhub_addons_total",
		metric.WithDescription("Number of registered add-ons per category"),
		metric.WithUnit("{addon}"),
	)
	if err != nil {
		return nil, err
	}

	return &HubMetrics{
		updateDuration: updateDuration,
		updatesTotal:   updatesTotal,
		addonsTotal:    addonsTotal,
	}, nil
}

// RecordUpdate records one completed update operation
func (m *HubMetrics) RecordUpdate(ctx context.Context, operation, outcome string, seconds float64) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	}

	m.updateDuration.Record(ctx, seconds, metric.WithAttributes(attrs...))
	m.updatesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAddonsTotal records the current number of add-ons in a category
func (m *HubMetrics) RecordAddonsTotal(ctx context.Context, category string, count int64) {
	if m == nil {
		return
	}

	m.addonsTotal.Record(ctx, count,
		metric.WithAttributes(attribute.String("category", category)))
}

// RegisterGateObserver registers an observable gauge reporting how many
// gate slots are currently held. inFlight is sampled at collection time.
func RegisterGateObserver(provider metric.MeterProvider, capacity int64, inFlight func() int64) error {
	if provider == nil {
		return nil
	}

	meter := provider.Meter(HubMetricsMeterName)

	held, err := meter.Int64ObservableGauge(
		"addonhub_gate_slots_held",
		metric.WithDescription("Gate slots currently held by in-flight operations"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return err
	}

	capacityGauge, err := meter.Int64ObservableGauge(
		"addonhub_gate_capacity",
		metric.WithDescription("Fixed gate capacity"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(held, inFlight())
		o.ObserveInt64(capacityGauge, capacity)
		return nil
	}, held, capacityGauge)
	return err
}
