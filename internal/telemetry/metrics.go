package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/orgkeeper"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Deletion protocol metrics
	DeletionsTotal      metric.Int64Counter
	PurgesTotal         metric.Int64Counter
	PurgeFailuresTotal  metric.Int64Counter
	PurgedRowsTotal     metric.Int64Counter
	RoleAssignmentTotal metric.Int64Counter

	// Audit metrics
	AuditRecordsTotal  metric.Int64Counter
	AuditFailuresTotal metric.Int64Counter

	// Override cache metrics
	OverrideLoadsTotal       metric.Int64Counter
	OverrideLoadErrorsTotal  metric.Int64Counter
	OverrideResolutionsTotal metric.Int64Counter
	OverrideInvalidations    metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for spans around multi-step procedures.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.DeletionsTotal, _ = meter.Int64Counter(
		"orgkeeper.deletions.total",
		metric.WithDescription("Deletion procedure outcomes by procedure and outcome"),
		metric.WithUnit("{call}"),
	)

	m.PurgesTotal, _ = meter.Int64Counter(
		"orgkeeper.purges.total",
		metric.WithDescription("Total number of account purges started"),
		metric.WithUnit("{purge}"),
	)

	m.PurgeFailuresTotal, _ = meter.Int64Counter(
		"orgkeeper.purges.failures.total",
		metric.WithDescription("Account purges that stopped at a failing step"),
		metric.WithUnit("{purge}"),
	)

	m.PurgedRowsTotal, _ = meter.Int64Counter(
		"orgkeeper.purges.rows.total",
		metric.WithDescription("Rows removed by purges and organization deletes"),
		metric.WithUnit("{row}"),
	)

	m.RoleAssignmentTotal, _ = meter.Int64Counter(
		"orgkeeper.roles.assignments.total",
		metric.WithDescription("Global role assignments that changed a role"),
		metric.WithUnit("{assignment}"),
	)

	m.AuditRecordsTotal, _ = meter.Int64Counter(
		"orgkeeper.audit.records.total",
		metric.WithDescription("Audit records appended"),
		metric.WithUnit("{record}"),
	)

	m.AuditFailuresTotal, _ = meter.Int64Counter(
		"orgkeeper.audit.failures.total",
		metric.WithDescription("Audit records that could not be written"),
		metric.WithUnit("{record}"),
	)

	m.OverrideLoadsTotal, _ = meter.Int64Counter(
		"orgkeeper.overrides.loads.total",
		metric.WithDescription("Instruction override cache loads by layer"),
		metric.WithUnit("{load}"),
	)

	m.OverrideLoadErrorsTotal, _ = meter.Int64Counter(
		"orgkeeper.overrides.load_errors.total",
		metric.WithDescription("Instruction override cache loads that failed"),
		metric.WithUnit("{load}"),
	)

	m.OverrideResolutionsTotal, _ = meter.Int64Counter(
		"orgkeeper.overrides.resolutions.total",
		metric.WithDescription("Override resolutions by source layer"),
		metric.WithUnit("{resolution}"),
	)

	m.OverrideInvalidations, _ = meter.Int64Counter(
		"orgkeeper.overrides.invalidations.total",
		metric.WithDescription("Explicit override cache invalidations by layer"),
		metric.WithUnit("{invalidation}"),
	)

	return m
}

// RecordDeletion counts one deletion procedure outcome.
func (m *Metrics) RecordDeletion(ctx context.Context, procedure, outcome string) {
	m.DeletionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("outcome", outcome),
	))
}

// RecordLayer counts an override cache event for one layer ("global" or "organization").
func RecordLayer(ctx context.Context, counter metric.Int64Counter, layer string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}
