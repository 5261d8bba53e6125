package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics records storefront counters: orders placed, payments,
// webhook outcomes, exports and background jobs.
//
// All methods are safe on a nil receiver so services can run without metrics.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ordersPlaced    *Counter
	orderAmount     *Counter
	payments        *Counter
	webhookOutcomes *Counter
	exports         *Counter
	jobs            *Counter
	jobDuration     *Histogram
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.ordersPlaced, "storefront_orders_placed_total", "Total number of orders placed at checkout", "{orders}"},
		{&bm.orderAmount, "storefront_order_amount_total", "Total order amount in minor currency units", "{minor_units}"},
		{&bm.payments, "storefront_payments_total", "Payment attempts by provider and outcome", "{payments}"},
		{&bm.webhookOutcomes, "storefront_webhooks_total", "Inbound webhooks by source and outcome", "{webhooks}"},
		{&bm.exports, "storefront_exports_total", "CSV exports by entity and mode", "{exports}"},
		{&bm.jobs, "storefront_jobs_total", "Background jobs by type and outcome", "{jobs}"},
	}
	for _, c := range counters {
		*c.target, err = NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
	}

	bm.jobDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "storefront_job_duration_seconds",
		Description: "Background job run time",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// PaymentOutcome labels payment counters
type PaymentOutcome string

const (
	PaymentOutcomeCaptured PaymentOutcome = "captured"
	PaymentOutcomeFailed   PaymentOutcome = "failed"
	PaymentOutcomeRefunded PaymentOutcome = "refunded"
)

// ExportMode labels export counters
type ExportMode string

const (
	ExportModeStream ExportMode = "stream"
	ExportModeAsync  ExportMode = "async"
)

// RecordOrderPlaced records a checkout and its total
func (bm *BusinessMetrics) RecordOrderPlaced(ctx context.Context, storeID uuid.UUID, currency string, total decimal.Decimal) {
	if bm == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrStoreID.String(storeID.String()), AttrCurrency.String(currency)}
	bm.ordersPlaced.Inc(ctx, attrs...)
	bm.orderAmount.Add(ctx, total.Shift(2).Round(0).IntPart(), attrs...)
}

// RecordPayment records a payment state change reported by a provider
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, storeID uuid.UUID, provider string, outcome PaymentOutcome) {
	if bm == nil {
		return
	}
	bm.payments.Inc(ctx,
		AttrStoreID.String(storeID.String()),
		AttrProvider.String(provider),
		AttrPaymentStatus.String(string(outcome)),
	)
}

// RecordWebhook records one guarded webhook delivery
func (bm *BusinessMetrics) RecordWebhook(ctx context.Context, source, outcome string) {
	if bm == nil {
		return
	}
	bm.webhookOutcomes.Inc(ctx, AttrWebhookSource.String(source), AttrOutcome.String(outcome))
}

// RecordExport records which path the export selector took
func (bm *BusinessMetrics) RecordExport(ctx context.Context, storeID uuid.UUID, entity string, mode ExportMode) {
	if bm == nil {
		return
	}
	bm.exports.Inc(ctx,
		AttrStoreID.String(storeID.String()),
		AttrExportEntity.String(entity),
		AttrExportMode.String(string(mode)),
	)
}

// RecordJob records a finished background job
func (bm *BusinessMetrics) RecordJob(jobType, outcome string, elapsed time.Duration) {
	if bm == nil {
		return
	}
	ctx := context.Background()
	bm.jobs.Inc(ctx, AttrJobType.String(jobType), AttrOutcome.String(outcome))
	bm.jobDuration.RecordDuration(ctx, elapsed, AttrJobType.String(jobType))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
