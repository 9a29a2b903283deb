package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/contextkit/pkg/engine"

// Metrics provides OpenTelemetry metrics for the engine. Exporter wiring is
// the embedding application's concern; with no meter provider configured the
// instruments are no-ops.
type Metrics struct {
	roundsTotal               metric.Int64Counter
	collectorFailuresTotal    metric.Int64Counter
	collectorTimeoutsTotal    metric.Int64Counter
	refinementIterationsTotal metric.Int64Counter

	roundDuration     metric.Float64Histogram
	collectLatency    metric.Float64Histogram
	budgetUtilization metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.roundsTotal, err = meter.Int64Counter(
		"engine.round.total",
		metric.WithDescription("Total number of assembly rounds"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return nil, err
	}

	m.collectorFailuresTotal, err = meter.Int64Counter(
		"engine.collector.failed.total",
		metric.WithDescription("Total number of collector failures"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.collectorTimeoutsTotal, err = meter.Int64Counter(
		"engine.collector.timeout.total",
		metric.WithDescription("Total number of collector timeouts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.refinementIterationsTotal, err = meter.Int64Counter(
		"engine.refinement.iterations.total",
		metric.WithDescription("Total number of refinement widening steps"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, err
	}

	m.roundDuration, err = meter.Float64Histogram(
		"engine.round.duration.seconds",
		metric.WithDescription("Duration of one assembly round"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.collectLatency, err = meter.Float64Histogram(
		"engine.collect.duration.seconds",
		metric.WithDescription("Duration of individual collector calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.budgetUtilization, err = meter.Float64Histogram(
		"engine.round.budget.utilization",
		metric.WithDescription("Fraction of the token budget used by a round"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRound records the completion of one assembly round.
func (m *Metrics) RecordRound(ctx context.Context, duration time.Duration, fragments int, utilization float64) {
	if m == nil {
		return
	}
	m.roundsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("fragments", fragments)))
	m.roundDuration.Record(ctx, duration.Seconds())
	m.budgetUtilization.Record(ctx, utilization)
}

// RecordCollectLatency records one collector call's latency.
func (m *Metrics) RecordCollectLatency(ctx context.Context, name string, duration time.Duration) {
	if m == nil {
		return
	}
	m.collectLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("collector", name)))
}

// RecordCollectorFailure counts a collector-local failure.
func (m *Metrics) RecordCollectorFailure(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.collectorFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("collector", name)))
}

// RecordCollectorTimeout counts a collector timeout.
func (m *Metrics) RecordCollectorTimeout(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.collectorTimeoutsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("collector", name)))
}

// RecordRefinement counts one widening step.
func (m *Metrics) RecordRefinement(ctx context.Context) {
	if m == nil {
		return
	}
	m.refinementIterationsTotal.Add(ctx, 1)
}
