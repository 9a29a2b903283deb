package experiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
	"github.com/fyrsmithlabs/contextkit/pkg/config"
	"github.com/fyrsmithlabs/contextkit/pkg/engine"
	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// fixedCollector always returns a fragment with the same relevance.
type fixedCollector struct {
	name      string
	relevance float64
	aspects   []string
	err       error
	absent    bool
	delay     time.Duration
}

func (c *fixedCollector) Applicable(*request.Request) bool { return true }

func (c *fixedCollector) Collect(ctx context.Context, req *request.Request) (*collector.Fragment, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.absent {
		return nil, nil
	}
	frag := collector.NewFragment(c.name, collector.TypeCodeSnippet, "retrieved context for "+c.name, c.relevance)
	frag.Aspects = c.aspects
	return frag, nil
}

func (c *fixedCollector) Priority() int { return 10 }

func (c *fixedCollector) Metadata() collector.Metadata {
	return collector.Metadata{Name: c.name, Version: "1.0.0", Kind: collector.KindStatic}
}

func makeRequest(t *testing.T) func(int) *request.Request {
	t.Helper()
	return func(int) *request.Request {
		req, err := request.New(request.TaskGeneralQuery, request.ScopeModule, nil, 1000)
		require.NoError(t, err)
		return req
	}
}

func newExperiment(t *testing.T, baseline, variant collector.Collector, metrics []Metric, trials int) *Experiment {
	t.Helper()
	exp, err := New("variant retrieves more relevant context", baseline, variant, metrics, trials, makeRequest(t))
	require.NoError(t, err)
	return exp
}

func TestNewValidation(t *testing.T) {
	c := &fixedCollector{name: "c", relevance: 0.5}

	tests := []struct {
		name    string
		build   func() (*Experiment, error)
		wantErr error
	}{
		{"empty hypothesis", func() (*Experiment, error) {
			return New("", c, c, []Metric{MetricRelevance}, 5, makeRequest(t))
		}, ErrEmptyHypothesis},
		{"nil baseline", func() (*Experiment, error) {
			return New("h", nil, c, []Metric{MetricRelevance}, 5, makeRequest(t))
		}, ErrNilBaseline},
		{"nil variant", func() (*Experiment, error) {
			return New("h", c, nil, []Metric{MetricRelevance}, 5, makeRequest(t))
		}, ErrNilVariant},
		{"no metrics", func() (*Experiment, error) {
			return New("h", c, c, nil, 5, makeRequest(t))
		}, ErrNoMetrics},
		{"unknown metric", func() (*Experiment, error) {
			return New("h", c, c, []Metric{"charisma"}, 5, makeRequest(t))
		}, ErrUnknownMetric},
		{"zero trials", func() (*Experiment, error) {
			return New("h", c, c, []Metric{MetricRelevance}, 0, makeRequest(t))
		}, ErrInvalidTrials},
		{"nil factory", func() (*Experiment, error) {
			return New("h", c, c, []Metric{MetricRelevance}, 5, nil)
		}, ErrNilRequestFactory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunFixedCollectors(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", relevance: 0.5}
	variant := &fixedCollector{name: "variant", relevance: 0.9}
	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance}, 20)

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	assert.Equal(t, 20, res.ValidTrials)
	assert.Zero(t, res.ExcludedTrials)
	assert.False(t, res.Inconclusive)
	assert.True(t, res.Significant())
	assert.True(t, res.VariantIsBetter())
	assert.InDelta(t, 80, res.Improvement(), 1e-6)

	samples := res.Metrics[MetricRelevance]
	require.NotNil(t, samples)
	assert.InDelta(t, 0.5, samples.BaselineMean, 1e-9)
	assert.InDelta(t, 0.9, samples.VariantMean, 1e-9)
	assert.Len(t, samples.Baseline, 20)
	assert.Len(t, samples.Variant, 20)
}

func TestRunOneSidedFailurePenalized(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", relevance: 0.5}
	variant := &fixedCollector{name: "variant", err: errors.New("flaky backend")}
	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance}, 10)

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	// The failing side contributes zero-relevance samples, not gaps.
	assert.Equal(t, 10, res.ValidTrials)
	samples := res.Metrics[MetricRelevance]
	assert.InDelta(t, 0, samples.VariantMean, 1e-9)
	assert.False(t, res.VariantIsBetter())
}

func TestRunBothSidesFailingIsInconclusive(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", err: errors.New("down")}
	variant := &fixedCollector{name: "variant", err: errors.New("also down")}
	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance}, 10)

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	assert.Zero(t, res.ValidTrials)
	assert.Equal(t, 10, res.ExcludedTrials)
	assert.True(t, res.Inconclusive)
	assert.False(t, res.Significant())

	reg := collector.NewRegistry()
	require.NoError(t, reg.Register(baseline))
	assert.ErrorIs(t, res.Promote(reg), ErrInconclusive)
}

func TestRunAbsentCountsAsZero(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", absent: true}
	variant := &fixedCollector{name: "variant", relevance: 0.8}
	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance}, 10)

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	// Returning nothing is a valid zero sample, not an excluded trial.
	assert.Equal(t, 10, res.ValidTrials)
	assert.InDelta(t, 0, res.Metrics[MetricRelevance].BaselineMean, 1e-9)
	assert.True(t, res.VariantIsBetter())
}

func TestRunSpeedMetric(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", relevance: 0.7, delay: 20 * time.Millisecond}
	variant := &fixedCollector{name: "variant", relevance: 0.7}
	exp := newExperiment(t, baseline, variant, []Metric{MetricSpeed}, 8)
	exp.PrimaryMetric = MetricSpeed

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	samples := res.Metrics[MetricSpeed]
	require.NotNil(t, samples)

	// Samples are negated milliseconds: the faster side has the greater
	// mean, so the shared higher-is-better comparison applies unchanged.
	assert.Greater(t, samples.VariantMean, samples.BaselineMean)
	assert.Less(t, samples.BaselineMean, -15.0)
	assert.Negative(t, samples.Baseline[0])

	// Improvement is reported back on the positive millisecond scale, so
	// the faster variant shows a positive percentage of time saved.
	assert.Greater(t, res.Improvement(), 50.0)
	assert.True(t, res.Significant())
	assert.True(t, res.VariantIsBetter())
}

func TestRunCoverageMetric(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", relevance: 0.5, aspects: []string{"errors"}}
	variant := &fixedCollector{name: "variant", relevance: 0.9, aspects: []string{"errors", "runtime"}}
	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance, MetricCoverage}, 10)
	exp.ExpectedAspects = []string{"errors", "runtime"}

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	coverage := res.Metrics[MetricCoverage]
	require.NotNil(t, coverage)
	assert.InDelta(t, 0.5, coverage.BaselineMean, 1e-9)
	assert.InDelta(t, 1.0, coverage.VariantMean, 1e-9)
	assert.True(t, res.VariantIsBetter())
}

func TestRunCoverageRequiresAspects(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", relevance: 0.5}
	variant := &fixedCollector{name: "variant", relevance: 0.9}
	exp := newExperiment(t, baseline, variant, []Metric{MetricCoverage}, 10)

	runner := NewRunner(config.Default().Experiment, nil)
	_, err := runner.Run(context.Background(), exp)
	assert.ErrorIs(t, err, ErrMissingAspects)
}

func TestPromoteSwapsRegistryAndAffectsAssembly(t *testing.T) {
	baseline := &fixedCollector{name: "retrieval", relevance: 0.5}
	variant := &fixedCollector{name: "retrieval_v2", relevance: 0.9}

	reg := collector.NewRegistry()
	require.NoError(t, reg.Register(baseline))

	eng, err := engine.New(reg, config.Default(), nil)
	require.NoError(t, err)

	req, err := request.New(request.TaskGeneralQuery, request.ScopeModule, nil, 1000)
	require.NoError(t, err)

	before, err := eng.Assemble(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"retrieval"}, before.Contributors)

	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance}, 20)
	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)
	require.True(t, res.VariantIsBetter())

	require.NoError(t, res.Promote(reg))

	// The slot keeps the baseline's name but resolves to the variant.
	got, ok := reg.Get("retrieval")
	require.True(t, ok)
	assert.Equal(t, "retrieval_v2", got.Metadata().Name)

	after, err := eng.Assemble(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"retrieval_v2"}, after.Contributors)

	// Promotion must not rewrite history.
	assert.Equal(t, []string{"retrieval"}, before.Contributors)
}

func TestPromoteRefusesWorseVariant(t *testing.T) {
	baseline := &fixedCollector{name: "baseline", relevance: 0.9}
	variant := &fixedCollector{name: "variant", relevance: 0.5}
	exp := newExperiment(t, baseline, variant, []Metric{MetricRelevance}, 20)

	runner := NewRunner(config.Default().Experiment, nil)
	res, err := runner.Run(context.Background(), exp)
	require.NoError(t, err)

	assert.False(t, res.VariantIsBetter())

	reg := collector.NewRegistry()
	require.NoError(t, reg.Register(baseline))
	assert.ErrorIs(t, res.Promote(reg), ErrVariantNotBetter)

	got, ok := reg.Get("baseline")
	require.True(t, ok)
	assert.Equal(t, "baseline", got.Metadata().Name)
}
