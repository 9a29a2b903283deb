package experiment

import (
	"errors"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// Construction and verdict errors.
var (
	ErrNilExperiment     = errors.New("experiment is nil")
	ErrEmptyHypothesis   = errors.New("hypothesis is required")
	ErrNilBaseline       = errors.New("baseline collector is nil")
	ErrNilVariant        = errors.New("variant collector is nil")
	ErrNoMetrics         = errors.New("at least one metric is required")
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrInvalidTrials     = errors.New("trial count must be positive")
	ErrNilRequestFactory = errors.New("request factory is nil")
	ErrMissingAspects    = errors.New("coverage metric requires expected aspects")
	ErrInconclusive      = errors.New("result is inconclusive, refusing promotion")
	ErrVariantNotBetter  = errors.New("variant is not significantly better, refusing promotion")
)

// Metric names a measurable dimension of a collect call.
type Metric string

const (
	// MetricRelevance samples the returned fragment's relevance score,
	// zero when the collector failed or returned nothing.
	MetricRelevance Metric = "relevance"
	// MetricSpeed samples the wall time of the collect call. Samples are
	// normalized internally so that higher is better, like every other
	// metric.
	MetricSpeed Metric = "speed"
	// MetricCoverage samples the fraction of the experiment's expected
	// aspect tags present on the returned fragment.
	MetricCoverage Metric = "coverage"
)

func (m Metric) valid() bool {
	switch m {
	case MetricRelevance, MetricSpeed, MetricCoverage:
		return true
	}
	return false
}

// Experiment defines one baseline-versus-variant comparison.
type Experiment struct {
	// ID is assigned at construction.
	ID string
	// Hypothesis states what the variant is expected to improve.
	Hypothesis string
	// Baseline is the incumbent strategy; its registry slot is the
	// promotion target.
	Baseline collector.Collector
	// Variant is the challenger.
	Variant collector.Collector
	// Metrics to sample each trial.
	Metrics []Metric
	// Trials is the number of repetitions.
	Trials int
	// PrimaryMetric drives significance and improvement. Defaults to
	// relevance.
	PrimaryMetric Metric
	// ExpectedAspects is the reference aspect set for the coverage metric.
	// Required when coverage is requested.
	ExpectedAspects []string
	// MakeRequest builds the representative request for a trial. The same
	// request is passed to both sides of the trial.
	MakeRequest func(trial int) *request.Request
}

// New constructs a validated Experiment with a fresh ID.
func New(hypothesis string, baseline, variant collector.Collector, metrics []Metric, trials int, makeRequest func(trial int) *request.Request) (*Experiment, error) {
	if hypothesis == "" {
		return nil, ErrEmptyHypothesis
	}
	if baseline == nil {
		return nil, ErrNilBaseline
	}
	if variant == nil {
		return nil, ErrNilVariant
	}
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}
	for _, m := range metrics {
		if !m.valid() {
			return nil, ErrUnknownMetric
		}
	}
	if trials <= 0 {
		return nil, ErrInvalidTrials
	}
	if makeRequest == nil {
		return nil, ErrNilRequestFactory
	}

	return &Experiment{
		ID:            uuid.NewString(),
		Hypothesis:    hypothesis,
		Baseline:      baseline,
		Variant:       variant,
		Metrics:       metrics,
		Trials:        trials,
		PrimaryMetric: MetricRelevance,
		MakeRequest:   makeRequest,
	}, nil
}

func (e *Experiment) wantsMetric(m Metric) bool {
	for _, have := range e.Metrics {
		if have == m {
			return true
		}
	}
	return false
}
