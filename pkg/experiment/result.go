package experiment

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
)

// MetricSamples holds one metric's paired sample sets and their summary
// statistics. Samples are on a higher-is-better scale (speed is negated
// milliseconds).
type MetricSamples struct {
	Metric           Metric
	Baseline         []float64
	Variant          []float64
	BaselineMean     float64
	VariantMean      float64
	BaselineVariance float64
	VariantVariance  float64
}

func (ms *MetricSamples) summarize() {
	ms.BaselineMean = meanOrZero(ms.Baseline)
	ms.VariantMean = meanOrZero(ms.Variant)
	ms.BaselineVariance = varianceOrZero(ms.Baseline)
	ms.VariantVariance = varianceOrZero(ms.Variant)
}

func meanOrZero(samples []float64) float64 {
	m, err := stats.Mean(samples)
	if err != nil {
		return 0
	}
	return m
}

func varianceOrZero(samples []float64) float64 {
	v, err := stats.SampleVariance(samples)
	if err != nil {
		return 0
	}
	return v
}

// Result is the immutable outcome of one experiment run. Promote is the only
// mutating operation and it acts on the registry, not on the Result.
type Result struct {
	ExperimentID  string
	Hypothesis    string
	PrimaryMetric Metric
	// Metrics maps each requested metric to its samples and summary.
	Metrics map[Metric]*MetricSamples
	// ValidTrials counts trials that produced a usable sample.
	ValidTrials int
	// ExcludedTrials counts trials dropped because both sides failed.
	ExcludedTrials int
	// Inconclusive is set when fewer than the minimum viable samples
	// survived. An inconclusive result refuses promotion.
	Inconclusive bool

	pValue       float64
	alpha        float64
	baselineName string
	variantName  string
	variant      collector.Collector
}

// PValue returns the Welch's t-test p-value for the primary metric.
func (r *Result) PValue() float64 { return r.pValue }

// Significant reports whether the primary-metric comparison rejects the null
// hypothesis of equal means at the configured confidence level. Always false
// for an inconclusive result.
func (r *Result) Significant() bool {
	if r.Inconclusive {
		return false
	}
	return r.pValue <= r.alpha
}

// VariantIsBetter reports whether the variant's mean meets or beats the
// baseline's on a majority of the requested metrics and the primary-metric
// improvement is significant.
func (r *Result) VariantIsBetter() bool {
	if !r.Significant() {
		return false
	}
	better := 0
	for _, ms := range r.Metrics {
		if ms.VariantMean >= ms.BaselineMean {
			better++
		}
	}
	return better*2 > len(r.Metrics)
}

// Improvement returns the percentage change of the primary metric's mean,
// variant over baseline. Speed is reported on the positive millisecond
// scale, so a faster variant yields a positive percentage.
func (r *Result) Improvement() float64 {
	ms := r.Metrics[r.PrimaryMetric]
	if ms == nil {
		return 0
	}
	base, variant := ms.BaselineMean, ms.VariantMean
	if r.PrimaryMetric == MetricSpeed {
		// Undo the higher-is-better negation: improvement is time saved.
		base, variant = -base, -variant
		if base == 0 {
			return 0
		}
		return (base - variant) / base * 100
	}
	if base == 0 {
		if variant == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (variant - base) / base * 100
}

// BaselineName returns the registry slot targeted by promotion.
func (r *Result) BaselineName() string { return r.baselineName }

// VariantName returns the challenger's metadata name.
func (r *Result) VariantName() string { return r.variantName }

// Promote atomically replaces the baseline's registration with the variant.
//
// The variant is installed under the baseline's former registry name, so
// callers addressing the slot by name keep working while the implementation
// behind it changes. The swap is visible to every subsequent assemble call
// and to none of the already-returned AssembledContexts.
//
// Promote refuses inconclusive results and results where the variant did not
// win significantly.
func (r *Result) Promote(reg *collector.Registry) error {
	if r.Inconclusive {
		return ErrInconclusive
	}
	if !r.VariantIsBetter() {
		return ErrVariantNotBetter
	}
	return reg.Replace(r.baselineName, r.variant)
}
