package experiment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
	"github.com/fyrsmithlabs/contextkit/pkg/config"
	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// Runner executes experiments.
type Runner struct {
	cfg config.ExperimentConfig
	log *zap.Logger
}

// NewRunner creates a Runner. logger may be nil for a no-op logger.
func NewRunner(cfg config.ExperimentConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: logger.Named("experiment")}
}

// trialSide holds one side's raw measurements for a trial.
type trialSide struct {
	relevance float64
	coverage  float64
	elapsedMs float64
	failed    bool
}

// trialOutcome holds both sides of one trial. excluded marks a trial where
// both sides failed; it does not count toward the sample.
type trialOutcome struct {
	baseline trialSide
	variant  trialSide
	excluded bool
}

// Run executes the experiment and aggregates a Result.
//
// Trials run concurrently up to the configured parallelism (default 1; speed
// comparisons across concurrent trials are outside the correctness
// guarantee). Within a trial the two sides run sequentially so the speed
// metric is measured under comparable conditions.
func (r *Runner) Run(ctx context.Context, exp *Experiment) (*Result, error) {
	if exp == nil {
		return nil, ErrNilExperiment
	}
	if exp.wantsMetric(MetricCoverage) && len(exp.ExpectedAspects) == 0 {
		return nil, ErrMissingAspects
	}

	outcomes := make([]trialOutcome, exp.Trials)
	sem := make(chan struct{}, r.cfg.TrialParallelism)
	var wg sync.WaitGroup

	for trial := 0; trial < exp.Trials; trial++ {
		wg.Add(1)
		go func(trial int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[trial] = trialOutcome{excluded: true}
				return
			}

			outcomes[trial] = r.runTrial(ctx, exp, trial)
		}(trial)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return r.aggregate(exp, outcomes), nil
}

// runTrial measures both sides of one trial, baseline first.
func (r *Runner) runTrial(ctx context.Context, exp *Experiment, trial int) trialOutcome {
	req := exp.MakeRequest(trial)

	baseline := r.measure(ctx, exp, exp.Baseline, req)
	variant := r.measure(ctx, exp, exp.Variant, req)

	out := trialOutcome{baseline: baseline, variant: variant}
	if baseline.failed && variant.failed {
		// Neither side produced a measurement worth keeping.
		out.excluded = true
	}

	r.log.Debug("trial completed",
		zap.String("experiment_id", exp.ID),
		zap.Int("trial", trial),
		zap.Bool("excluded", out.excluded),
		zap.Float64("baseline_relevance", baseline.relevance),
		zap.Float64("variant_relevance", variant.relevance),
	)
	return out
}

// measure runs one collect call and samples it. A failed or empty call
// records zero relevance and coverage; the elapsed time is real either way.
func (r *Runner) measure(ctx context.Context, exp *Experiment, c collector.Collector, req *request.Request) trialSide {
	start := time.Now()
	frag, err := c.Collect(ctx, req)
	elapsed := time.Since(start)

	side := trialSide{elapsedMs: float64(elapsed.Microseconds()) / 1000}
	if err != nil {
		side.failed = true
		return side
	}
	if frag == nil {
		return side
	}

	side.relevance = frag.Relevance
	side.coverage = aspectCoverage(frag, exp.ExpectedAspects)
	return side
}

// aspectCoverage is the fraction of expected aspects present on the fragment.
func aspectCoverage(frag *collector.Fragment, expected []string) float64 {
	if len(expected) == 0 {
		return 0
	}
	found := 0
	for _, want := range expected {
		if frag.HasAspect(want) {
			found++
		}
	}
	return float64(found) / float64(len(expected))
}

// aggregate folds trial outcomes into a Result.
func (r *Runner) aggregate(exp *Experiment, outcomes []trialOutcome) *Result {
	res := &Result{
		ExperimentID:  exp.ID,
		Hypothesis:    exp.Hypothesis,
		PrimaryMetric: exp.PrimaryMetric,
		Metrics:       make(map[Metric]*MetricSamples, len(exp.Metrics)),
		baselineName:  exp.Baseline.Metadata().Name,
		variantName:   exp.Variant.Metadata().Name,
		variant:       exp.Variant,
		alpha:         1 - r.cfg.ConfidenceLevel,
	}

	for _, o := range outcomes {
		if o.excluded {
			res.ExcludedTrials++
			continue
		}
		res.ValidTrials++
		for _, m := range exp.Metrics {
			ms := res.Metrics[m]
			if ms == nil {
				ms = &MetricSamples{Metric: m}
				res.Metrics[m] = ms
			}
			ms.Baseline = append(ms.Baseline, sampleValue(m, o.baseline))
			ms.Variant = append(ms.Variant, sampleValue(m, o.variant))
		}
	}

	for _, ms := range res.Metrics {
		ms.summarize()
	}

	if res.ValidTrials < r.cfg.MinSamples {
		res.Inconclusive = true
		res.pValue = 1
	} else if primary := res.Metrics[exp.PrimaryMetric]; primary != nil {
		_, _, res.pValue = welchTTest(primary.Baseline, primary.Variant)
	} else {
		res.Inconclusive = true
		res.pValue = 1
	}

	r.log.Info("experiment completed",
		zap.String("experiment_id", exp.ID),
		zap.Int("valid_trials", res.ValidTrials),
		zap.Int("excluded_trials", res.ExcludedTrials),
		zap.Bool("inconclusive", res.Inconclusive),
		zap.Float64("p_value", res.pValue),
		zap.Bool("variant_better", res.VariantIsBetter()),
	)
	return res
}

// sampleValue maps a measured side to the metric's sample scale. Every
// metric is stored higher-is-better; speed samples are negated milliseconds.
func sampleValue(m Metric, side trialSide) float64 {
	switch m {
	case MetricRelevance:
		return side.relevance
	case MetricSpeed:
		return -side.elapsedMs
	case MetricCoverage:
		return side.coverage
	default:
		return 0
	}
}
