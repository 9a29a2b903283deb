// Package config provides configuration for the contextkit library.
//
// Configuration is loaded from hardcoded defaults, optionally overridden by a
// YAML document, then by environment variables. The precedence (highest to
// lowest) is: environment variables, YAML, defaults.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Validation errors.
var (
	ErrInvalidConcurrency   = errors.New("engine concurrency must be positive")
	ErrInvalidTimeout       = errors.New("collect timeout must be positive")
	ErrInvalidFitPolicy     = errors.New("fit policy must be \"skip\" or \"truncate\"")
	ErrInvalidThreshold     = errors.New("quality threshold must be in (0, 1]")
	ErrInvalidMaxIterations = errors.New("max iterations must be positive")
	ErrInvalidConfidence    = errors.New("confidence level must be in (0, 1)")
	ErrInvalidMinSamples    = errors.New("min samples must be positive")
	ErrInvalidParallelism   = errors.New("trial parallelism must be positive")
)

// Fit policies for the engine's budget step.
const (
	FitPolicySkip     = "skip"
	FitPolicyTruncate = "truncate"
)

// Config holds the complete contextkit configuration.
type Config struct {
	Engine     EngineConfig     `koanf:"engine"`
	Refinement RefinementConfig `koanf:"refinement"`
	Experiment ExperimentConfig `koanf:"experiment"`
}

// EngineConfig holds orchestrator settings.
type EngineConfig struct {
	// Concurrency bounds the collector worker pool for one assemble round.
	Concurrency int `koanf:"concurrency"`
	// CollectTimeout is the per-collector-call deadline.
	CollectTimeout time.Duration `koanf:"collect_timeout"`
	// FitPolicy selects the budget step behavior: "skip" drops fragments
	// that do not fit, "truncate" cuts the last fragment to exactly fill
	// the remaining budget.
	FitPolicy string `koanf:"fit_policy"`
}

// RefinementConfig holds the quality evaluator settings. The threshold and
// iteration cap are explicit configuration, not contract constants.
type RefinementConfig struct {
	QualityThreshold float64 `koanf:"quality_threshold"`
	MaxIterations    int     `koanf:"max_iterations"`
}

// ExperimentConfig holds experiment runner settings.
type ExperimentConfig struct {
	// ConfidenceLevel for the significance test (e.g. 0.95).
	ConfidenceLevel float64 `koanf:"confidence_level"`
	// MinSamples is the minimum surviving trial count below which a result
	// is inconclusive.
	MinSamples int `koanf:"min_samples"`
	// TrialParallelism bounds concurrent trials. The default of 1 keeps
	// speed measurements free of cross-trial contention.
	TrialParallelism int `koanf:"trial_parallelism"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Concurrency:    runtime.NumCPU(),
			CollectTimeout: 2 * time.Second,
			FitPolicy:      FitPolicySkip,
		},
		Refinement: RefinementConfig{
			QualityThreshold: 0.7,
			MaxIterations:    3,
		},
		Experiment: ExperimentConfig{
			ConfidenceLevel:  0.95,
			MinSamples:       5,
			TrialParallelism: 1,
		},
	}
}

// Validate checks the configuration for structural misuse.
func (c Config) Validate() error {
	if c.Engine.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Engine.CollectTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Engine.FitPolicy != FitPolicySkip && c.Engine.FitPolicy != FitPolicyTruncate {
		return fmt.Errorf("%w: got %q", ErrInvalidFitPolicy, c.Engine.FitPolicy)
	}
	if c.Refinement.QualityThreshold <= 0 || c.Refinement.QualityThreshold > 1 {
		return ErrInvalidThreshold
	}
	if c.Refinement.MaxIterations <= 0 {
		return ErrInvalidMaxIterations
	}
	if c.Experiment.ConfidenceLevel <= 0 || c.Experiment.ConfidenceLevel >= 1 {
		return ErrInvalidConfidence
	}
	if c.Experiment.MinSamples <= 0 {
		return ErrInvalidMinSamples
	}
	if c.Experiment.TrialParallelism <= 0 {
		return ErrInvalidParallelism
	}
	return nil
}
