// Package experiment compares two collector strategies across repeated
// trials and decides whether the challenger should replace the incumbent.
//
// An Experiment names a hypothesis, a baseline and a variant collector, the
// metrics to sample (relevance, speed, coverage), and a trial count. The
// Runner executes both sides of every trial under comparable conditions and
// aggregates the samples into a Result: per-metric means and variances, a
// Welch's t-test on the primary metric, and a verdict. Promote installs the
// variant in the live registry under the baseline's slot, atomically with
// respect to concurrent assembly.
//
// Trials where both sides fail are excluded from the sample; a one-sided
// failure records zero relevance for that side, so an unreliable variant is
// penalized rather than ignored. A result with fewer surviving trials than
// the configured minimum is inconclusive and refuses promotion.
package experiment
