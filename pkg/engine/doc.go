// Package engine implements the context assembly orchestrator.
//
// One Assemble call selects the applicable collectors from the registry, runs
// them in a bounded worker pool with a per-call timeout, then merges the
// results single-threaded: duplicates collapse to the higher-relevance
// fragment, survivors sort by relevance, and a greedy pass fits them into the
// request's token budget. The budget is an invariant, never exceeded; a
// fragment that does not fit is skipped or truncated per the configured fit
// policy.
//
// AssembleWithRefinement wraps Assemble in a bounded quality loop: while the
// aggregate relevance of the assembled set stays below the configured
// threshold, the request is widened (scope broadened one step, loose
// applicability enabled) and assembly re-runs. Widening is strictly monotonic
// and the iteration cap guarantees termination.
//
// A single collector failing, timing out, or returning nothing is never
// fatal to assembly. Zero applicable collectors yield an empty context with
// aggregate relevance 0, not an error.
package engine
