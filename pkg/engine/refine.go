package engine

import (
	"context"

	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// AssembleWithRefinement assembles context and, while the aggregate relevance
// stays below the configured quality threshold, widens the request and
// re-assembles.
//
// Widening is strictly monotonic: each iteration broadens the scope one step
// (until global) and, from the second iteration on, admits collectors that
// pass the loose applicability check. The loop runs at most the configured
// max iterations; hitting the cap below threshold marks the result Exhausted
// rather than erroring, so callers can accept partial quality. Iterations are
// sequential by construction — each one depends on the previous relevance.
func (e *Engine) AssembleWithRefinement(ctx context.Context, req *request.Request) (*AssembledContext, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	threshold := e.refCfg.QualityThreshold
	maxIterations := e.refCfg.MaxIterations

	cur := req
	loose := false
	var trace []IterationReport

	for iteration := 1; ; iteration++ {
		ac, err := e.assemble(ctx, cur, loose)
		if err != nil {
			return nil, err
		}

		trace = append(trace, IterationReport{
			Iteration: iteration,
			Scope:     cur.Scope(),
			Loose:     loose,
			Relevance: ac.Relevance,
			Fragments: len(ac.Fragments),
		})

		ac.Rounds = iteration
		ac.Trace = trace

		if ac.Relevance >= threshold {
			return ac, nil
		}
		if iteration >= maxIterations {
			ac.Exhausted = true
			e.log.RefinementExhausted(ctx, iteration, ac.Relevance, threshold)
			return ac, nil
		}

		// Widen. If the request is already as broad as it gets, further
		// iterations cannot improve anything; stop early.
		widened := false
		if cur.Scope() < request.ScopeGlobal {
			cur = cur.WithScope(cur.Scope().Broaden())
			widened = true
		}
		if !loose {
			loose = true
			widened = true
		}
		if !widened {
			ac.Exhausted = true
			e.log.RefinementExhausted(ctx, iteration, ac.Relevance, threshold)
			return ac, nil
		}

		e.log.RefinementTriggered(ctx, iteration, ac.Relevance, threshold, cur.Scope(), loose)
		e.metrics.RecordRefinement(ctx)
	}
}
