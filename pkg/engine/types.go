package engine

import (
	"errors"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// Structural misuse errors. Collector-local failures are not errors at this
// level; they are absorbed during the round.
var (
	ErrNilRequest  = errors.New("request is nil")
	ErrNilRegistry = errors.New("registry is nil")
)

// AssembledContext is the result of one assembly (possibly refined).
type AssembledContext struct {
	// Fragments included in the context, ordered by relevance descending.
	Fragments []*collector.Fragment
	// Relevance is the token-weighted mean relevance of included fragments,
	// 0 for an empty context.
	Relevance float64
	// TokensUsed is the summed token estimate of included fragments. It
	// never exceeds Budget.
	TokensUsed int
	// Budget echoes the request's token budget.
	Budget int
	// Contributors are the distinct source names of included fragments.
	Contributors []string
	// Silent are collectors that were applicable but have no fragment in
	// the final set: they returned nothing, failed, timed out, lost a
	// dedup, or were dropped by the budget.
	Silent []string
	// Rounds is the number of assembly rounds run (1 without refinement).
	Rounds int
	// Exhausted is set when refinement hit its iteration cap while still
	// below the quality threshold.
	Exhausted bool
	// Trace reports per-iteration refinement progress, for diagnostics.
	Trace []IterationReport
}

// IterationReport records the outcome of one refinement iteration.
type IterationReport struct {
	Iteration int
	Scope     request.Scope
	Loose     bool
	Relevance float64
	Fragments int
}
