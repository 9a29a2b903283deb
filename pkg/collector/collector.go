package collector

import (
	"context"

	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// Kind classifies how a collector gathers context.
type Kind string

const (
	KindStatic  Kind = "static"  // derives from inputs alone
	KindDynamic Kind = "dynamic" // observes runtime artifacts
	KindHybrid  Kind = "hybrid"
)

// Metadata describes a collector for registry bookkeeping and experiment
// labeling.
type Metadata struct {
	Name        string
	Description string
	Version     string
	Kind        Kind
}

// Collector is the capability contract every retrieval strategy implements.
//
// Applicable must be a pure, cheap predicate; it is called once per candidate
// per request. Collect performs the actual retrieval and may return (nil, nil)
// when it legitimately has nothing to contribute (for example a required
// parameter is missing). A Collect error is collector-local: the engine logs
// and drops it, it never aborts assembly.
type Collector interface {
	Applicable(req *request.Request) bool
	Collect(ctx context.Context, req *request.Request) (*Fragment, error)
	Priority() int
	Metadata() Metadata
}

// ScopeRelaxable is an optional interface. When a refinement round widens the
// request, the engine additionally admits collectors whose ApplicableLoosely
// returns true even though Applicable did not. Collectors that do not
// implement it participate in widened rounds through scope broadening alone.
type ScopeRelaxable interface {
	ApplicableLoosely(req *request.Request) bool
}
