package engine

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
	"github.com/fyrsmithlabs/contextkit/pkg/config"
	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

var tracer = otel.Tracer("contextkit/engine")

// Engine assembles context for requests from the collectors in a registry.
type Engine struct {
	registry *collector.Registry
	engCfg   config.EngineConfig
	refCfg   config.RefinementConfig
	log      *Logger
	metrics  *Metrics
}

// Option configures optional Engine collaborators.
type Option func(*options)

type options struct {
	meter metric.Meter
}

// WithMeter supplies the meter backing the engine's instruments. Without it
// the global meter provider is used.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// New creates an Engine. logger may be nil for a no-op logger.
func New(reg *collector.Registry, cfg config.Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var settings options
	for _, opt := range opts {
		opt(&settings)
	}
	metrics, err := NewMetrics(settings.meter)
	if err != nil {
		return nil, err
	}
	return &Engine{
		registry: reg,
		engCfg:   cfg.Engine,
		refCfg:   cfg.Refinement,
		log:      NewLogger(logger),
		metrics:  metrics,
	}, nil
}

// Registry returns the engine's collector registry.
func (e *Engine) Registry() *collector.Registry { return e.registry }

// Assemble runs one assembly round for the request.
//
// The only error conditions are structural (nil request) or caller
// cancellation observed at the merge barrier. Collector failures are absorbed
// into the round; zero applicable collectors yield an empty context.
func (e *Engine) Assemble(ctx context.Context, req *request.Request) (*AssembledContext, error) {
	ac, err := e.assemble(ctx, req, false)
	if err != nil {
		return nil, err
	}
	ac.Rounds = 1
	return ac, nil
}

// assemble runs a single round. loose enables the relaxed applicability check
// used by widened refinement rounds.
func (e *Engine) assemble(ctx context.Context, req *request.Request, loose bool) (*AssembledContext, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	ctx, span := tracer.Start(ctx, "engine.assemble")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.task_kind", string(req.Kind())),
		attribute.String("request.scope", req.Scope().String()),
		attribute.Int("request.budget", req.Budget()),
		attribute.Bool("round.loose", loose),
	)

	start := time.Now()

	candidates := e.selectCandidates(req, loose)
	if len(candidates) == 0 {
		e.log.NoApplicableCollectors(ctx, req.Kind(), req.Scope())
		e.metrics.RecordRound(ctx, time.Since(start), 0, 0)
		return &AssembledContext{Budget: req.Budget()}, nil
	}

	outcomes, err := e.runCollectors(ctx, req, candidates)
	if err != nil {
		return nil, err
	}

	ac := e.merge(req, candidates, outcomes)

	e.metrics.RecordRound(ctx, time.Since(start), len(ac.Fragments), utilization(ac.TokensUsed, ac.Budget))
	e.log.RoundCompleted(ctx, len(candidates), len(ac.Fragments), ac.TokensUsed, ac.Budget, ac.Relevance, time.Since(start))

	span.SetAttributes(
		attribute.Int("round.fragments", len(ac.Fragments)),
		attribute.Float64("round.relevance", ac.Relevance),
	)
	return ac, nil
}

// selectCandidates filters the registry snapshot by applicability and orders
// the survivors by priority descending, registration order on ties.
func (e *Engine) selectCandidates(req *request.Request, loose bool) []collector.Collector {
	snapshot := e.registry.Snapshot()

	var candidates []collector.Collector
	for _, c := range snapshot {
		applicable := c.Applicable(req)
		if !applicable && loose {
			if sr, ok := c.(collector.ScopeRelaxable); ok {
				applicable = sr.ApplicableLoosely(req)
			}
		}
		if applicable {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() > candidates[j].Priority()
	})
	return candidates
}

// merge is the single-threaded synchronization barrier: dedup, relevance
// sort, and the greedy budget fit.
func (e *Engine) merge(req *request.Request, candidates []collector.Collector, outcomes []collectOutcome) *AssembledContext {
	// Dedup by fragment type + normalized content, keeping the higher
	// relevance. First writer wins position; a better duplicate replaces
	// it in place so fragment order stays stable.
	byKey := make(map[string]int)
	var fragments []*collector.Fragment
	for _, o := range outcomes {
		if o.frag == nil {
			continue
		}
		key := o.frag.DedupKey()
		if i, seen := byKey[key]; seen {
			if o.frag.Relevance > fragments[i].Relevance {
				fragments[i] = o.frag
			}
			continue
		}
		byKey[key] = len(fragments)
		fragments = append(fragments, o.frag)
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Relevance > fragments[j].Relevance
	})

	included, used := e.fitBudget(fragments, req.Budget())

	contributors := make(map[string]struct{}, len(included))
	var names []string
	for _, f := range included {
		if _, seen := contributors[f.Source]; !seen {
			contributors[f.Source] = struct{}{}
			names = append(names, f.Source)
		}
	}

	var silent []string
	for _, c := range candidates {
		name := c.Metadata().Name
		if _, ok := contributors[name]; !ok {
			silent = append(silent, name)
		}
	}

	return &AssembledContext{
		Fragments:    included,
		Relevance:    aggregateRelevance(included),
		TokensUsed:   used,
		Budget:       req.Budget(),
		Contributors: names,
		Silent:       silent,
	}
}

// fitBudget greedily accepts fragments while the budget holds. Under the
// skip policy a fragment that does not fit is passed over and scanning
// continues; under the truncate policy the first misfit is cut to exactly
// fill the remaining budget and the scan stops.
func (e *Engine) fitBudget(fragments []*collector.Fragment, budget int) ([]*collector.Fragment, int) {
	var included []*collector.Fragment
	used := 0
	for _, f := range fragments {
		remaining := budget - used
		if remaining <= 0 {
			break
		}
		if f.Tokens <= remaining {
			included = append(included, f)
			used += f.Tokens
			continue
		}
		if e.engCfg.FitPolicy == config.FitPolicyTruncate {
			included = append(included, f.Truncate(remaining))
			used = budget
			break
		}
		// skip policy: this fragment does not fit, a smaller one might
	}
	return included, used
}

// aggregateRelevance is the token-weighted mean relevance of the set.
func aggregateRelevance(fragments []*collector.Fragment) float64 {
	var weighted float64
	var tokens int
	for _, f := range fragments {
		weighted += f.Relevance * float64(f.Tokens)
		tokens += f.Tokens
	}
	if tokens == 0 {
		return 0
	}
	return weighted / float64(tokens)
}

func utilization(used, budget int) float64 {
	if budget <= 0 {
		return 0
	}
	return float64(used) / float64(budget)
}
