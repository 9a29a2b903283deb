package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/contextkit/pkg/collector"
	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// collectOutcome is the per-collector result of one round. frag is nil when
// the collector returned nothing, failed, or timed out.
type collectOutcome struct {
	name string
	frag *collector.Fragment
}

// runCollectors executes the candidates in a bounded worker pool with a
// per-call timeout. Failures and timeouts are logged and dropped. The
// function is the round's fan-in point: it returns only after every worker
// has finished, and if the caller's context was cancelled in the meantime all
// results are discarded and the context error is returned.
func (e *Engine) runCollectors(ctx context.Context, req *request.Request, candidates []collector.Collector) ([]collectOutcome, error) {
	results := make(chan collectOutcome, len(candidates))
	sem := make(chan struct{}, e.engCfg.Concurrency)

	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		go func(c collector.Collector) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- collectOutcome{name: c.Metadata().Name}
				return
			}

			results <- e.invoke(ctx, req, c)
		}(c)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]collectOutcome, 0, len(candidates))
	for o := range results {
		outcomes = append(outcomes, o)
	}

	// Merge barrier: discard the round if the caller cancelled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// invoke runs a single collector with the configured timeout and absorbs its
// failure modes.
func (e *Engine) invoke(ctx context.Context, req *request.Request, c collector.Collector) collectOutcome {
	name := c.Metadata().Name

	if ctx.Err() != nil {
		return collectOutcome{name: name}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.engCfg.CollectTimeout)
	defer cancel()

	callCtx, span := tracer.Start(callCtx, "engine.collect")
	span.SetAttributes(attribute.String("collector.name", name))
	defer span.End()

	start := time.Now()
	frag, err := c.Collect(callCtx, req)
	elapsed := time.Since(start)

	e.metrics.RecordCollectLatency(ctx, name, elapsed)

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		e.log.CollectorTimeout(ctx, name, elapsed)
		e.metrics.RecordCollectorTimeout(ctx, name)
		return collectOutcome{name: name}
	case err != nil:
		e.log.CollectorFailed(ctx, name, err, elapsed)
		e.metrics.RecordCollectorFailure(ctx, name)
		return collectOutcome{name: name}
	case frag == nil:
		e.log.CollectorEmpty(ctx, name, elapsed)
		return collectOutcome{name: name}
	default:
		e.log.CollectorCollected(ctx, name, frag.Tokens, frag.Relevance, elapsed)
		return collectOutcome{name: name, frag: frag}
	}
}
