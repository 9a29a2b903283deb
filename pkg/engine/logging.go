package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextkit/pkg/request"
)

// Logger wraps zap.Logger with engine-specific structured events. Any
// external logger can format these however it likes; the engine only emits
// structured fields.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("engine")}
}

// CollectorCollected logs a collector producing a fragment.
func (l *Logger) CollectorCollected(ctx context.Context, name string, tokens int, relevance float64, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("collector", name),
		zap.Int("tokens", tokens),
		zap.Float64("relevance", relevance),
		zap.Duration("duration", duration),
	)
	l.logger.Debug("collector finished", fields...)
}

// CollectorEmpty logs a collector legitimately returning nothing.
func (l *Logger) CollectorEmpty(ctx context.Context, name string, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("collector", name),
		zap.Duration("duration", duration),
	)
	l.logger.Debug("collector returned nothing", fields...)
}

// CollectorFailed logs a collector-local failure. Never fatal to the round.
func (l *Logger) CollectorFailed(ctx context.Context, name string, err error, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("collector", name),
		zap.Error(err),
		zap.Duration("duration", duration),
	)
	l.logger.Warn("collector failed", fields...)
}

// CollectorTimeout logs a collector call exceeding its deadline.
func (l *Logger) CollectorTimeout(ctx context.Context, name string, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("collector", name),
		zap.Duration("duration", duration),
	)
	l.logger.Warn("collector timeout", fields...)
}

// RoundCompleted logs the merge barrier outcome of one assembly round.
func (l *Logger) RoundCompleted(ctx context.Context, candidates, fragments, tokensUsed, budget int, relevance float64, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.Int("candidates", candidates),
		zap.Int("fragments", fragments),
		zap.Int("tokens_used", tokensUsed),
		zap.Int("budget", budget),
		zap.Float64("relevance", relevance),
		zap.Duration("duration", duration),
	)
	l.logger.Info("round completed", fields...)
}

// NoApplicableCollectors logs a round with zero candidates.
func (l *Logger) NoApplicableCollectors(ctx context.Context, kind request.TaskKind, scope request.Scope) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("task_kind", string(kind)),
		zap.String("scope", scope.String()),
	)
	l.logger.Info("no applicable collectors", fields...)
}

// RefinementTriggered logs a widening step.
func (l *Logger) RefinementTriggered(ctx context.Context, iteration int, relevance, threshold float64, newScope request.Scope, loose bool) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.Int("iteration", iteration),
		zap.Float64("relevance", relevance),
		zap.Float64("threshold", threshold),
		zap.String("new_scope", newScope.String()),
		zap.Bool("loose", loose),
	)
	l.logger.Info("refinement triggered", fields...)
}

// RefinementExhausted logs the loop ending below threshold.
func (l *Logger) RefinementExhausted(ctx context.Context, iterations int, relevance, threshold float64) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.Int("iterations", iterations),
		zap.Float64("relevance", relevance),
		zap.Float64("threshold", threshold),
	)
	l.logger.Warn("refinement exhausted", fields...)
}

// traceFields extracts trace context from the context.
func (l *Logger) traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
