// Package observability implements the evaluator's metrics and
// tracing instrumentation (SPEC_FULL.md's Logging & tracing section:
// "instruments module load/evaluate spans with go.opentelemetry.io/otel
// ... the same way holomush wraps request handling"). Metric naming
// follows the `promauto.NewCounterVec`/`NewHistogram` style of
// holomush's internal/access/policy/metrics.go; span creation follows
// internal/command/dispatcher.go's package-level `otel.Tracer(...)` +
// `tracer.Start(ctx, name, trace.WithAttributes(...))` idiom.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pklcore/eval")

var (
	evalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pklcore_eval_duration_seconds",
		Help:    "Histogram of module-load and member-evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	memberCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pklcore_member_cache_total",
		Help: "Total number of per-(receiver,key) member reads, by cache outcome",
	}, []string{"outcome"}) // "hit" | "miss"

	securityDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pklcore_security_decisions_total",
		Help: "Total number of module/resource URI security-policy decisions",
	}, []string{"kind", "decision"}) // kind: "module"|"resource"; decision: "allow"|"deny"
)

// RecordMemberCacheOutcome increments the member-cache hit/miss
// counter (spec §5 "repeated reads return the identical value object").
func RecordMemberCacheOutcome(hit bool) {
	if hit {
		memberCacheHits.WithLabelValues("hit").Inc()
		return
	}
	memberCacheHits.WithLabelValues("miss").Inc()
}

// RecordSecurityDecision increments the security-policy decision
// counter for a module or resource URI check (spec §7 "Security
// policy: disallowed module or resource URI").
func RecordSecurityDecision(kind string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	securityDecisions.WithLabelValues(kind, decision).Inc()
}

// StartSpan opens a request-scoped span for one module load or
// evaluate operation (spec §5 "parallelism is across independent
// requests", so each evaluation gets its own span for correlation),
// and returns a stop func that records both the span end and the
// eval_duration histogram observation.
func StartSpan(ctx context.Context, operation, moduleName string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.String("pklcore.module", moduleName),
	))
	return ctx, func(err error) {
		evalDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
