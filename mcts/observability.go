package mcts

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "pomcp.mcts"

// Option configures a Planner.
type Option func(*Planner)

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(tr trace.Tracer) Option {
	return func(p *Planner) {
		if tr != nil {
			p.tracer = tr
		}
	}
}

func (p *Planner) startSpan(ctx context.Context, name string, steps int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.Int("pomcp.steps", steps),
			attribute.Int("pomcp.iterations.budget", p.conf.Iterations),
			attribute.Int("pomcp.workers", p.conf.Workers),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (p *Planner) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Int("pomcp.iterations", p.Iterations()),
		attribute.Int("pomcp.nodes", p.Nodes()),
		attribute.Int("pomcp.particles", len(p.particles)),
	)
	span.End()
}
