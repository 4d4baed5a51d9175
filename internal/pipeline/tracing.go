// Tracing instrumentation for the session controller.
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rivalmap/rivalmap/internal/pipeline"

// startStageSpan starts a span for one stage group execution.
func startStageSpan(ctx context.Context, sessionID, stage string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "stage."+stage)
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("stage.name", stage),
	)
	return ctx, span
}

// endStageSpan ends the stage span with the status it suspended at.
func endStageSpan(span trace.Span, status string) {
	span.SetAttributes(attribute.String("session.approval_status", status))
	span.End()
}

// startGateSpan starts a span for a gate resolution.
func startGateSpan(ctx context.Context, sessionID, gate, action string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gate."+gate)
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("gate.name", gate),
		attribute.String("gate.action", action),
	)
	return ctx, span
}

// endGateSpan ends the gate span with the resolved status.
func endGateSpan(span trace.Span, status string) {
	span.SetAttributes(attribute.String("gate.resolved_status", status))
	span.End()
}
