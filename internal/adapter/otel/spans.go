package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "atende"

// StartTurnSpan starts a span covering one inbound message end to end.
func StartTurnSpan(ctx context.Context, tenantID, channelType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("channel.type", channelType),
		),
	)
}

// StartAnalyzeSpan starts a span for an intent analysis call.
func StartAnalyzeSpan(ctx context.Context, channel string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "analyze",
		trace.WithAttributes(
			attribute.String("channel.type", channel),
		),
	)
}

// StartActionSpan starts a span for an action execution.
func StartActionSpan(ctx context.Context, actionType, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "action",
		trace.WithAttributes(
			attribute.String("action.type", actionType),
			attribute.String("tenant.id", tenantID),
		),
	)
}
