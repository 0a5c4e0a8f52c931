package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/atendeco/atende/internal/engine"
)

const meterName = "atende"

// Metrics holds the conversation metric instruments. It plugs into the
// engine as an event sink.
type Metrics struct {
	ConversationsStarted   metric.Int64Counter
	ConversationsCompleted metric.Int64Counter
	ConversationsEscalated metric.Int64Counter
	ActionsExecuted        metric.Int64Counter
	TurnDuration           metric.Float64Histogram
}

var _ engine.EventSink = (*Metrics)(nil)

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ConversationsStarted, err = meter.Int64Counter("atende.conversations.started",
		metric.WithDescription("Number of conversations opened"))
	if err != nil {
		return nil, err
	}

	m.ConversationsCompleted, err = meter.Int64Counter("atende.conversations.completed",
		metric.WithDescription("Number of conversations completed"))
	if err != nil {
		return nil, err
	}

	m.ConversationsEscalated, err = meter.Int64Counter("atende.conversations.escalated",
		metric.WithDescription("Number of conversations handed to a human"))
	if err != nil {
		return nil, err
	}

	m.ActionsExecuted, err = meter.Int64Counter("atende.actions.executed",
		metric.WithDescription("Number of actions dispatched to the executor"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("atende.turn.duration_ms",
		metric.WithDescription("End-to-end processing time per inbound message"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ConversationEvent implements engine.EventSink.
func (m *Metrics) ConversationEvent(ctx context.Context, evt engine.Event) {
	attrs := metric.WithAttributes(
		attribute.String("tenant_id", evt.TenantID),
		attribute.String("channel_type", evt.ChannelType),
	)

	switch evt.Type {
	case engine.EventConversationStarted:
		m.ConversationsStarted.Add(ctx, 1, attrs)
	case engine.EventConversationCompleted:
		m.ConversationsCompleted.Add(ctx, 1, attrs)
	case engine.EventConversationEscalated:
		m.ConversationsEscalated.Add(ctx, 1, attrs)
	case engine.EventActionExecuted:
		m.ActionsExecuted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tenant_id", evt.TenantID),
			attribute.String("action_type", evt.ActionType),
			attribute.Bool("success", evt.Success),
		))
	case engine.EventMessageProcessed:
		m.TurnDuration.Record(ctx, float64(evt.Elapsed.Milliseconds()), attrs)
	}
}
