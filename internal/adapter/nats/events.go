package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/atendeco/atende/internal/engine"
	"github.com/atendeco/atende/internal/port/messagequeue"
)

// subjectFor maps engine event types to queue subjects. Unmapped types
// (per-turn telemetry) stay off the queue.
var subjectFor = map[string]string{
	engine.EventConversationStarted:   messagequeue.SubjectConversationStarted,
	engine.EventConversationCompleted: messagequeue.SubjectConversationCompleted,
	engine.EventConversationEscalated: messagequeue.SubjectConversationEscalated,
	engine.EventActionExecuted:        messagequeue.SubjectActionExecuted,
}

// EventPublisher forwards engine lifecycle events to the message queue so
// downstream systems (CRM sync, notifications, analytics) can react.
type EventPublisher struct {
	queue messagequeue.Queue
	log   *slog.Logger
}

var _ engine.EventSink = (*EventPublisher)(nil)

// NewEventPublisher creates an EventPublisher on top of the given queue.
func NewEventPublisher(queue messagequeue.Queue, log *slog.Logger) *EventPublisher {
	return &EventPublisher{queue: queue, log: log}
}

// ConversationEvent implements engine.EventSink. Publish failures are
// logged, never propagated: event delivery must not fail the dialogue.
func (p *EventPublisher) ConversationEvent(ctx context.Context, evt engine.Event) {
	subject, ok := subjectFor[evt.Type]
	if !ok {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("marshal event failed", "type", evt.Type, "error", err)
		return
	}

	if err := p.queue.Publish(ctx, subject, payload); err != nil {
		p.log.Warn("publish event failed", "subject", subject, "error", err)
	}
}
