package engine

import (
	"context"
	"time"
)

// Event type constants emitted by the engine.
const (
	EventConversationStarted   = "conversation.started"
	EventConversationCompleted = "conversation.completed"
	EventConversationEscalated = "conversation.escalated"
	EventActionExecuted        = "action.executed"
	EventMessageProcessed      = "message.processed"
)

// Event describes one conversation lifecycle occurrence. Sinks fan these
// out to the message queue, the WebSocket hub and the metrics exporter.
type Event struct {
	Type           string        `json:"type"`
	TenantID       string        `json:"tenant_id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	AgentID        string        `json:"agent_id,omitempty"`
	AgentName      string        `json:"agent_name,omitempty"`
	UserID         string        `json:"user_id"`
	ChannelID      string        `json:"channel_id"`
	ChannelType    string        `json:"channel_type"`
	ActionType     string        `json:"action_type,omitempty"`
	Success        bool          `json:"success,omitempty"`
	Elapsed        time.Duration `json:"elapsed_ms,omitempty"`
	At             time.Time     `json:"at"`
}

// EventSink receives engine events. Implementations must not block the
// message-processing path for long; slow delivery belongs on their side.
type EventSink interface {
	ConversationEvent(ctx context.Context, evt Event)
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

// ConversationEvent implements EventSink.
func (m MultiSink) ConversationEvent(ctx context.Context, evt Event) {
	for _, s := range m {
		if s != nil {
			s.ConversationEvent(ctx, evt)
		}
	}
}
