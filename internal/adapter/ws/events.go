package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/atendeco/atende/internal/engine"
)

// Compile-time check: the hub is an engine event sink.
var _ engine.EventSink = (*Hub)(nil)

// ConversationEvent fans a conversation lifecycle event out to the
// owning tenant's connected clients. Per-turn telemetry stays off the
// wire; dashboards only care about lifecycle transitions.
func (h *Hub) ConversationEvent(ctx context.Context, evt engine.Event) {
	if evt.Type == engine.EventMessageProcessed {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal ws event payload", "type", evt.Type, "error", err)
		return
	}

	h.BroadcastToTenant(ctx, evt.TenantID, Message{
		Type:    evt.Type,
		Payload: payload,
	})
}
