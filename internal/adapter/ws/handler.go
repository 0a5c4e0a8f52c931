// Package ws implements the WebSocket chat channel: each connection is a
// live dialogue session feeding the conversation engine, and the hub also
// fans engine lifecycle events out to connected clients of the same tenant.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	atotel "github.com/atendeco/atende/internal/adapter/otel"
	"github.com/atendeco/atende/internal/engine"
	"github.com/atendeco/atende/internal/middleware"
)

// channelType identifies this adapter on conversations it opens.
const channelType = "chat"

// MessageProcessor is the engine surface a chat session talks to.
// Satisfied by *engine.Engine.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg engine.MessageContext) *engine.Response
}

// Message is the envelope for all WebSocket frames, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// inbound is what a connected client sends per user utterance.
type inbound struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// conn wraps a single WebSocket connection and its session identity.
type conn struct {
	ws       *websocket.Conn
	cancel   context.CancelFunc
	tenantID string
	userID   string
	chanID   string

	// writes are serialized: the session reply and hub broadcasts share
	// the socket.
	writeMu sync.Mutex
}

func (c *conn) write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Hub manages all active WebSocket connections.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}

	origin    string
	processor MessageProcessor
}

// NewHub creates a hub. origin restricts the accepted Origin header
// (empty allows any, for development). processor may be nil for a
// broadcast-only hub.
func NewHub(origin string, processor MessageProcessor) *Hub {
	return &Hub{
		conns:     make(map[*conn]struct{}),
		origin:    origin,
		processor: processor,
	}
}

// SetProcessor wires the engine after construction. The hub is an event
// sink for the engine, so the two are created hub-first.
func (h *Hub) SetProcessor(p MessageProcessor) {
	h.processor = p
}

// HandleWS upgrades GET /ws?user_id=&channel_id= to a chat session. The
// tenant comes from the request context; channel_id is generated when the
// client does not resume an existing one.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	chanID := r.URL.Query().Get("channel_id")
	if chanID == "" {
		chanID = uuid.New().String()
	}

	opts := &websocket.AcceptOptions{InsecureSkipVerify: true}
	if h.origin != "" {
		opts = &websocket.AcceptOptions{OriginPatterns: []string{h.origin}}
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The session outlives the HTTP handler; detach from its deadline.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{
		ws:       ws,
		cancel:   cancel,
		tenantID: middleware.TenantIDFromContext(r.Context()),
		userID:   userID,
		chanID:   chanID,
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected",
		"remote", r.RemoteAddr,
		"tenant_id", c.tenantID,
		"user_id", userID,
		"channel_id", chanID,
	)

	go h.session(ctx, c)
}

// session runs the read loop: one inbound frame in, one engine response out.
func (h *Hub) session(ctx context.Context, c *conn) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Content == "" {
			h.send(ctx, c, "error", errorPayload{Error: `expected {"content": "..."}`})
			continue
		}

		if h.processor == nil {
			h.send(ctx, c, "error", errorPayload{Error: "chat is not available"})
			continue
		}

		turnCtx, span := atotel.StartTurnSpan(ctx, c.tenantID, channelType)
		resp := h.processor.ProcessMessage(turnCtx, engine.MessageContext{
			TenantID:    c.tenantID,
			UserID:      c.userID,
			ChannelID:   c.chanID,
			ChannelType: channelType,
			Content:     in.Content,
			Metadata:    in.Metadata,
		})
		span.End()
		h.send(ctx, c, "response", resp)
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

func (h *Hub) send(ctx context.Context, c *conn, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws payload", "type", msgType, "error", err)
		return
	}
	frame, err := json.Marshal(Message{Type: msgType, Payload: data})
	if err != nil {
		slog.Error("marshal ws frame", "type", msgType, "error", err)
		return
	}
	if err := c.write(ctx, frame); err != nil {
		slog.Debug("websocket write failed", "error", err)
		go h.remove(c)
	}
}

// Broadcast sends a message to all connected clients of every tenant.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	h.broadcast(ctx, msg, func(*conn) bool { return true })
}

// BroadcastToTenant sends a message to the given tenant's clients only.
func (h *Hub) BroadcastToTenant(ctx context.Context, tenantID string, msg Message) {
	h.broadcast(ctx, msg, func(c *conn) bool { return c.tenantID == tenantID })
}

func (h *Hub) broadcast(ctx context.Context, msg Message, match func(*conn) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !match(c) {
			continue
		}
		if err := c.write(ctx, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "tenant_id", c.tenantID, "user_id", c.userID)
	}
}
