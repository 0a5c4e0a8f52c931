package http

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/tenant"
	"github.com/atendeco/atende/internal/engine"
	"github.com/atendeco/atende/internal/middleware"
	"github.com/atendeco/atende/internal/port/messagequeue"
	"github.com/atendeco/atende/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// MessageProcessor is the conversational surface invoked by channel
// endpoints. Satisfied by *engine.Engine.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg engine.MessageContext) *engine.Response
}

// AnalyzerHealth is the readiness probe of the intent analyzer client.
type AnalyzerHealth interface {
	Health(ctx context.Context) (bool, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Processor     MessageProcessor
	Agents        *service.AgentService
	Conversations *service.ConversationService
	Auth          *service.AuthService
	Pool          *pgxpool.Pool
	Queue         messagequeue.Queue
	Intent        AnalyzerHealth
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// HandleMessage handles POST /api/v1/messages. The tenant comes from the
// request context, never from the body.
func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	msg, ok := readJSON[engine.MessageContext](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if !requireField(w, msg.UserID, "user_id") ||
		!requireField(w, msg.ChannelID, "channel_id") ||
		!requireField(w, msg.ChannelType, "channel_type") ||
		!requireField(w, msg.Content, "content") {
		return
	}
	msg.TenantID = middleware.TenantIDFromContext(r.Context())

	resp := h.Processor.ProcessMessage(r.Context(), msg)
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// ListAgents handles GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Agents.List(r.Context(), middleware.TenantIDFromContext(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if agents == nil {
		agents = []agent.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// GetAgent handles GET /api/v1/agents/{id}
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.Agents.Get(r.Context(), middleware.TenantIDFromContext(r.Context()), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// CreateAgent handles POST /api/v1/agents
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.CreateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	a, err := h.Agents.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		writeDomainError(w, err, "agent creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateAgent handles PUT /api/v1/agents/{id}
func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.UpdateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	a, err := h.Agents.Update(r.Context(), middleware.TenantIDFromContext(r.Context()), urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAgent handles DELETE /api/v1/agents/{id}
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Agents.Delete(r.Context(), middleware.TenantIDFromContext(r.Context()), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Conversations
// ---------------------------------------------------------------------------

// GetConversation handles GET /api/v1/conversations/{id}
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.Conversations.Get(r.Context(), middleware.TenantIDFromContext(r.Context()), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// FindActiveConversation handles GET /api/v1/conversations/active?user_id=&channel_id=
func (h *Handlers) FindActiveConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	channelID := r.URL.Query().Get("channel_id")
	if !requireField(w, userID, "user_id") || !requireField(w, channelID, "channel_id") {
		return
	}
	c, err := h.Conversations.FindActive(r.Context(), middleware.TenantIDFromContext(r.Context()), userID, channelID)
	if err != nil {
		writeDomainError(w, err, "no ongoing conversation")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ConversationStats handles GET /api/v1/conversations/stats
func (h *Handlers) ConversationStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Conversations.CountByStatus(r.Context(), middleware.TenantIDFromContext(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// ---------------------------------------------------------------------------
// Tenants
// ---------------------------------------------------------------------------

// CreateTenant handles POST /api/v1/tenants
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.CreateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	t, err := h.Auth.CreateTenant(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "tenant creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTenants handles GET /api/v1/tenants
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Auth.ListTenants(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tenants == nil {
		tenants = []tenant.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

type healthStatus struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	NATS     string `json:"nats"`
	Intent   string `json:"intent,omitempty"`
}

// Health handles GET /health: liveness only, always 200.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready: checks the backing dependencies and
// answers 503 while any of them is down.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Postgres: "ok", NATS: "ok"}

	if h.Pool != nil {
		if err := h.Pool.Ping(r.Context()); err != nil {
			status.Status = "degraded"
			status.Postgres = "unreachable"
		}
	}
	if h.Queue != nil && !h.Queue.IsConnected() {
		status.Status = "degraded"
		status.NATS = "disconnected"
	}
	// The analyzer state is reported but does not fail readiness: the
	// engine answers with a fallback message while it is down.
	if h.Intent != nil {
		status.Intent = "ok"
		if ok, _ := h.Intent.Health(r.Context()); !ok {
			status.Intent = "unreachable"
		}
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
