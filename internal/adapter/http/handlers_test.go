package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	atendehttp "github.com/atendeco/atende/internal/adapter/http"
	"github.com/atendeco/atende/internal/domain"
	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/conversation"
	"github.com/atendeco/atende/internal/engine"
	"github.com/atendeco/atende/internal/middleware"
	"github.com/atendeco/atende/internal/port/store"
	"github.com/atendeco/atende/internal/service"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

// stubStore implements the subset of store.ConversationStore the HTTP
// handlers reach through the services. Unimplemented methods panic via
// the embedded nil interface.
type stubStore struct {
	store.ConversationStore

	agents        map[string]agent.Agent
	conversations map[string]conversation.Conversation
}

func newStubStore() *stubStore {
	return &stubStore{
		agents:        make(map[string]agent.Agent),
		conversations: make(map[string]conversation.Conversation),
	}
}

func (s *stubStore) CreateAgent(_ context.Context, a *agent.Agent) error {
	s.agents[a.ID] = *a
	return nil
}

func (s *stubStore) GetAgent(_ context.Context, tenantID, id string) (*agent.Agent, error) {
	a, ok := s.agents[id]
	if !ok || a.TenantID != tenantID {
		return nil, fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (s *stubStore) ListAgents(_ context.Context, tenantID string) ([]agent.Agent, error) {
	var out []agent.Agent
	for _, a := range s.agents {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateAgent(_ context.Context, a *agent.Agent) error {
	cur, ok := s.agents[a.ID]
	if !ok || cur.TenantID != a.TenantID {
		return fmt.Errorf("agent %s: %w", a.ID, domain.ErrNotFound)
	}
	a.Version = cur.Version + 1
	s.agents[a.ID] = *a
	return nil
}

func (s *stubStore) DeleteAgent(_ context.Context, tenantID, id string) error {
	if a, ok := s.agents[id]; !ok || a.TenantID != tenantID {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	delete(s.agents, id)
	return nil
}

func (s *stubStore) GetConversation(_ context.Context, tenantID, id string) (*conversation.Conversation, error) {
	c, ok := s.conversations[id]
	if !ok || c.TenantID != tenantID {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (s *stubStore) FindActiveConversation(_ context.Context, tenantID, userID, channelID string) (*conversation.Conversation, error) {
	for _, c := range s.conversations {
		if c.TenantID == tenantID && c.UserID == userID && c.ChannelID == channelID && !c.Status.Terminal() {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("active conversation for %s: %w", userID, domain.ErrNotFound)
}

func (s *stubStore) CountConversationsByStatus(_ context.Context, tenantID string) (map[conversation.Status]int64, error) {
	counts := make(map[conversation.Status]int64)
	for _, c := range s.conversations {
		if c.TenantID == tenantID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

// fakeProcessor records the last message and replies with a fixed response.
type fakeProcessor struct {
	last engine.MessageContext
	resp *engine.Response
}

func (f *fakeProcessor) ProcessMessage(_ context.Context, msg engine.MessageContext) *engine.Response {
	f.last = msg
	return f.resp
}

func newTestRouter(t *testing.T) (chi.Router, *stubStore, *fakeProcessor) {
	t.Helper()

	st := newStubStore()
	proc := &fakeProcessor{resp: &engine.Response{Message: "Olá!", RequiresInput: true, ConversationID: "conv-1"}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &atendehttp.Handlers{
		Processor:     proc,
		Agents:        service.NewAgentService(st),
		Conversations: service.NewConversationService(st, nil, log),
		Auth:          service.NewAuthService(st),
	}

	r := chi.NewRouter()
	r.Use(middleware.TenantID)
	atendehttp.MountRoutes(r, h)
	return r, st, proc
}

func doRequest(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Tenant-ID", testTenant)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleMessage(t *testing.T) {
	r, _, proc := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/messages", map[string]any{
		"user_id":      "user-1",
		"channel_id":   "chat-42",
		"channel_type": "chat",
		"content":      "Oi, preciso de ajuda",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp engine.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Olá!" || !resp.RequiresInput {
		t.Errorf("unexpected response: %+v", resp)
	}
	if proc.last.TenantID != testTenant {
		t.Errorf("tenant from header not applied, got %q", proc.last.TenantID)
	}
	if proc.last.Content != "Oi, preciso de ajuda" {
		t.Errorf("content = %q", proc.last.Content)
	}
}

func TestHandleMessageTenantFromHeaderOnly(t *testing.T) {
	r, _, proc := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/messages", map[string]any{
		"tenant_id":    "spoofed-tenant",
		"user_id":      "user-1",
		"channel_id":   "chat-42",
		"channel_type": "chat",
		"content":      "oi",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if proc.last.TenantID != testTenant {
		t.Errorf("body tenant_id must be ignored, got %q", proc.last.TenantID)
	}
}

func TestHandleMessageMissingFields(t *testing.T) {
	r, _, _ := newTestRouter(t)

	cases := []map[string]any{
		{"channel_id": "c", "channel_type": "chat", "content": "x"},
		{"user_id": "u", "channel_type": "chat", "content": "x"},
		{"user_id": "u", "channel_id": "c", "content": "x"},
		{"user_id": "u", "channel_id": "c", "channel_type": "chat"},
	}
	for i, body := range cases {
		rec := doRequest(t, r, http.MethodPost, "/api/v1/messages", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, rec.Code)
		}
	}
}

func TestAgentCRUD(t *testing.T) {
	r, _, _ := newTestRouter(t)

	create := agent.CreateRequest{
		Name:           "Suporte N1",
		Channels:       []string{"whatsapp", "chat"},
		EnabledActions: []string{"create_ticket"},
	}
	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created agent: %v", err)
	}
	if created.ID == "" || created.TenantID != testTenant {
		t.Fatalf("unexpected created agent: %+v", created)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/agents/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/agents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d agents, want 1", len(listed))
	}

	newName := "Suporte N2"
	rec = doRequest(t, r, http.MethodPut, "/api/v1/agents/"+created.ID, agent.UpdateRequest{Name: &newName})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated agent: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("name = %q, want %q", updated.Name, newName)
	}

	rec = doRequest(t, r, http.MethodDelete, "/api/v1/agents/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(t, r, http.MethodGet, "/api/v1/agents/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestCreateAgentInvalid(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents", agent.CreateRequest{Name: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "name is required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetConversation(t *testing.T) {
	r, st, _ := newTestRouter(t)

	st.conversations["conv-1"] = conversation.Conversation{
		ID:       "conv-1",
		TenantID: testTenant,
		UserID:   "user-1",
		Status:   conversation.StatusActive,
	}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/conversations/conv-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/conversations/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing conversation status = %d", rec.Code)
	}
}

func TestFindActiveConversation(t *testing.T) {
	r, st, _ := newTestRouter(t)

	st.conversations["conv-1"] = conversation.Conversation{
		ID:        "conv-1",
		TenantID:  testTenant,
		UserID:    "user-1",
		ChannelID: "chat-42",
		Status:    conversation.StatusWaitingInput,
	}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/conversations/active?user_id=user-1&channel_id=chat-42", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/conversations/active?user_id=user-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing channel_id status = %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/conversations/active?user_id=nobody&channel_id=chat-42", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no active conversation status = %d", rec.Code)
	}
}

func TestConversationStats(t *testing.T) {
	r, st, _ := newTestRouter(t)

	st.conversations["c1"] = conversation.Conversation{ID: "c1", TenantID: testTenant, Status: conversation.StatusActive}
	st.conversations["c2"] = conversation.Conversation{ID: "c2", TenantID: testTenant, Status: conversation.StatusCompleted}
	st.conversations["c3"] = conversation.Conversation{ID: "c3", TenantID: testTenant, Status: conversation.StatusCompleted}
	st.conversations["other"] = conversation.Conversation{ID: "other", TenantID: "other-tenant", Status: conversation.StatusActive}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/conversations/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var counts map[conversation.Status]int64
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if counts[conversation.StatusActive] != 1 || counts[conversation.StatusCompleted] != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestCreateTenantInvalid(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/tenants", map[string]string{
		"name":    "Acme",
		"api_key": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	// With no pool and no queue wired, readiness reports ok.
	rec = doRequest(t, r, http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}
}
