package service

import (
	"context"
	"time"

	"github.com/atendeco/atende/internal/domain"
	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/conversation"
	"github.com/atendeco/atende/internal/domain/tenant"
	"github.com/atendeco/atende/internal/port/messagequeue"
	"github.com/atendeco/atende/internal/port/store"
)

// Ensure mock types implement their interfaces at compile time.
var (
	_ store.ConversationStore = (*mockStore)(nil)
	_ messagequeue.Queue      = (*mockQueue)(nil)
)

// mockStore is an in-memory ConversationStore for service tests.
type mockStore struct {
	agents        map[string]*agent.Agent
	conversations map[string]*conversation.Conversation
	tenants       map[string]*tenant.Tenant

	expireCount int64
	expireErr   error
	createErr   error
	getErr      error
}

func newMockStore() *mockStore {
	return &mockStore{
		agents:        map[string]*agent.Agent{},
		conversations: map[string]*conversation.Conversation{},
		tenants:       map[string]*tenant.Tenant{},
	}
}

func (m *mockStore) CreateAgent(_ context.Context, a *agent.Agent) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *mockStore) GetAgent(_ context.Context, tenantID, id string) (*agent.Agent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.agents[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) ListAgents(_ context.Context, tenantID string) ([]agent.Agent, error) {
	var out []agent.Agent
	for _, a := range m.agents {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) ListAgentsByChannel(_ context.Context, tenantID, channelType string) ([]agent.Agent, error) {
	var out []agent.Agent
	for _, a := range m.agents {
		if a.TenantID == tenantID && a.IsActive && a.ServesChannel(channelType) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateAgent(_ context.Context, a *agent.Agent) error {
	if _, ok := m.agents[a.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *mockStore) DeleteAgent(_ context.Context, tenantID, id string) error {
	a, ok := m.agents[id]
	if !ok || a.TenantID != tenantID {
		return domain.ErrNotFound
	}
	delete(m.agents, id)
	return nil
}

func (m *mockStore) RecordAgentExecution(_ context.Context, tenantID, id string, success bool, latency time.Duration) error {
	a, ok := m.agents[id]
	if !ok || a.TenantID != tenantID {
		return domain.ErrNotFound
	}
	a.Stats.RecordExecution(success, latency)
	return nil
}

func (m *mockStore) CreateConversation(_ context.Context, c *conversation.Conversation) error {
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *mockStore) GetConversation(_ context.Context, tenantID, id string) (*conversation.Conversation, error) {
	c, ok := m.conversations[id]
	if !ok || c.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) FindActiveConversation(_ context.Context, tenantID, userID, channelID string) (*conversation.Conversation, error) {
	for _, c := range m.conversations {
		if c.TenantID == tenantID && c.UserID == userID && c.ChannelID == channelID && !c.Status.Terminal() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) UpdateConversation(_ context.Context, c *conversation.Conversation) error {
	cur, ok := m.conversations[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != c.Version {
		return domain.ErrConflict
	}
	cp := *c
	cp.Version++
	m.conversations[c.ID] = &cp
	return nil
}

func (m *mockStore) ExpireConversations(_ context.Context, _ time.Time) (int64, error) {
	if m.expireErr != nil {
		return 0, m.expireErr
	}
	return m.expireCount, nil
}

func (m *mockStore) CountConversationsByStatus(_ context.Context, tenantID string) (map[conversation.Status]int64, error) {
	out := map[conversation.Status]int64{}
	for _, c := range m.conversations {
		if c.TenantID == tenantID {
			out[c.Status]++
		}
	}
	return out, nil
}

func (m *mockStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	var out []tenant.Tenant
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	return out, nil
}

// mockQueue records published messages.
type mockQueue struct {
	published []struct {
		subject string
		data    []byte
	}
	publishErr error
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (m *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error       { return nil }
func (m *mockQueue) Close() error       { return nil }
func (m *mockQueue) IsConnected() bool  { return true }
