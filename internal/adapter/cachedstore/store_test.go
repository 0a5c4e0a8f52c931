package cachedstore

import (
	"context"
	"testing"
	"time"

	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/port/store"
)

// stubStore implements only the agent reads; unused methods panic via the
// nil embedded interface, which would flag an unexpected passthrough.
type stubStore struct {
	store.ConversationStore
	agents    map[string]*agent.Agent
	getCalls  int
	listCalls int
}

func (s *stubStore) GetAgent(_ context.Context, tenantID, id string) (*agent.Agent, error) {
	s.getCalls++
	a := *s.agents[id]
	a.TenantID = tenantID
	return &a, nil
}

func (s *stubStore) ListAgentsByChannel(_ context.Context, tenantID, _ string) ([]agent.Agent, error) {
	s.listCalls++
	var out []agent.Agent
	for _, a := range s.agents {
		cp := *a
		cp.TenantID = tenantID
		out = append(out, cp)
	}
	return out, nil
}

func (s *stubStore) UpdateAgent(context.Context, *agent.Agent) error { return nil }

// mapCache is a trivial in-memory cache.Cache without TTL handling.
type mapCache struct {
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestCachedGetAgent(t *testing.T) {
	inner := &stubStore{agents: map[string]*agent.Agent{
		"a1": {ID: "a1", Name: "Suporte"},
	}}
	c := newMapCache()
	s := New(inner, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		a, err := s.GetAgent(ctx, "t1", "a1")
		if err != nil {
			t.Fatal(err)
		}
		if a.Name != "Suporte" {
			t.Errorf("expected Suporte, got %s", a.Name)
		}
	}

	if inner.getCalls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.getCalls)
	}
}

func TestCachedListAgentsByChannel(t *testing.T) {
	inner := &stubStore{agents: map[string]*agent.Agent{
		"a1": {ID: "a1", Name: "Suporte", Channels: []string{"whatsapp"}},
	}}
	c := newMapCache()
	s := New(inner, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		agents, err := s.ListAgentsByChannel(ctx, "t1", "whatsapp")
		if err != nil {
			t.Fatal(err)
		}
		if len(agents) != 1 {
			t.Fatalf("expected 1 agent, got %d", len(agents))
		}
	}

	if inner.listCalls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.listCalls)
	}
}

func TestUpdateInvalidates(t *testing.T) {
	inner := &stubStore{agents: map[string]*agent.Agent{
		"a1": {ID: "a1", Name: "Suporte", Channels: []string{"whatsapp"}},
	}}
	c := newMapCache()
	s := New(inner, c, time.Minute)
	ctx := context.Background()

	if _, err := s.GetAgent(ctx, "t1", "a1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListAgentsByChannel(ctx, "t1", "whatsapp"); err != nil {
		t.Fatal(err)
	}

	updated := &agent.Agent{ID: "a1", TenantID: "t1", Name: "Suporte N2", Channels: []string{"whatsapp"}}
	inner.agents["a1"] = updated
	if err := s.UpdateAgent(ctx, updated); err != nil {
		t.Fatal(err)
	}

	a, err := s.GetAgent(ctx, "t1", "a1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Suporte N2" {
		t.Errorf("stale agent after update: %s", a.Name)
	}
	if inner.getCalls != 2 {
		t.Errorf("expected cache miss after invalidation, inner calls = %d", inner.getCalls)
	}

	if _, err := s.ListAgentsByChannel(ctx, "t1", "whatsapp"); err != nil {
		t.Fatal(err)
	}
	if inner.listCalls != 2 {
		t.Errorf("expected list refetch after invalidation, inner calls = %d", inner.listCalls)
	}
}
