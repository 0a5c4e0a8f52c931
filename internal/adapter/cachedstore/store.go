// Package cachedstore decorates the conversation store with an in-process
// cache for agent reads, which sit on the hot path of every message.
package cachedstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/port/cache"
	"github.com/atendeco/atende/internal/port/store"
)

// Store wraps an inner ConversationStore and caches agent lookups.
// Conversation and tenant operations pass straight through. Writes
// invalidate the affected keys, so staleness is bounded by the TTL only
// for writes performed by another process.
type Store struct {
	store.ConversationStore
	cache cache.Cache
	ttl   time.Duration
}

var _ store.ConversationStore = (*Store)(nil)

// New wraps inner with agent-read caching using the given TTL.
func New(inner store.ConversationStore, c cache.Cache, ttl time.Duration) *Store {
	return &Store{ConversationStore: inner, cache: c, ttl: ttl}
}

func agentKey(tenantID, id string) string {
	return "agent:" + tenantID + ":" + id
}

func channelKey(tenantID, channelType string) string {
	return "agents:" + tenantID + ":" + channelType
}

// GetAgent returns the cached agent when present, falling back to the
// inner store on a miss.
func (s *Store) GetAgent(ctx context.Context, tenantID, id string) (*agent.Agent, error) {
	key := agentKey(tenantID, id)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var a agent.Agent
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.ConversationStore.GetAgent(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(a); err == nil {
		_ = s.cache.Set(ctx, key, data, s.ttl)
	}
	return a, nil
}

// ListAgentsByChannel returns the cached agent list for the channel when
// present, falling back to the inner store on a miss.
func (s *Store) ListAgentsByChannel(ctx context.Context, tenantID, channelType string) ([]agent.Agent, error) {
	key := channelKey(tenantID, channelType)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var agents []agent.Agent
		if json.Unmarshal(data, &agents) == nil {
			return agents, nil
		}
	}

	agents, err := s.ConversationStore.ListAgentsByChannel(ctx, tenantID, channelType)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(agents); err == nil {
		_ = s.cache.Set(ctx, key, data, s.ttl)
	}
	return agents, nil
}

// CreateAgent writes through and invalidates the channel lists the new
// agent appears in.
func (s *Store) CreateAgent(ctx context.Context, a *agent.Agent) error {
	if err := s.ConversationStore.CreateAgent(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx, a)
	return nil
}

// UpdateAgent writes through and invalidates the agent and its channel
// lists.
func (s *Store) UpdateAgent(ctx context.Context, a *agent.Agent) error {
	if err := s.ConversationStore.UpdateAgent(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx, a)
	return nil
}

// DeleteAgent deletes through and drops the agent key. Channel lists for
// the deleted agent expire by TTL since its channels are no longer known.
func (s *Store) DeleteAgent(ctx context.Context, tenantID, id string) error {
	if err := s.ConversationStore.DeleteAgent(ctx, tenantID, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, agentKey(tenantID, id))
	return nil
}

// RecordAgentExecution writes through and drops the cached agent so stats
// reads stay fresh.
func (s *Store) RecordAgentExecution(ctx context.Context, tenantID, id string, success bool, latency time.Duration) error {
	if err := s.ConversationStore.RecordAgentExecution(ctx, tenantID, id, success, latency); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, agentKey(tenantID, id))
	return nil
}

func (s *Store) invalidate(ctx context.Context, a *agent.Agent) {
	_ = s.cache.Delete(ctx, agentKey(a.TenantID, a.ID))
	for _, ch := range a.Channels {
		_ = s.cache.Delete(ctx, channelKey(a.TenantID, ch))
	}
}
