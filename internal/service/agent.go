// Package service implements the application services on top of the store
// port: agent management, conversation queries and tenant authentication.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/port/store"
)

// AgentService handles agent lifecycle for a tenant.
type AgentService struct {
	store store.ConversationStore
}

// NewAgentService creates a new AgentService.
func NewAgentService(st store.ConversationStore) *AgentService {
	return &AgentService{store: st}
}

// List returns all agents for a tenant.
func (s *AgentService) List(ctx context.Context, tenantID string) ([]agent.Agent, error) {
	return s.store.ListAgents(ctx, tenantID)
}

// Get returns an agent by ID.
func (s *AgentService) Get(ctx context.Context, tenantID, id string) (*agent.Agent, error) {
	return s.store.GetAgent(ctx, tenantID, id)
}

// Create validates the request and persists a new agent. New agents start
// active with zeroed stats.
func (s *AgentService) Create(ctx context.Context, tenantID string, req *agent.CreateRequest) (*agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	now := time.Now().UTC()
	a := &agent.Agent{
		ID:                 uuid.New().String(),
		TenantID:           tenantID,
		Name:               req.Name,
		Personality:        req.Personality,
		Channels:           req.Channels,
		EnabledActions:     req.EnabledActions,
		ConversationConfig: req.ConversationConfig,
		AIConfig:           req.AIConfig,
		IsActive:           true,
		Priority:           req.Priority,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// Update applies the non-nil fields of req to the agent and persists it.
func (s *AgentService) Update(ctx context.Context, tenantID, id string, req *agent.UpdateRequest) (*agent.Agent, error) {
	a, err := s.store.GetAgent(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Personality != nil {
		a.Personality = *req.Personality
	}
	if req.Channels != nil {
		a.Channels = req.Channels
	}
	if req.EnabledActions != nil {
		a.EnabledActions = req.EnabledActions
	}
	if req.ConversationConfig != nil {
		a.ConversationConfig = *req.ConversationConfig
	}
	if req.AIConfig != nil {
		a.AIConfig = req.AIConfig
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if req.Priority != nil {
		a.Priority = *req.Priority
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return a, nil
}

// Delete removes an agent.
func (s *AgentService) Delete(ctx context.Context, tenantID, id string) error {
	return s.store.DeleteAgent(ctx, tenantID, id)
}
