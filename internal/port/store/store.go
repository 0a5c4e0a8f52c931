// Package store defines the conversation store port (interface).
package store

import (
	"context"
	"time"

	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/conversation"
	"github.com/atendeco/atende/internal/domain/tenant"
)

// ConversationStore is the port interface for persisting agents,
// conversations and tenants. Implementations must scope every query by
// tenant ID.
type ConversationStore interface {
	// Agents
	CreateAgent(ctx context.Context, a *agent.Agent) error
	GetAgent(ctx context.Context, tenantID, id string) (*agent.Agent, error)
	ListAgents(ctx context.Context, tenantID string) ([]agent.Agent, error)
	// ListAgentsByChannel returns active agents serving the channel type,
	// ordered by priority descending then ID ascending.
	ListAgentsByChannel(ctx context.Context, tenantID, channelType string) ([]agent.Agent, error)
	UpdateAgent(ctx context.Context, a *agent.Agent) error
	DeleteAgent(ctx context.Context, tenantID, id string) error
	// RecordAgentExecution merges one execution outcome into the agent's
	// stats atomically (increment/merge in the store, not a blind
	// read-modify-write), so concurrent completions never lose updates.
	RecordAgentExecution(ctx context.Context, tenantID, id string, success bool, latency time.Duration) error

	// Conversations
	CreateConversation(ctx context.Context, c *conversation.Conversation) error
	GetConversation(ctx context.Context, tenantID, id string) (*conversation.Conversation, error)
	// FindActiveConversation returns the single ongoing, unexpired
	// conversation for the (tenant, user, channel) key, or
	// domain.ErrNotFound when none exists.
	FindActiveConversation(ctx context.Context, tenantID, userID, channelID string) (*conversation.Conversation, error)
	// UpdateConversation persists the conversation with an optimistic
	// version check; domain.ErrConflict signals a lost race.
	UpdateConversation(ctx context.Context, c *conversation.Conversation) error
	// ExpireConversations marks past-expiry ongoing conversations as
	// expired and returns how many were reaped.
	ExpireConversations(ctx context.Context, now time.Time) (int64, error)
	CountConversationsByStatus(ctx context.Context, tenantID string) (map[conversation.Status]int64, error)

	// Tenants
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
}
