package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atendeco/atende/internal/domain"
	"github.com/atendeco/atende/internal/domain/agent"
)

const agentColumns = `id, tenant_id, name, personality, channels, enabled_actions,
	conversation_config, ai_config, is_active, priority,
	conversations_handled, actions_executed, success_rate, avg_response_ms,
	version, created_at, updated_at`

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	var personalityJSON, configJSON, aiConfigJSON []byte
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &personalityJSON, &a.Channels, &a.EnabledActions,
		&configJSON, &aiConfigJSON, &a.IsActive, &a.Priority,
		&a.Stats.ConversationsHandled, &a.Stats.ActionsExecuted, &a.Stats.SuccessRate, &a.Stats.AvgResponseMS,
		&a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return agent.Agent{}, err
	}
	if personalityJSON != nil {
		_ = json.Unmarshal(personalityJSON, &a.Personality)
	}
	if configJSON != nil {
		_ = json.Unmarshal(configJSON, &a.ConversationConfig)
	}
	if aiConfigJSON != nil {
		_ = json.Unmarshal(aiConfigJSON, &a.AIConfig)
	}
	return a, nil
}

// CreateAgent inserts a new agent row.
func (s *Store) CreateAgent(ctx context.Context, a *agent.Agent) error {
	personalityJSON, err := json.Marshal(a.Personality)
	if err != nil {
		return fmt.Errorf("marshal personality: %w", err)
	}
	configJSON, err := json.Marshal(a.ConversationConfig)
	if err != nil {
		return fmt.Errorf("marshal conversation config: %w", err)
	}
	aiConfigJSON, err := json.Marshal(a.AIConfig)
	if err != nil {
		return fmt.Errorf("marshal ai config: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO agents (id, tenant_id, name, personality, channels, enabled_actions,
		   conversation_config, ai_config, is_active, priority, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.TenantID, a.Name, personalityJSON, pgTextArray(a.Channels), pgTextArray(a.EnabledActions),
		configJSON, aiConfigJSON, a.IsActive, a.Priority, a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// GetAgent returns one agent scoped by tenant.
func (s *Store) GetAgent(ctx context.Context, tenantID, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1 AND tenant_id = $2`, id, tenantID)

	a, err := scanAgent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get agent %s", id)
	}
	return &a, nil
}

// ListAgents returns all agents for a tenant, newest first.
func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// ListAgentsByChannel returns active agents serving the channel type,
// ordered by priority descending then ID ascending so selection is
// deterministic under equal priorities.
func (s *Store) ListAgentsByChannel(ctx context.Context, tenantID, channelType string) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE tenant_id = $1 AND is_active AND $2 = ANY(channels)
		 ORDER BY priority DESC, id ASC`, tenantID, channelType)
	if err != nil {
		return nil, fmt.Errorf("list agents by channel: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgent persists agent changes with an optimistic version check.
func (s *Store) UpdateAgent(ctx context.Context, a *agent.Agent) error {
	personalityJSON, err := json.Marshal(a.Personality)
	if err != nil {
		return fmt.Errorf("marshal personality: %w", err)
	}
	configJSON, err := json.Marshal(a.ConversationConfig)
	if err != nil {
		return fmt.Errorf("marshal conversation config: %w", err)
	}
	aiConfigJSON, err := json.Marshal(a.AIConfig)
	if err != nil {
		return fmt.Errorf("marshal ai config: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET name = $3, personality = $4, channels = $5, enabled_actions = $6,
		   conversation_config = $7, ai_config = $8, is_active = $9, priority = $10,
		   version = version + 1, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND version = $11`,
		a.ID, a.TenantID, a.Name, personalityJSON, pgTextArray(a.Channels), pgTextArray(a.EnabledActions),
		configJSON, aiConfigJSON, a.IsActive, a.Priority, a.Version)
	if err != nil {
		return fmt.Errorf("update agent %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update agent %s: %w", a.ID, domain.ErrConflict)
	}
	a.Version++
	return nil
}

// DeleteAgent removes an agent.
func (s *Store) DeleteAgent(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM agents WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	return execExpectOne(tag, err, "delete agent %s", id)
}

// RecordAgentExecution merges one execution outcome into the agent's stats
// in a single UPDATE. All right-hand sides read the pre-update values, so
// the running average and success rate stay consistent under concurrency.
func (s *Store) RecordAgentExecution(ctx context.Context, tenantID, id string, success bool, latency time.Duration) error {
	ms := float64(latency.Milliseconds())
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET
		   conversations_handled = conversations_handled + 1,
		   actions_executed = actions_executed + CASE WHEN $3 THEN 1 ELSE 0 END,
		   avg_response_ms = avg_response_ms + ($4 - avg_response_ms) / (conversations_handled + 1),
		   success_rate = (actions_executed + CASE WHEN $3 THEN 1 ELSE 0 END)::float8 / (conversations_handled + 1),
		   updated_at = now()
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, success, ms)
	return execExpectOne(tag, err, "record execution for agent %s", id)
}
