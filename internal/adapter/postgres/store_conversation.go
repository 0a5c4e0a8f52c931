package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atendeco/atende/internal/domain"
	"github.com/atendeco/atende/internal/domain/conversation"
)

const conversationColumns = `id, tenant_id, agent_id, user_id, channel_id, channel_type,
	status, current_step, intended_action, action_params, history, context,
	last_message_at, expires_at, version, created_at, updated_at`

func scanConversation(row scannable) (conversation.Conversation, error) {
	var c conversation.Conversation
	var paramsJSON, historyJSON, contextJSON []byte
	err := row.Scan(
		&c.ID, &c.TenantID, &c.AgentID, &c.UserID, &c.ChannelID, &c.ChannelType,
		&c.Status, &c.CurrentStep, &c.IntendedAction, &paramsJSON, &historyJSON, &contextJSON,
		&c.LastMessageAt, &c.ExpiresAt, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if paramsJSON != nil {
		_ = json.Unmarshal(paramsJSON, &c.ActionParams)
	}
	if historyJSON != nil {
		_ = json.Unmarshal(historyJSON, &c.History)
	}
	if contextJSON != nil {
		_ = json.Unmarshal(contextJSON, &c.Context)
	}
	return c, nil
}

func marshalConversation(c *conversation.Conversation) (paramsJSON, historyJSON, contextJSON []byte, err error) {
	if paramsJSON, err = json.Marshal(c.ActionParams); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal action params: %w", err)
	}
	if historyJSON, err = json.Marshal(c.History); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal history: %w", err)
	}
	if contextJSON, err = json.Marshal(c.Context); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal context: %w", err)
	}
	return paramsJSON, historyJSON, contextJSON, nil
}

// CreateConversation inserts a new conversation. The partial unique index
// on (tenant_id, user_id, channel_id) over ongoing statuses rejects a
// second concurrent conversation for the same key.
func (s *Store) CreateConversation(ctx context.Context, c *conversation.Conversation) error {
	paramsJSON, historyJSON, contextJSON, err := marshalConversation(c)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (id, tenant_id, agent_id, user_id, channel_id, channel_type,
		   status, current_step, intended_action, action_params, history, context,
		   last_message_at, expires_at, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.TenantID, c.AgentID, c.UserID, c.ChannelID, c.ChannelType,
		c.Status, c.CurrentStep, c.IntendedAction, paramsJSON, historyJSON, contextJSON,
		c.LastMessageAt, c.ExpiresAt, c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create conversation: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetConversation returns one conversation scoped by tenant.
func (s *Store) GetConversation(ctx context.Context, tenantID, id string) (*conversation.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1 AND tenant_id = $2`, id, tenantID)

	c, err := scanConversation(row)
	if err != nil {
		return nil, notFoundWrap(err, "get conversation %s", id)
	}
	return &c, nil
}

// FindActiveConversation returns the single ongoing, unexpired conversation
// for the (tenant, user, channel) key, or domain.ErrNotFound.
func (s *Store) FindActiveConversation(ctx context.Context, tenantID, userID, channelID string) (*conversation.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE tenant_id = $1 AND user_id = $2 AND channel_id = $3
		   AND status IN ('active', 'waiting_input', 'waiting_confirmation')`,
		tenantID, userID, channelID)

	c, err := scanConversation(row)
	if err != nil {
		return nil, notFoundWrap(err, "find active conversation for user %s", userID)
	}
	return &c, nil
}

// UpdateConversation persists the conversation with an optimistic version
// check; domain.ErrConflict signals a lost race.
func (s *Store) UpdateConversation(ctx context.Context, c *conversation.Conversation) error {
	paramsJSON, historyJSON, contextJSON, err := marshalConversation(c)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET status = $3, current_step = $4, intended_action = $5,
		   action_params = $6, history = $7, context = $8,
		   last_message_at = $9, expires_at = $10,
		   version = version + 1, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND version = $11`,
		c.ID, c.TenantID, c.Status, c.CurrentStep, c.IntendedAction,
		paramsJSON, historyJSON, contextJSON,
		c.LastMessageAt, c.ExpiresAt, c.Version)
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update conversation %s: %w", c.ID, domain.ErrConflict)
	}
	c.Version++
	return nil
}

// ExpireConversations marks past-expiry ongoing conversations as expired
// and returns how many were reaped.
func (s *Store) ExpireConversations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET status = 'expired', version = version + 1, updated_at = now()
		 WHERE status IN ('active', 'waiting_input', 'waiting_confirmation')
		   AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountConversationsByStatus returns conversation counts per status for a
// tenant.
func (s *Store) CountConversationsByStatus(ctx context.Context, tenantID string) (map[conversation.Status]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, count(*) FROM conversations WHERE tenant_id = $1 GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}
	defer rows.Close()

	counts := map[conversation.Status]int64{}
	for rows.Next() {
		var status conversation.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
