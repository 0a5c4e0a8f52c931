// Package conversation defines the Conversation aggregate: the persisted
// dialogue state for one (tenant, user, channel) interaction with one agent.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a conversation.
type Status string

const (
	StatusActive              Status = "active"
	StatusWaitingInput        Status = "waiting_input"
	StatusWaitingConfirmation Status = "waiting_confirmation"
	StatusCompleted           Status = "completed"
	StatusEscalated           Status = "escalated"
	StatusExpired             Status = "expired"
)

// OngoingStatuses are the statuses that count as "active" for the
// single-active-conversation lookup. At most one conversation per
// (tenant, user, channel) may hold any of them.
var OngoingStatuses = []Status{StatusActive, StatusWaitingInput, StatusWaitingConfirmation}

// Terminal reports whether the status ends the conversation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEscalated || s == StatusExpired
}

// Step identifies the current position in the dialogue state machine.
type Step string

const (
	StepGreeting             Step = "greeting"
	StepUnderstandingIntent  Step = "understanding_intent"
	StepCollectingParameters Step = "collecting_parameters"
	StepConfirmation         Step = "confirmation"
	StepExecutingAction      Step = "executing_action"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is a single turn in the conversation history.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AttemptCountKey is the reserved actionParams key holding the bounded
// retry counter for parameter collection.
const AttemptCountKey = "_attempt_count"

// DefaultTTL is how long a conversation stays active after the last message.
const DefaultTTL = 24 * time.Hour

// DefaultStuckThreshold is the attempt count at which a conversation is
// considered stuck.
const DefaultStuckThreshold = 5

// Conversation is the dialogue state for one user on one channel.
// Identity fields are immutable once created.
type Conversation struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	AgentID        string         `json:"agent_id"`
	UserID         string         `json:"user_id"`
	ChannelID      string         `json:"channel_id"`
	ChannelType    string         `json:"channel_type"`
	Status         Status         `json:"status"`
	CurrentStep    Step           `json:"current_step"`
	IntendedAction string         `json:"intended_action,omitempty"`
	ActionParams   map[string]any `json:"action_params"`
	History        []Message      `json:"history"`
	Context        map[string]any `json:"context,omitempty"`
	LastMessageAt  time.Time      `json:"last_message_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// New creates an active conversation at the greeting step.
func New(tenantID, agentID, userID, channelID, channelType string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		AgentID:       agentID,
		UserID:        userID,
		ChannelID:     channelID,
		ChannelType:   channelType,
		Status:        StatusActive,
		CurrentStep:   StepGreeting,
		ActionParams:  map[string]any{},
		Context:       map[string]any{},
		LastMessageAt: now,
		ExpiresAt:     now.Add(DefaultTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddMessage appends a turn to the history and refreshes the activity
// window. History is append-only; entries are never edited or removed.
func (c *Conversation) AddMessage(role Role, content string, metadata map[string]any) Message {
	now := time.Now().UTC()
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  metadata,
	}
	c.History = append(c.History, msg)
	c.LastMessageAt = now
	if !c.Status.Terminal() {
		c.ExpiresAt = now.Add(DefaultTTL)
	}
	return msg
}

// LastUserMessage returns the most recent user turn.
func (c *Conversation) LastUserMessage() (Message, bool) {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleUser {
			return c.History[i], true
		}
	}
	return Message{}, false
}

// Turns returns the number of recorded turns.
func (c *Conversation) Turns() int { return len(c.History) }

// MergeParams merges extracted values into actionParams. Existing keys are
// never overwritten with empty values, and keys are never deleted here;
// only Restart clears the map.
func (c *Conversation) MergeParams(params map[string]any) {
	if c.ActionParams == nil {
		c.ActionParams = map[string]any{}
	}
	for k, v := range params {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		c.ActionParams[k] = v
	}
}

// Param returns the named action parameter.
func (c *Conversation) Param(key string) (any, bool) {
	v, ok := c.ActionParams[key]
	return v, ok
}

// AttemptCount returns the bounded retry counter stored under the
// reserved key. JSON round-trips turn ints into float64, so both are read.
func (c *Conversation) AttemptCount() int {
	switch v := c.ActionParams[AttemptCountKey].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// IncrementAttempts bumps the retry counter and returns the new value.
func (c *Conversation) IncrementAttempts() int {
	n := c.AttemptCount() + 1
	if c.ActionParams == nil {
		c.ActionParams = map[string]any{}
	}
	c.ActionParams[AttemptCountKey] = n
	return n
}

// ResetAttempts zeroes the retry counter.
func (c *Conversation) ResetAttempts() {
	if c.ActionParams != nil {
		c.ActionParams[AttemptCountKey] = 0
	}
}

// IsStuck reports whether the retry counter reached the threshold.
func (c *Conversation) IsStuck(threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}
	return c.AttemptCount() >= threshold
}

// IsExpired reports whether the activity window has passed.
func (c *Conversation) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Restart clears all collected parameters (the only wholesale reset
// allowed) and returns to parameter collection. Used by the "edit" choice
// in confirmation.
func (c *Conversation) Restart() {
	c.ActionParams = map[string]any{}
	c.CurrentStep = StepCollectingParameters
	c.Status = StatusWaitingInput
}

// Complete terminates the conversation successfully.
func (c *Conversation) Complete() {
	c.Status = StatusCompleted
}

// Escalate terminates the conversation with a handoff to a human.
func (c *Conversation) Escalate() {
	c.Status = StatusEscalated
}

// Expire marks the conversation as reaped by the expiry sweep.
func (c *Conversation) Expire() {
	c.Status = StatusExpired
}

// CleanParams returns actionParams without reserved keys, for building
// the action request handed to the executor.
func (c *Conversation) CleanParams() map[string]any {
	out := make(map[string]any, len(c.ActionParams))
	for k, v := range c.ActionParams {
		if k == AttemptCountKey {
			continue
		}
		out[k] = v
	}
	return out
}
