// Package agent defines the Agent domain entity: a configured persona that
// runs automated conversations on specific channels and triggers a bounded
// set of action types.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/atendeco/atende/internal/domain"
)

// Personality holds the tone and canned texts an agent speaks with.
type Personality struct {
	Tone     string `json:"tone"`
	Language string `json:"language"`
	Greeting string `json:"greeting"`
	Fallback string `json:"fallback"`
}

// ConversationConfig holds the dialogue policy for an agent.
type ConversationConfig struct {
	UseMenus            bool     `json:"use_menus"`
	MaxTurns            int      `json:"max_turns"`
	RequireConfirmation bool     `json:"require_confirmation"`
	EscalationKeywords  []string `json:"escalation_keywords"`
}

// Stats holds per-agent runtime counters. They are mutated only through
// the store's atomic merge, never overwritten wholesale.
type Stats struct {
	ConversationsHandled int64   `json:"conversations_handled"`
	ActionsExecuted      int64   `json:"actions_executed"`
	SuccessRate          float64 `json:"success_rate"`
	AvgResponseMS        float64 `json:"avg_response_ms"`
}

// Agent represents a conversational agent instance.
type Agent struct {
	ID                 string             `json:"id"`
	TenantID           string             `json:"tenant_id"`
	Name               string             `json:"name"`
	Personality        Personality        `json:"personality"`
	Channels           []string           `json:"channels"`
	EnabledActions     []string           `json:"enabled_actions"`
	ConversationConfig ConversationConfig `json:"conversation_config"`
	AIConfig           map[string]string  `json:"ai_config,omitempty"` // opaque model/extraction hints, passed through to executors
	IsActive           bool               `json:"is_active"`
	Priority           int                `json:"priority"`
	Stats              Stats              `json:"stats"`
	Version            int                `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ServesChannel reports whether the agent is configured for the given channel type.
func (a *Agent) ServesChannel(channelType string) bool {
	for _, c := range a.Channels {
		if c == channelType {
			return true
		}
	}
	return false
}

// ActionEnabled reports whether the agent may execute the given action type.
func (a *Agent) ActionEnabled(actionType string) bool {
	for _, t := range a.EnabledActions {
		if t == actionType {
			return true
		}
	}
	return false
}

// ShouldEscalate reports whether the raw text contains any escalation
// keyword, case-insensitively. Pure; evaluated before every dialogue step.
func (a *Agent) ShouldEscalate(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range a.ConversationConfig.EscalationKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MatchAction resolves a free-form intent label against the enabled action
// types. A match is a substring hit in either direction, so "ticket" matches
// "create_ticket" and "create_ticket_urgent" matches "create_ticket".
func (a *Agent) MatchAction(intent string) (string, bool) {
	intent = strings.ToLower(strings.TrimSpace(intent))
	if intent == "" {
		return "", false
	}
	for _, t := range a.EnabledActions {
		lt := strings.ToLower(t)
		if strings.Contains(lt, intent) || strings.Contains(intent, lt) {
			return t, true
		}
	}
	return "", false
}

// RecordExecution merges one execution outcome into the stats: a running
// average for latency and a recomputed success rate. The authoritative
// update happens in the store; this keeps the in-memory copy consistent.
func (s *Stats) RecordExecution(success bool, latency time.Duration) {
	s.ConversationsHandled++
	if success {
		s.ActionsExecuted++
	}
	ms := float64(latency.Milliseconds())
	s.AvgResponseMS += (ms - s.AvgResponseMS) / float64(s.ConversationsHandled)
	s.SuccessRate = float64(s.ActionsExecuted) / float64(s.ConversationsHandled)
}

// CreateRequest is the request body for creating an agent.
type CreateRequest struct {
	Name               string             `json:"name"`
	Personality        Personality        `json:"personality"`
	Channels           []string           `json:"channels"`
	EnabledActions     []string           `json:"enabled_actions"`
	ConversationConfig ConversationConfig `json:"conversation_config"`
	AIConfig           map[string]string  `json:"ai_config,omitempty"`
	Priority           int                `json:"priority"`
}

// UpdateRequest is the request body for updating an agent.
type UpdateRequest struct {
	Name               *string             `json:"name,omitempty"`
	Personality        *Personality        `json:"personality,omitempty"`
	Channels           []string            `json:"channels,omitempty"`
	EnabledActions     []string            `json:"enabled_actions,omitempty"`
	ConversationConfig *ConversationConfig `json:"conversation_config,omitempty"`
	AIConfig           map[string]string   `json:"ai_config,omitempty"`
	IsActive           *bool               `json:"is_active,omitempty"`
	Priority           *int                `json:"priority,omitempty"`
}

// Validate checks required fields and applies defaults.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(r.Channels) == 0 {
		return fmt.Errorf("at least one channel is required: %w", domain.ErrValidation)
	}
	if len(r.EnabledActions) == 0 {
		return fmt.Errorf("at least one enabled action is required: %w", domain.ErrValidation)
	}
	if r.Personality.Language == "" {
		r.Personality.Language = "pt"
	}
	if r.ConversationConfig.MaxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative: %w", domain.ErrValidation)
	}
	return nil
}
