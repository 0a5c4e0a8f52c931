package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/atendeco/atende/internal/domain/agent"
)

// selectAgent picks the agent serving a channel for a tenant: highest
// priority wins, ties broken by the lexicographically smallest ID so the
// choice is deterministic. Returns nil when no agent is eligible.
func (e *Engine) selectAgent(ctx context.Context, tenantID, channelType string) (*agent.Agent, error) {
	agents, err := e.store.ListAgentsByChannel(ctx, tenantID, channelType)
	if err != nil {
		return nil, fmt.Errorf("list agents for channel %s: %w", channelType, err)
	}
	if len(agents) == 0 {
		return nil, nil
	}

	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Priority != agents[j].Priority {
			return agents[i].Priority > agents[j].Priority
		}
		return agents[i].ID < agents[j].ID
	})

	return &agents[0], nil
}
