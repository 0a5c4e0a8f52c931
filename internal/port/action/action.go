// Package action defines the action executor port (interface).
// Business actions (ticket creation, notification sending, scheduling)
// are executed by an external system behind this port.
package action

import "context"

// Request is one structured action ready for execution.
type Request struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Params   map[string]any    `json:"params"`
	Config   map[string]string `json:"config,omitempty"`
	Priority int               `json:"priority"`
}

// ExecutionContext carries the tenancy and provenance of the request.
type ExecutionContext struct {
	TenantID    string         `json:"tenant_id"`
	MessageData map[string]any `json:"message_data"`
	RuleID      string         `json:"rule_id"`
	RuleName    string         `json:"rule_name"`
}

// Result is the executor's outcome. A false Success with a populated
// Error is a business failure, not a transport error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Executor is the port interface for executing structured actions.
type Executor interface {
	Execute(ctx context.Context, req Request, execCtx ExecutionContext) (*Result, error)
}
