// Package intent defines the intent analyzer port (interface).
// The analyzer is an external NLU capability; the engine only consumes
// the intent label it returns.
package intent

import (
	"context"
	"time"
)

// Request carries one inbound message to the analyzer.
type Request struct {
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the analyzer's answer. Fields beyond Intent are opaque to
// the engine and passed through for auditing.
type Result struct {
	Intent     string            `json:"intent,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	Entities   map[string]string `json:"entities,omitempty"`
}

// Analyzer is the port interface for free text -> intent analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}
