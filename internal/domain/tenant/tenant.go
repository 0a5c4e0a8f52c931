// Package tenant defines the Tenant domain entity, the isolation boundary
// for all agents and conversations.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"github.com/atendeco/atende/internal/domain"
)

// Tenant represents one isolated customer of the platform. API keys are
// stored as bcrypt hashes; the plaintext is shown once at creation.
type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateRequest is the request body for creating a tenant.
type CreateRequest struct {
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(r.APIKey) < 16 {
		return fmt.Errorf("api_key must be at least 16 characters: %w", domain.ErrValidation)
	}
	return nil
}
