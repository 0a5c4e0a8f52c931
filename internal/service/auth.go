package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atendeco/atende/internal/domain"
	"github.com/atendeco/atende/internal/domain/tenant"
	"github.com/atendeco/atende/internal/port/store"
)

// ErrInvalidAPIKey is returned when tenant authentication fails. The same
// error covers unknown tenants, disabled tenants and wrong keys, so callers
// cannot probe which tenants exist.
var ErrInvalidAPIKey = errors.New("invalid api key")

// AuthService handles tenant provisioning and API key authentication.
// Keys are stored as bcrypt hashes; the plaintext leaves the process only
// in the CreateTenant response.
type AuthService struct {
	store store.ConversationStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(st store.ConversationStore) *AuthService {
	return &AuthService{store: st}
}

// CreateTenant validates the request, hashes the API key and persists the
// tenant.
func (s *AuthService) CreateTenant(ctx context.Context, req *tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.APIKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	now := time.Now().UTC()
	t := &tenant.Tenant{
		ID:         uuid.New().String(),
		Name:       req.Name,
		APIKeyHash: string(hash),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

// Authenticate verifies the API key for the given tenant. Disabled and
// unknown tenants fail identically with ErrInvalidAPIKey.
func (s *AuthService) Authenticate(ctx context.Context, tenantID, apiKey string) (*tenant.Tenant, error) {
	if tenantID == "" || apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if !t.IsActive {
		return nil, ErrInvalidAPIKey
	}

	if err := bcrypt.CompareHashAndPassword([]byte(t.APIKeyHash), []byte(apiKey)); err != nil {
		return nil, ErrInvalidAPIKey
	}
	return t, nil
}

// ListTenants returns all tenants.
func (s *AuthService) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}
