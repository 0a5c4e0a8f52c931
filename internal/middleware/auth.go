package middleware

import (
	"context"
	"net/http"

	"github.com/atendeco/atende/internal/domain/tenant"
)

const headerAPIKey = "X-API-Key"

type authTenantCtxKey struct{}

// Authenticator verifies a tenant's API key.
type Authenticator interface {
	Authenticate(ctx context.Context, tenantID, apiKey string) (*tenant.Tenant, error)
}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
}

// Auth returns middleware that validates the X-Tenant-ID / X-API-Key pair
// against the tenant store. When enabled is false every request passes
// through with the default tenant, which keeps local development
// credential-free.
func Auth(authSvc Authenticator, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			tid := r.Header.Get(headerTenantID)
			key := r.Header.Get(headerAPIKey)
			if tid == "" || key == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			t, err := authSvc.Authenticate(r.Context(), tid, key)
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authTenantCtxKey{}, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthTenantFromContext returns the authenticated tenant, or nil when auth
// is disabled or the request was public.
func AuthTenantFromContext(ctx context.Context) *tenant.Tenant {
	t, _ := ctx.Value(authTenantCtxKey{}).(*tenant.Tenant)
	return t
}
