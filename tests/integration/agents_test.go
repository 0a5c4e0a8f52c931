//go:build integration

package integration_test

import (
	"net/http"
	"testing"
)

func TestAgentCRUDLifecycle(t *testing.T) {
	cleanDB(testPool)
	tenantID := createTenant(t, "acme")

	// 1. List agents — should be empty.
	resp, _ := apiRequest(t, http.MethodGet, "/api/v1/agents", tenantID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}

	// 2. Create an agent.
	agentID := createAgent(t, tenantID, "suporte-n1")

	// 3. Get by ID.
	resp, fetched := apiRequest(t, http.MethodGet, "/api/v1/agents/"+agentID, tenantID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if fetched["id"] != agentID {
		t.Fatalf("expected ID %q, got %v", agentID, fetched["id"])
	}
	if fetched["name"] != "suporte-n1" {
		t.Fatalf("expected name 'suporte-n1', got %v", fetched["name"])
	}

	// 4. Update the name.
	resp, updated := apiRequest(t, http.MethodPut, "/api/v1/agents/"+agentID, tenantID, map[string]any{
		"name": "suporte-n2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	if updated["name"] != "suporte-n2" {
		t.Fatalf("expected updated name, got %v", updated["name"])
	}

	// 5. Delete.
	resp, _ = apiRequest(t, http.MethodDelete, "/api/v1/agents/"+agentID, tenantID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}

	// 6. Get deleted — 404.
	resp, _ = apiRequest(t, http.MethodGet, "/api/v1/agents/"+agentID, tenantID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateAgentValidation(t *testing.T) {
	cleanDB(testPool)
	tenantID := createTenant(t, "acme")

	// Missing name should return 400.
	resp, _ := apiRequest(t, http.MethodPost, "/api/v1/agents", tenantID, map[string]any{
		"channels":        []string{"chat"},
		"enabled_actions": []string{"create_ticket"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAgentTenantIsolation(t *testing.T) {
	cleanDB(testPool)
	tenantA := createTenant(t, "tenant-a")
	tenantB := createTenant(t, "tenant-b")

	agentID := createAgent(t, tenantA, "agente-a")

	// Tenant B must not see tenant A's agent.
	resp, _ := apiRequest(t, http.MethodGet, "/api/v1/agents/"+agentID, tenantB, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-tenant get: expected 404, got %d", resp.StatusCode)
	}

	resp, _ = apiRequest(t, http.MethodGet, "/api/v1/agents", tenantB, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cross-tenant list: expected 200, got %d", resp.StatusCode)
	}
}
