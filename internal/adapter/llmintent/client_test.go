package llmintent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atendeco/atende/internal/adapter/llmintent"
	"github.com/atendeco/atende/internal/port/intent"
	"github.com/atendeco/atende/internal/resilience"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected auth: %q", auth)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "gpt-4o-mini" {
			t.Fatalf("unexpected model: %v", req["model"])
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyze(t *testing.T) {
	srv := completionServer(t, `{"intent":"create_ticket","confidence":0.93,"entities":{"categoria":"acesso"}}`)
	defer srv.Close()

	client := llmintent.NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	res, err := client.Analyze(context.Background(), intent.Request{
		Content: "não consigo acessar o sistema",
		Channel: "whatsapp",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.Intent != "create_ticket" {
		t.Errorf("expected create_ticket, got %q", res.Intent)
	}
	if res.Confidence != 0.93 {
		t.Errorf("expected confidence 0.93, got %f", res.Confidence)
	}
	if res.Entities["categoria"] != "acesso" {
		t.Errorf("expected entity categoria=acesso, got %v", res.Entities)
	}
}

func TestAnalyzeMalformedModelAnswer(t *testing.T) {
	srv := completionServer(t, `create_ticket`)
	defer srv.Close()

	client := llmintent.NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	res, err := client.Analyze(context.Background(), intent.Request{Content: "preciso de um chamado"})
	if err != nil {
		t.Fatalf("free-text model answer should not fail: %v", err)
	}
	if res.Intent != "create_ticket" {
		t.Errorf("expected raw content as intent, got %q", res.Intent)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := llmintent.NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	if _, err := client.Analyze(context.Background(), intent.Request{Content: "oi"}); err == nil {
		t.Error("expected error for 503")
	}
}

func TestAnalyzeBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := llmintent.NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	client.SetBreaker(resilience.NewBreaker(2, time.Minute))

	for range 2 {
		_, _ = client.Analyze(context.Background(), intent.Request{Content: "oi"})
	}

	_, err := client.Analyze(context.Background(), intent.Request{Content: "oi"})
	if err == nil {
		t.Fatal("expected breaker to reject")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := llmintent.NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	ok, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !ok {
		t.Error("expected healthy")
	}
}

func TestHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := llmintent.NewClient(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	ok, err := client.Health(context.Background())
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if ok {
		t.Error("expected unhealthy")
	}
}
