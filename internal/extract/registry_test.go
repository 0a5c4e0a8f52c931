package extract

import (
	"strings"
	"testing"
)

func TestLookupRegistered(t *testing.T) {
	s := Lookup(ActionCreateTicket)
	if s.Label != "Abrir chamado" {
		t.Errorf("label = %q", s.Label)
	}
	if len(s.Required) != 2 || s.Required[0] != "title" {
		t.Errorf("required = %v", s.Required)
	}
}

func TestLookupUnknownFallsBack(t *testing.T) {
	s := Lookup("totally_custom_action")
	if s.Extract == nil {
		t.Fatal("fallback strategy has no extractor")
	}
	if len(s.Required) != 0 {
		t.Errorf("fallback requires %v", s.Required)
	}

	params := s.Extract("  preciso de um orçamento para 3 licenças  ")
	if params["input"] != "preciso de um orçamento para 3 licenças" {
		t.Errorf("params = %v", params)
	}
	if got := s.Extract("ok"); got != nil {
		t.Errorf("trivial text should extract nothing, got %v", got)
	}
}

func TestRegisteredSorted(t *testing.T) {
	types := Registered()
	if len(types) < 3 {
		t.Fatalf("expected the stock actions, got %v", types)
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Fatalf("not sorted: %v", types)
		}
	}
}

func TestLabelHumanizesUnknownTypes(t *testing.T) {
	if got := Label("reset_user_password"); got != "Reset User Password" {
		t.Errorf("label = %q", got)
	}
	if got := Label(ActionScheduleMaintenance); got != "Agendar manutenção" {
		t.Errorf("label = %q", got)
	}
}

func TestMissing(t *testing.T) {
	s := Lookup(ActionCreateTicket)

	missing := s.Missing(map[string]any{})
	if len(missing) != 2 || missing[0] != "title" {
		t.Errorf("missing = %v", missing)
	}

	missing = s.Missing(map[string]any{"title": "x", "description": "  "})
	if len(missing) != 1 || missing[0] != "description" {
		t.Errorf("blank string should count as missing, got %v", missing)
	}

	missing = s.Missing(map[string]any{"title": "x", "description": "y"})
	if missing != nil {
		t.Errorf("nothing should be missing, got %v", missing)
	}
}

func TestPromptFallsBackToKey(t *testing.T) {
	s := Lookup(ActionCreateTicket)
	if got := s.Prompt("title"); got != "Qual o título do chamado?" {
		t.Errorf("prompt = %q", got)
	}
	if got := s.Prompt("nonexistent"); !strings.Contains(got, "nonexistent") {
		t.Errorf("generic prompt should name the key, got %q", got)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration should panic")
		}
	}()
	Register(ActionCreateTicket, Strategy{Extract: func(string) map[string]any { return nil }})
}
