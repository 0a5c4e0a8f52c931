package extract

import (
	"regexp"
	"strings"
)

// Built-in strategies for the stock action types. Registered at package
// load; deployments add their own types with Register.
func init() {
	Register(ActionCreateTicket, Strategy{
		Label:    "Abrir chamado",
		Required: []string{"title", "description"},
		Prompts: map[string]string{
			"title":       "Qual o título do chamado?",
			"description": "Descreva o problema, por favor.",
		},
		Extract: extractTicket,
	})

	Register(ActionSendNotification, Strategy{
		Label:    "Enviar notificação",
		Required: []string{"email", "subject"},
		Prompts: map[string]string{
			"email":   "Para qual e-mail devo enviar?",
			"subject": "Qual o assunto da notificação?",
		},
		Extract: extractNotification,
	})

	Register(ActionScheduleMaintenance, Strategy{
		Label:    "Agendar manutenção",
		Required: []string{"date", "time"},
		Prompts: map[string]string{
			"date": "Para qual data? (dd/mm/aaaa)",
			"time": "Em qual horário? (hh:mm)",
		},
		Extract: extractSchedule,
	})
}

// Stock action type identifiers.
const (
	ActionCreateTicket        = "create_ticket"
	ActionSendNotification    = "send_notification"
	ActionScheduleMaintenance = "schedule_maintenance"
)

// fallbackStrategy handles unknown action types: keep the raw trimmed
// text when it carries enough content to be useful downstream.
var fallbackStrategy = Strategy{
	Extract: func(text string) map[string]any {
		trimmed := strings.TrimSpace(text)
		if len(trimmed) <= 10 {
			return nil
		}
		return map[string]any{"input": trimmed}
	},
}

var (
	problemWords = []string{"problema", "erro", "defeito", "falha", "bug", "não funciona", "nao funciona", "quebrad", "parou", "travou"}
	urgentWords  = []string{"urgente", "urgência", "urgencia", "crítico", "critico", "emergência", "emergencia", "imediatamente", "parou tudo"}
	lowWords     = []string{"sem pressa", "quando puder", "baixa prioridade", "não é urgente", "nao é urgente", "pode esperar"}

	categoryWords = []struct {
		category string
		words    []string
	}{
		{"technical", []string{"sistema", "software", "aplicativo", "tela", "erro", "bug", "lento", "travou"}},
		{"access", []string{"senha", "acesso", "login", "bloqueado", "usuário", "usuario"}},
		{"hardware", []string{"impressora", "computador", "notebook", "equipamento", "monitor", "teclado"}},
		{"billing", []string{"fatura", "cobrança", "cobranca", "pagamento", "boleto", "mensalidade"}},
	}

	emailRe   = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	subjectRe = regexp.MustCompile(`(?i)(?:assunto|sobre|subject)\s*:?\s*(.+)`)
	dateRe    = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})\b`)
	timeRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// extractTicket detects a problem description, infers priority from
// urgency vocabulary and a coarse category from domain vocabulary. Short
// text without problem vocabulary is treated as a title reply.
func extractTicket(text string) map[string]any {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	params := map[string]any{}

	hasProblem := containsAny(lower, problemWords)
	if hasProblem {
		params["description"] = trimmed
	}

	switch {
	case containsAny(lower, urgentWords):
		params["priority"] = "high"
	case containsAny(lower, lowWords):
		params["priority"] = "low"
	case hasProblem:
		params["priority"] = "medium"
	}

	for _, cw := range categoryWords {
		if containsAny(lower, cw.words) {
			params["category"] = cw.category
			break
		}
	}
	if hasProblem {
		if _, ok := params["category"]; !ok {
			params["category"] = "general"
		}
	}

	// A short reply with no problem vocabulary is most likely answering
	// the title question.
	if !hasProblem && trimmed != "" && len(trimmed) <= 80 {
		params["title"] = trimmed
	}

	return params
}

// extractNotification pulls the first RFC-5322-shaped address and an
// explicit subject marker ("assunto:", "sobre:", "subject:").
func extractNotification(text string) map[string]any {
	params := map[string]any{}

	if email := emailRe.FindString(text); email != "" {
		params["email"] = email
	}

	if m := subjectRe.FindStringSubmatch(text); m != nil {
		subject := strings.TrimSpace(m[1])
		// The marker may sit in front of the address itself; an address
		// is not a subject line.
		if subject != "" && !emailRe.MatchString(subject) {
			params["subject"] = subject
		}
	}

	// A short reply without an address or marker answers the pending
	// subject question.
	if len(params) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" && len(trimmed) <= 120 {
			params["subject"] = trimmed
		}
	}

	return params
}

// extractSchedule pulls D/M/Y date and H:MM time tokens.
func extractSchedule(text string) map[string]any {
	params := map[string]any{}

	if m := dateRe.FindString(text); m != "" {
		params["date"] = m
	}
	if m := timeRe.FindString(text); m != "" {
		params["time"] = m
	}

	return params
}
