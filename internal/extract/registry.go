// Package extract provides per-action-type parameter extraction from free
// text. Strategies are registered by action type so new actions are
// additive; the engine never branches on action names itself.
package extract

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Func pulls a partial param->value map out of raw text. Heuristic and
// keyword based; it never errors, it just extracts what it can.
type Func func(text string) map[string]any

// Strategy bundles everything the engine needs to collect parameters for
// one action type.
type Strategy struct {
	// Label is the human-facing menu text for the action.
	Label string
	// Required lists the parameter keys that must be present before the
	// action can be confirmed, in asking order.
	Required []string
	// Prompts maps a required key to the targeted question asked when
	// that key is still missing.
	Prompts map[string]string
	// Extract pulls values from one message.
	Extract Func
}

var (
	mu         sync.RWMutex
	strategies = make(map[string]Strategy)
)

// Register makes an extraction strategy available for an action type.
// It is typically called from an init() function.
func Register(actionType string, s Strategy) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := strategies[actionType]; exists {
		panic(fmt.Sprintf("extract: duplicate registration for %q", actionType))
	}
	if s.Extract == nil {
		panic(fmt.Sprintf("extract: strategy for %q has no Extract func", actionType))
	}
	strategies[actionType] = s
}

// Lookup returns the strategy for an action type. Unknown types get the
// generic fallback strategy, which stores non-trivial raw text under a
// generic key and requires nothing.
func Lookup(actionType string) Strategy {
	mu.RLock()
	s, ok := strategies[actionType]
	mu.RUnlock()

	if !ok {
		return fallbackStrategy
	}
	return s
}

// Registered returns the known action types in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(strategies))
	for t := range strategies {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Label returns the menu text for an action type, falling back to a
// humanized form of the identifier.
func Label(actionType string) string {
	mu.RLock()
	s, ok := strategies[actionType]
	mu.RUnlock()

	if ok && s.Label != "" {
		return s.Label
	}
	words := strings.Split(strings.ReplaceAll(actionType, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Missing returns the required keys not yet present in params, in asking
// order.
func (s Strategy) Missing(params map[string]any) []string {
	var missing []string
	for _, key := range s.Required {
		v, ok := params[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Prompt returns the targeted question for a missing key.
func (s Strategy) Prompt(key string) string {
	if p, ok := s.Prompts[key]; ok {
		return p
	}
	return fmt.Sprintf("Por favor, informe: %s", key)
}
