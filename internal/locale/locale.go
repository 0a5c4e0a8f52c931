// Package locale classifies confirmation replies per language. Classifiers
// are registered by language tag so new locales are additive; the engine
// never branches on language strings itself.
package locale

import (
	"fmt"
	"strings"
	"sync"
)

// Decision is the confirmation tag for a user reply.
type Decision string

const (
	Confirm Decision = "confirm"
	Cancel  Decision = "cancel"
	Edit    Decision = "edit"
	Unknown Decision = "unknown"
)

// Classifier maps a raw reply to a Decision.
type Classifier func(text string) Decision

// DefaultLanguage is used when an agent's language has no classifier.
const DefaultLanguage = "pt"

var (
	mu          sync.RWMutex
	classifiers = make(map[string]Classifier)
)

// Register makes a classifier available for a language tag.
// It is typically called from an init() function.
func Register(language string, c Classifier) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := classifiers[language]; exists {
		panic(fmt.Sprintf("locale: duplicate registration for %q", language))
	}
	classifiers[language] = c
}

// Classify runs the classifier for the given language, falling back to
// the default language when none is registered.
func Classify(language, text string) Decision {
	mu.RLock()
	c, ok := classifiers[language]
	if !ok {
		c, ok = classifiers[DefaultLanguage]
	}
	mu.RUnlock()

	if !ok {
		return Unknown
	}
	return c(text)
}

// Supported returns whether a language has its own classifier.
func Supported(language string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := classifiers[language]
	return ok
}

// wordSetClassifier builds a Classifier from vocabulary sets. The numeric
// shortcuts 1/2/3 always mean confirm/cancel/edit. Single words match
// exactly; multi-word phrases match as substrings.
func wordSetClassifier(confirm, cancel, edit []string) Classifier {
	match := func(normalized string, words []string, vocab []string) bool {
		for _, v := range vocab {
			if strings.Contains(v, " ") {
				if strings.Contains(normalized, v) {
					return true
				}
				continue
			}
			for _, w := range words {
				if w == v {
					return true
				}
			}
		}
		return false
	}

	return func(text string) Decision {
		normalized := strings.ToLower(strings.TrimSpace(text))
		normalized = strings.Trim(normalized, ".!?")

		switch normalized {
		case "1":
			return Confirm
		case "2":
			return Cancel
		case "3":
			return Edit
		}

		words := strings.Fields(normalized)
		for i, w := range words {
			words[i] = strings.Trim(w, ".,!?;:")
		}

		// Negatives before affirmatives, so "não confirmo" cancels.
		switch {
		case match(normalized, words, cancel):
			return Cancel
		case match(normalized, words, edit):
			return Edit
		case match(normalized, words, confirm):
			return Confirm
		default:
			return Unknown
		}
	}
}
