package ai

import "strings"

// Placeholder tokens recognized in prompt templates.
const (
	WordPlaceholder    = "%word%"
	ContextPlaceholder = "%context%"
)

// BuildPrompt substitutes word and context into template. Replacement is a
// single left-to-right pass, so a placeholder appearing inside word or
// context is inserted verbatim rather than expanded again.
func BuildPrompt(template, word, context string) string {
	return strings.NewReplacer(
		WordPlaceholder, word,
		ContextPlaceholder, context,
	).Replace(template)
}
