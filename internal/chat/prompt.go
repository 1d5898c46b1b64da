package chat

import (
	"strings"
	"unicode/utf8"

	"document-chat/internal/models"
)

// BuildPrompt joins the saved and newly uploaded document contents under the
// fixed instruction prefix and appends the question.
func BuildPrompt(saved, uploads []models.Document, question string) string {
	return models.PromptPrefix + documentContext(saved, uploads) + "\n\n" + question
}

func documentContext(saved, uploads []models.Document) string {
	return strings.Join(models.Contents(saved), "\n") + "\n" + strings.Join(models.Contents(uploads), "\n")
}

// IsBlank reports whether a question has nothing to ask.
func IsBlank(question string) bool {
	return strings.TrimSpace(question) == ""
}

// Limiter caps the prompt size. Only the document context is ever cut; the
// prefix and the question are kept whole. MaxChars <= 0 disables the cap.
type Limiter struct {
	MaxChars int
}

// Assemble builds the prompt and reports whether the context was truncated.
func (l Limiter) Assemble(saved, uploads []models.Document, question string) (string, bool) {
	prompt := BuildPrompt(saved, uploads, question)
	if l.MaxChars <= 0 || len(prompt) <= l.MaxChars {
		return prompt, false
	}

	docs := documentContext(saved, uploads)
	budget := l.MaxChars - len(models.PromptPrefix) - len("\n\n") - len(question) - len(models.TruncationMarker)
	if budget < 0 {
		return models.PromptPrefix + "\n\n" + question, true
	}
	return models.PromptPrefix + truncateUTF8(docs, budget) + models.TruncationMarker + "\n\n" + question, true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
