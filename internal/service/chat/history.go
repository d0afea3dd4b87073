package chat

import (
	"strings"

	"loom/internal/config"
	chatmodels "loom/internal/domain/models/chat"
	"loom/internal/service/reasoning"
)

// systemPrompt frames every reasoning step.
const systemPrompt = `You are a helpful assistant.

You have two tools:
- calculator: evaluates arithmetic exactly. Always use it for any calculation instead of computing yourself.
- search_documents: searches the user's uploaded documents. Use it for questions about their content, and answer only from what it returns. If it returns nothing relevant, say you could not find the answer in the documents.

Be concise and direct.`

// buildHistory converts stored turns into reasoning messages, keeping the
// most recent window conversational turns. Tool turns are audit records,
// not conversation; completed tool loops are already folded into the
// assistant turns, so replaying them would only duplicate content.
func buildHistory(turns []chatmodels.Turn, window int) []reasoning.Message {
	conversational := make([]chatmodels.Turn, 0, len(turns))
	for i := range turns {
		if turns[i].IsConversational() {
			conversational = append(conversational, turns[i])
		}
	}

	if window > 0 && len(conversational) > window {
		conversational = conversational[len(conversational)-window:]
	}

	messages := make([]reasoning.Message, 0, len(conversational))
	for _, turn := range conversational {
		messages = append(messages, reasoning.Message{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	return messages
}

// deriveTitle names a thread after its first message, like a notebook page
// titled by its first line.
func deriveTitle(message string) string {
	title := strings.TrimSpace(message)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	runes := []rune(title)
	if len(runes) > config.TitleFromMessageLength {
		title = string(runes[:config.TitleFromMessageLength])
	}
	return title
}
