package chat

import (
	"strings"

	ports "kbchat/internal/chat/ports"
)

const systemInstruction = "You are a helpful AI assistant. You have access to a knowledge base (provided below), but you should also use your general knowledge to answer questions."

// PromptBuilder assembles the provider message payload from retrieved
// context and the conversation transcript.
type PromptBuilder struct {
	historyWindow int
}

// NewPromptBuilder creates a builder that windows history to the most
// recent historyWindow turns, the just-appended user turn included.
func NewPromptBuilder(historyWindow int) *PromptBuilder {
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &PromptBuilder{historyWindow: historyWindow}
}

// Build returns the system instruction followed by the windowed history.
// Bounding history caps token cost while preserving short-term coherence.
func (b *PromptBuilder) Build(contextArticles []ports.Article, turns []ports.Turn) []ports.PromptMessage {
	system := systemInstruction
	if block := ContextBlock(contextArticles); block != "" {
		system += "\n\n" + block
	}

	recent := turns
	if len(recent) > b.historyWindow {
		recent = recent[len(recent)-b.historyWindow:]
	}

	messages := make([]ports.PromptMessage, 0, len(recent)+1)
	messages = append(messages, ports.PromptMessage{Role: ports.RoleSystem, Content: system})
	for _, t := range recent {
		messages = append(messages, ports.PromptMessage{
			Role:    t.Role,
			Content: norm(t.Content),
		})
	}
	return messages
}

// ContextBlock formats retrieved articles as Title/Content blocks joined
// by blank lines, or returns "" when there is no context.
func ContextBlock(articles []ports.Article) string {
	if len(articles) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(articles))
	for _, a := range articles {
		blocks = append(blocks, "Title: "+a.Title+"\nContent: "+a.Content)
	}
	return "Context from Knowledge Base:\n" + strings.Join(blocks, "\n\n")
}

// norm reduces prompt diffs: normalized newlines, trimmed whitespace.
func norm(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
