package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "kbchat/internal/chat/ports"
)

func TestPromptBuilder_EmbedsContextBlocks(t *testing.T) {
	builder := NewPromptBuilder(5)
	articles := []ports.Article{
		{Title: "A", Content: "alpha content"},
		{Title: "B", Content: "beta content"},
	}
	turns := []ports.Turn{{Role: ports.RoleUser, Content: "hi"}}

	messages := builder.Build(articles, turns)

	require.Len(t, messages, 2)
	assert.Equal(t, ports.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "Context from Knowledge Base:")
	assert.Contains(t, messages[0].Content, "Title: A\nContent: alpha content")
	assert.Contains(t, messages[0].Content, "Title: B\nContent: beta content")
	assert.Equal(t, "hi", messages[1].Content)
}

func TestPromptBuilder_NoContextIsBoilerplateOnly(t *testing.T) {
	builder := NewPromptBuilder(5)

	messages := builder.Build(nil, []ports.Turn{{Role: ports.RoleUser, Content: "hi"}})

	require.Len(t, messages, 2)
	assert.Equal(t, systemInstruction, messages[0].Content)
	assert.NotContains(t, messages[0].Content, "Context from Knowledge Base")
}

func TestPromptBuilder_WindowsHistory(t *testing.T) {
	builder := NewPromptBuilder(5)

	var turns []ports.Turn
	for i := 0; i < 9; i++ {
		turns = append(turns, ports.Turn{Role: ports.RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	messages := builder.Build(nil, turns)

	// System message plus the five most recent turns.
	require.Len(t, messages, 6)
	assert.Equal(t, "turn 4", messages[1].Content)
	assert.Equal(t, "turn 8", messages[5].Content)
}

func TestContextBlock_JoinsWithBlankLines(t *testing.T) {
	block := ContextBlock([]ports.Article{
		{Title: "A", Content: "one"},
		{Title: "B", Content: "two"},
	})

	assert.Equal(t, 1, strings.Count(block, "\n\n"))
	assert.Empty(t, ContextBlock(nil))
}
