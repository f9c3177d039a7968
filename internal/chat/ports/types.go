package chatports

import "time"

// Message roles as stored in conversation transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Article is a knowledge-base entry. Articles are immutable after creation.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// Turn is a single role-tagged message inside a conversation transcript.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Conversation is the append-only transcript for one session. SessionID is a
// client-generated opaque token and the sole join key; no ownership check
// ties a session to a user.
type Conversation struct {
	SessionID  string    `json:"sessionId"`
	Turns      []Turn    `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// AnalyticsRecord captures one query/outcome pair. Append-only, write-only
// from the chat pipeline's perspective.
type AnalyticsRecord struct {
	ID                string    `json:"id"`
	Query             string    `json:"query"`
	SessionID         string    `json:"sessionId"`
	ResponseGenerated bool      `json:"responseGenerated"`
	ContextFound      bool      `json:"ragContextFound"`
	CreatedAt         time.Time `json:"timestamp"`
}

// PromptMessage is a single chat message as sent to a completion provider.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
