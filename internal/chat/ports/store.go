package chatports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ArticleStore holds knowledge-base entries. Search semantics are
// store-native: the persistent variant ranks by full-text relevance, the
// in-memory variant does an unranked keyword scan in insertion order.
// Both return at most k articles and an empty slice on no match.
type ArticleStore interface {
	Search(ctx context.Context, query string, k int) ([]Article, error)
	List(ctx context.Context, limit int) ([]Article, error)
	Titles(ctx context.Context, limit int) ([]string, error)
	Create(ctx context.Context, article *Article) error
	Delete(ctx context.Context, id string) error
}

// ConversationStore persists per-session transcripts. Find returns
// ErrNotFound for an unknown session; Save upserts the full transcript.
type ConversationStore interface {
	Find(ctx context.Context, sessionID string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
}

// AnalyticsSink records query/outcome pairs. Append-only.
type AnalyticsSink interface {
	Record(ctx context.Context, rec AnalyticsRecord) error
}
