package chat

import (
	"context"

	"github.com/rs/zerolog"

	ports "kbchat/internal/chat/ports"
)

// Retriever locates grounding context for a query. It dispatches to the
// persistent store's relevance-ranked search or the fallback store's
// keyword scan depending on the availability signal the caller resolved
// for this request; the two must never diverge within one request.
type Retriever struct {
	persistent ports.ArticleStore
	fallback   ports.ArticleStore
	limit      int
	logger     zerolog.Logger
}

// NewRetriever creates a retriever returning at most limit articles.
func NewRetriever(persistent, fallback ports.ArticleStore, limit int, logger zerolog.Logger) *Retriever {
	if limit <= 0 {
		limit = 3
	}
	return &Retriever{
		persistent: persistent,
		fallback:   fallback,
		limit:      limit,
		logger:     logger,
	}
}

// Retrieve is read-only and never fails: store errors and empty matches
// both yield an empty slice, a common and valid outcome.
func (r *Retriever) Retrieve(ctx context.Context, query string, persistentOK bool) []ports.Article {
	store := r.fallback
	source := "memory"
	if persistentOK && r.persistent != nil {
		store = r.persistent
		source = "db"
	}

	articles, err := store.Search(ctx, query, r.limit)
	if err != nil {
		r.logger.Warn().Err(err).Str("source", source).Msg("context search failed")
		return nil
	}
	if len(articles) > 0 {
		r.logger.Debug().Int("count", len(articles)).Str("source", source).Msg("context found")
	}
	return articles
}
