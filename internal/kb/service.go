// Package kb exposes the article CRUD surface over the dual store: the
// persistent store takes writes when reachable, the volatile fallback
// store absorbs them otherwise.
package kb

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	ports "kbchat/internal/chat/ports"
)

// Liveness reports whether the persistent store is reachable.
type Liveness interface {
	Alive(ctx context.Context) bool
}

// Service manages knowledge-base articles across both stores.
type Service struct {
	health     Liveness
	persistent ports.ArticleStore
	fallback   ports.ArticleStore
	logger     zerolog.Logger
}

// NewService creates the article service. persistent may be nil when the
// process started without a database.
func NewService(health Liveness, persistent, fallback ports.ArticleStore, logger zerolog.Logger) *Service {
	return &Service{
		health:     health,
		persistent: persistent,
		fallback:   fallback,
		logger:     logger,
	}
}

// List returns persistent articles concatenated with fallback articles
// when the database is up, fallback articles alone when it is down.
// Duplicate titles across the two stores are possible and intentionally
// left as-is.
func (s *Service) List(ctx context.Context) ([]ports.Article, error) {
	memArticles, err := s.fallback.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("fallback list failed: %w", err)
	}

	if s.persistent == nil || !s.health.Alive(ctx) {
		return memArticles, nil
	}

	dbArticles, err := s.persistent.List(ctx, 0)
	if err != nil {
		s.logger.Warn().Err(err).Msg("database list failed, returning memory articles")
		return memArticles, nil
	}

	return append(dbArticles, memArticles...), nil
}

// Create writes to the persistent store first; on unavailability or
// failure the article lands in the fallback store instead, where it lives
// until the process restarts. The store that took the write assigns the
// article's id.
func (s *Service) Create(ctx context.Context, article *ports.Article) error {
	if s.persistent != nil && s.health.Alive(ctx) {
		if err := s.persistent.Create(ctx, article); err == nil {
			return nil
		} else {
			s.logger.Warn().Err(err).Str("title", article.Title).Msg("saving article to in-memory store due to DB error")
		}
	}

	article.ID = "" // let the fallback store assign its own id
	if err := s.fallback.Create(ctx, article); err != nil {
		return fmt.Errorf("fallback create failed: %w", err)
	}
	return nil
}

// Search is the debug search surface over the persistent full-text index.
func (s *Service) Search(ctx context.Context, query string, k int) ([]ports.Article, error) {
	if s.persistent == nil || !s.health.Alive(ctx) {
		return s.fallback.Search(ctx, query, k)
	}
	return s.persistent.Search(ctx, query, k)
}

// Delete removes an article from the persistent store only.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.persistent == nil {
		return fmt.Errorf("no persistent store configured")
	}
	return s.persistent.Delete(ctx, id)
}
