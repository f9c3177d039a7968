package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	ports "kbchat/internal/chat/ports"
)

// LibSQLArticleStore implements ArticleStore on the embedded libsql
// database, with FTS5 relevance-ranked search over title+content.
type LibSQLArticleStore struct {
	db *sql.DB
}

// NewLibSQLArticleStore creates a new libsql-backed article store.
func NewLibSQLArticleStore(db *sql.DB) *LibSQLArticleStore {
	return &LibSQLArticleStore{db: db}
}

// Search returns the top k articles ranked by FTS5 relevance, best first.
// An empty result is a normal outcome, not an error.
func (s *LibSQLArticleStore) Search(ctx context.Context, query string, k int) ([]ports.Article, error) {
	fts := escapeFTSQuery(query)
	if fts == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.content, a.tags, a.created_at
		FROM articles_fts f
		JOIN articles a ON f.rowid = a.rowid
		WHERE articles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, fts, k)
	if err != nil {
		return nil, fmt.Errorf("article search failed: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// List returns articles newest first, capped at limit when limit > 0.
func (s *LibSQLArticleStore) List(ctx context.Context, limit int) ([]ports.Article, error) {
	q := `SELECT id, title, content, tags, created_at FROM articles ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("article list failed: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// Titles returns up to limit article titles in insertion order.
func (s *LibSQLArticleStore) Titles(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM articles ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("title list failed: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// Create inserts a new article. Title uniqueness is enforced by the
// UNIQUE constraint; the store assigns the id and creation time.
func (s *LibSQLArticleStore) Create(ctx context.Context, article *ports.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}

	tagsJSON, err := json.Marshal(article.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, content, tags, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, article.ID, article.Title, article.Content, string(tagsJSON), article.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

// Delete removes an article by id. Deleting an unknown id is not an error.
func (s *LibSQLArticleStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

func scanArticles(rows *sql.Rows) ([]ports.Article, error) {
	var articles []ports.Article
	for rows.Next() {
		var a ports.Article
		var tagsJSON string
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &tagsJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
			a.Tags = nil
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return articles, nil
}

// escapeFTSQuery neutralizes FTS5 operator syntax by quoting each
// whitespace token and OR-ing them, so free-form user text never
// produces a syntax error.
func escapeFTSQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// Ensure LibSQLArticleStore implements the ArticleStore interface.
var _ ports.ArticleStore = (*LibSQLArticleStore)(nil)
