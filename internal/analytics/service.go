// Package analytics is the read side of the query log: simple counts plus
// the most recent records. Records written on the fallback path are lost
// by design and never show up here.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	ports "kbchat/internal/chat/ports"
)

// Stats aggregates the query log.
type Stats struct {
	Total       int64 `json:"total"`
	WithContext int64 `json:"withContext"`
}

// Report is the payload served by the analytics endpoint.
type Report struct {
	Stats  Stats                   `json:"stats"`
	Recent []ports.AnalyticsRecord `json:"recent"`
}

// Service reads the analytics log from the persistent store.
type Service struct {
	db          *sql.DB
	recentLimit atomic.Int64
}

// NewService creates the report service. recentLimit caps the recent list.
func NewService(db *sql.DB, recentLimit int) *Service {
	s := &Service{db: db}
	s.SetRecentLimit(recentLimit)
	return s
}

// SetRecentLimit adjusts the recent-list cap. Config reloads apply
// through it.
func (s *Service) SetRecentLimit(n int) {
	if n <= 0 {
		n = 20
	}
	s.recentLimit.Store(int64(n))
}

// Report returns totals and the most recent queries, newest first.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	if s.db == nil {
		return nil, fmt.Errorf("analytics unavailable: no database")
	}

	report := &Report{Recent: []ports.AnalyticsRecord{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics`).Scan(&report.Stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count queries: %w", err)
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics WHERE rag_context_found`,
	).Scan(&report.Stats.WithContext)
	if err != nil {
		return nil, fmt.Errorf("failed to count context hits: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, session_id, response_generated, rag_context_found, created_at
		FROM analytics
		ORDER BY created_at DESC
		LIMIT ?
	`, s.recentLimit.Load())
	if err != nil {
		return nil, fmt.Errorf("failed to list recent queries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec ports.AnalyticsRecord
		var sessionID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Query, &sessionID, &rec.ResponseGenerated, &rec.ContextFound, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.SessionID = sessionID.String
		report.Recent = append(report.Recent, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return report, nil
}
