package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	ports "kbchat/internal/chat/ports"
)

// LibSQLAnalyticsSink appends query/outcome records to the analytics log.
type LibSQLAnalyticsSink struct {
	db *sql.DB
}

// NewLibSQLAnalyticsSink creates a new libsql analytics sink.
func NewLibSQLAnalyticsSink(db *sql.DB) *LibSQLAnalyticsSink {
	return &LibSQLAnalyticsSink{db: db}
}

// Record appends one record. Records are never updated or deleted.
func (s *LibSQLAnalyticsSink) Record(ctx context.Context, rec ports.AnalyticsRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics (id, query, session_id, response_generated, rag_context_found, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Query, rec.SessionID, rec.ResponseGenerated, rec.ContextFound, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record analytics: %w", err)
	}
	return nil
}

// Ensure LibSQLAnalyticsSink implements the AnalyticsSink interface.
var _ ports.AnalyticsSink = (*LibSQLAnalyticsSink)(nil)
