package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ports "kbchat/internal/chat/ports"
)

// LibSQLConversationStore implements ConversationStore on libsql.
// Transcripts are stored as one row per turn, ordered by rowid.
type LibSQLConversationStore struct {
	db *sql.DB
}

// NewLibSQLConversationStore creates a new libsql conversation store.
func NewLibSQLConversationStore(db *sql.DB) *LibSQLConversationStore {
	return &LibSQLConversationStore{db: db}
}

// Find loads the conversation for sessionID, or ErrNotFound.
func (s *LibSQLConversationStore) Find(ctx context.Context, sessionID string) (*ports.Conversation, error) {
	conv := &ports.Conversation{SessionID: sessionID}

	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, last_active FROM conversations WHERE session_id = ?
	`, sessionID).Scan(&conv.CreatedAt, &conv.LastActive)
	if err == sql.ErrNoRows {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM conversation_turns
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t ports.Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		conv.Turns = append(conv.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	return conv, nil
}

// Save upserts the conversation row and rewrites its transcript in one
// transaction, so a mid-save failure never leaves a partial transcript.
func (s *LibSQLConversationStore) Save(ctx context.Context, conv *ports.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.LastActive = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (session_id, created_at, last_active)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_active = excluded.last_active
	`, conv.SessionID, conv.CreatedAt, conv.LastActive)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_turns WHERE session_id = ?`, conv.SessionID); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}

	for _, t := range conv.Turns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_turns (session_id, role, content, created_at)
			VALUES (?, ?, ?, ?)
		`, conv.SessionID, t.Role, t.Content, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}
	return nil
}

// Ensure LibSQLConversationStore implements the ConversationStore interface.
var _ ports.ConversationStore = (*LibSQLConversationStore)(nil)
