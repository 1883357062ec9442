package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyrobo/backend/internal/apperror"
)

// AddMessage appends a message outside any conversation (legacy chat path).
func (s *Store) AddMessage(ctx context.Context, googleID, role, content string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO messages (user_id, role, content)
		 SELECT u.id, $1, $2 FROM users u WHERE u.google_id = $3`,
		role, content, googleID)
	if err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

// AddConversationMessage appends a message to a conversation owned by
// googleID and bumps the conversation's updated_at.
func (s *Store) AddConversationMessage(ctx context.Context, conversationID, googleID, role, content string) error {
	var msgID int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (user_id, conversation_id, role, content)
		 SELECT c.user_id, c.id, $1, $2
		 FROM conversations c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.id = $3 AND u.google_id = $4
		 RETURNING id`,
		role, content, conversationID, googleID).Scan(&msgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("conversation not found")
	}
	if err != nil {
		return fmt.Errorf("adding conversation message: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, conversationID)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	return nil
}

func (s *Store) MessagesByConversation(ctx context.Context, conversationID, googleID string) ([]Message, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM conversations c
		   JOIN users u ON u.id = c.user_id
		   WHERE c.id = $1 AND u.google_id = $2)`,
		conversationID, googleID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking conversation ownership: %w", err)
	}
	if !exists {
		return nil, apperror.NotFound("conversation not found")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, role, content, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing conversation messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *Store) MessagesByUser(ctx context.Context, googleID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.role, m.content, m.created_at
		 FROM messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE u.google_id = $1
		 ORDER BY m.created_at ASC, m.id ASC
		 LIMIT $2`, googleID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing user messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
