package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/studyrobo/backend/internal/apperror"
)

func (s *Store) CreateConversation(ctx context.Context, googleID, title string) (*Conversation, error) {
	id := uuid.NewString()
	var c Conversation
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, user_id, title)
		 SELECT $1, u.id, $2 FROM users u WHERE u.google_id = $3
		 RETURNING id, title, created_at, updated_at`,
		id, title, googleID).
		Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, googleID string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.title, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		 FROM conversations c
		 JOIN users u ON u.id = c.user_id
		 WHERE u.google_id = $1
		 ORDER BY c.updated_at DESC`, googleID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (s *Store) UpdateConversationTitle(ctx context.Context, conversationID, googleID, title string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations c SET title = $1, updated_at = now()
		 FROM users u
		 WHERE c.id = $2 AND c.user_id = u.id AND u.google_id = $3`,
		title, conversationID, googleID)
	if err != nil {
		return fmt.Errorf("updating conversation title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("conversation not found")
	}
	return nil
}

// DeleteConversation removes a conversation and its messages in one
// transaction. The ownership join means a foreign conversation id simply
// matches no rows and nothing is deleted.
func (s *Store) DeleteConversation(ctx context.Context, conversationID, googleID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM messages m
		 USING conversations c, users u
		 WHERE m.conversation_id = c.id AND c.id = $1
		   AND c.user_id = u.id AND u.google_id = $2`,
		conversationID, googleID); err != nil {
		return fmt.Errorf("deleting conversation messages: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM conversations c
		 USING users u
		 WHERE c.id = $1 AND c.user_id = u.id AND u.google_id = $2`,
		conversationID, googleID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("conversation not found")
	}

	return tx.Commit(ctx)
}
