package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyrobo/backend/internal/apperror"
)

const gmailApp = "gmail"

func (s *Store) UpsertGmailConnection(ctx context.Context, conn GmailConnection) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_connections
		 (user_id, app_name, refresh_token, access_token, token_expiry)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, app_name) DO UPDATE SET
		   refresh_token = CASE WHEN EXCLUDED.refresh_token <> ''
		                        THEN EXCLUDED.refresh_token
		                        ELSE user_connections.refresh_token END,
		   access_token = EXCLUDED.access_token,
		   token_expiry = EXCLUDED.token_expiry,
		   updated_at = now()`,
		conn.GoogleID, gmailApp, conn.RefreshToken, conn.AccessToken, conn.TokenExpiry)
	if err != nil {
		return fmt.Errorf("upserting gmail connection: %w", err)
	}
	return nil
}

func (s *Store) GmailConnection(ctx context.Context, googleID string) (*GmailConnection, error) {
	var c GmailConnection
	c.GoogleID = googleID
	err := s.pool.QueryRow(ctx,
		`SELECT refresh_token, access_token, COALESCE(token_expiry, 'epoch'::timestamptz)
		 FROM user_connections
		 WHERE user_id = $1 AND app_name = $2`, googleID, gmailApp).
		Scan(&c.RefreshToken, &c.AccessToken, &c.TokenExpiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("gmail not connected")
	}
	if err != nil {
		return nil, fmt.Errorf("loading gmail connection: %w", err)
	}
	return &c, nil
}

func (s *Store) DeleteGmailConnection(ctx context.Context, googleID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_connections WHERE user_id = $1 AND app_name = $2`,
		googleID, gmailApp)
	if err != nil {
		return fmt.Errorf("deleting gmail connection: %w", err)
	}
	return nil
}
