package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyrobo/backend/internal/apperror"
)

func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, google_id, email, name, course_name, created_at
		 FROM users WHERE google_id = $1`, googleID).
		Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.CourseName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// EnsureUser returns the user for googleID, creating the row on first sight.
func (s *Store) EnsureUser(ctx context.Context, googleID, email, name string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (google_id, email, name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (google_id) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, google_id, email, name, course_name, created_at`,
		googleID, email, name).
		Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.CourseName, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensuring user: %w", err)
	}
	return &u, nil
}

func (s *Store) UpdateUserCourse(ctx context.Context, googleID, courseName string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET course_name = $1 WHERE google_id = $2`, courseName, googleID)
	if err != nil {
		return fmt.Errorf("updating user course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}
