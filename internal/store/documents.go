package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/studyrobo/backend/internal/apperror"
)

func (s *Store) InsertDocumentChunks(ctx context.Context, chunks []DocumentChunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning chunk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO documents
			 (user_id, content, embedding, course_name, original_file_name,
			  file_path, chunk_index, total_chunks)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.UserID, c.Content, pgvector.NewVector(c.Embedding), c.CourseName,
			c.OriginalFileName, c.FilePath, c.ChunkIndex, c.TotalChunks)
		if err != nil {
			return fmt.Errorf("inserting document chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return tx.Commit(ctx)
}

// SearchDocuments ranks chunks by cosine similarity against the query
// embedding. A user sees their own documents, global documents tagged with
// their course, and global documents with no course.
func (s *Store) SearchDocuments(ctx context.Context, embedding []float32, threshold float64, count int, googleID string) ([]SearchHit, error) {
	rows, err := s.pool.Query(ctx,
		`WITH me AS (
		   SELECT id, COALESCE(course_name, '') AS course_name
		   FROM users WHERE google_id = $4
		 )
		 SELECT d.content, d.original_file_name,
		        1 - (d.embedding <=> $1) AS similarity,
		        d.user_id IS NULL AS is_global
		 FROM documents d, me
		 WHERE 1 - (d.embedding <=> $1) > $2
		   AND (d.user_id = me.id
		        OR (d.user_id IS NULL AND (d.course_name = me.course_name OR d.course_name = '')))
		 ORDER BY similarity DESC
		 LIMIT $3`,
		pgvector.NewVector(embedding), threshold, count, googleID)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	hits := []SearchHit{}
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Content, &h.OriginalFileName, &h.Similarity, &h.IsGlobal); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ListUserDocuments returns one row per uploaded file (chunk_index 0).
func (s *Store) ListUserDocuments(ctx context.Context, googleID string) ([]DocumentInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT d.id, d.original_file_name, d.course_name, d.total_chunks, d.created_at
		 FROM documents d
		 JOIN users u ON u.id = d.user_id
		 WHERE u.google_id = $1 AND d.chunk_index = 0
		 ORDER BY d.created_at DESC`, googleID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentInfo{}
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.ID, &d.OriginalFileName, &d.CourseName, &d.TotalChunks, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) GetDocument(ctx context.Context, documentID int64, googleID string) (*DocumentInfo, error) {
	var d DocumentInfo
	err := s.pool.QueryRow(ctx,
		`SELECT d.id, d.original_file_name, d.course_name, d.total_chunks, d.created_at
		 FROM documents d
		 JOIN users u ON u.id = d.user_id
		 WHERE d.id = $1 AND u.google_id = $2`, documentID, googleID).
		Scan(&d.ID, &d.OriginalFileName, &d.CourseName, &d.TotalChunks, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return &d, nil
}

// DeleteDocument removes every chunk of the file the given chunk belongs to,
// provided the caller owns it.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64, googleID string) error {
	var fileName string
	err := s.pool.QueryRow(ctx,
		`SELECT d.original_file_name
		 FROM documents d
		 JOIN users u ON u.id = d.user_id
		 WHERE d.id = $1 AND u.google_id = $2`, documentID, googleID).Scan(&fileName)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("document not found")
	}
	if err != nil {
		return fmt.Errorf("looking up document: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM documents d
		 USING users u
		 WHERE d.user_id = u.id AND u.google_id = $1 AND d.original_file_name = $2`,
		googleID, fileName)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}
