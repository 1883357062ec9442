package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/studyrobo/backend/internal/apperror"
	"github.com/studyrobo/backend/internal/llm"
	"github.com/studyrobo/backend/internal/store"
)

const (
	chunkSize    = 1000
	chunkOverlap = 150
)

type IngestStore interface {
	GetUserByGoogleID(ctx context.Context, googleID string) (*store.User, error)
	InsertDocumentChunks(ctx context.Context, chunks []store.DocumentChunk) error
}

// IngestService turns uploaded files into embedded, searchable chunks.
type IngestService struct {
	store    IngestStore
	embedder llm.Embedder
	logger   *slog.Logger
}

func NewIngestService(st IngestStore, embedder llm.Embedder, logger *slog.Logger) *IngestService {
	return &IngestService{store: st, embedder: embedder, logger: logger}
}

// Upload validates, extracts, chunks, embeds and stores one file. The file
// type is checked before any extraction or embedding work happens.
func (s *IngestService) Upload(ctx context.Context, googleID, fileName string, data []byte, courseName string) (int, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ".pdf" && ext != ".docx" {
		return 0, apperror.Validation("only PDF and DOCX files are supported")
	}
	if len(data) == 0 {
		return 0, apperror.Validation("uploaded file is empty")
	}
	if s.embedder == nil {
		return 0, apperror.Configuration("document upload requires an OpenAI API key for embeddings")
	}

	user, err := s.store.GetUserByGoogleID(ctx, googleID)
	if err != nil {
		return 0, err
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = extractPDFText(data)
	case ".docx":
		text, err = extractDOCXText(data)
	}
	if err != nil {
		return 0, apperror.Validation(fmt.Sprintf("could not read %s: %v", fileName, err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperror.Validation("no extractable text in " + fileName)
	}

	parts := splitText(text, chunkSize, chunkOverlap)
	chunks := make([]store.DocumentChunk, 0, len(parts))
	for i, part := range parts {
		embedding, err := s.embedder.Embed(ctx, part)
		if err != nil {
			return 0, err
		}
		chunks = append(chunks, store.DocumentChunk{
			UserID:           &user.ID,
			Content:          part,
			Embedding:        embedding,
			CourseName:       courseName,
			OriginalFileName: fileName,
			ChunkIndex:       i,
			TotalChunks:      len(parts),
		})
	}

	if err := s.store.InsertDocumentChunks(ctx, chunks); err != nil {
		return 0, err
	}

	s.logger.Info("document ingested", "file", fileName, "chunks", len(chunks))
	return len(chunks), nil
}

// splitText cuts text into overlapping windows measured in runes so
// multi-byte characters are never split.
func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var parts []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			parts = append(parts, string(runes[start:]))
			break
		}
		parts = append(parts, string(runes[start:end]))
		start = end - overlap
	}
	return parts
}
