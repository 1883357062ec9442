package tools

import (
	"context"
	"fmt"
	"strings"
)

const noMaterialsMessage = "No relevant study materials found. Try uploading documents for this topic first."

const (
	searchThreshold = 0.3
	searchCount     = 4
)

// StudyMaterial embeds the query and runs a similarity search over the
// user's visible documents, returning formatted context blocks.
func (r *Registry) StudyMaterial(ctx context.Context, query, googleID string) Result {
	if r.embedder == nil {
		return Result{Success: false, Error: "study material search is not configured (missing OpenAI API key)"}
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return failure(err)
	}

	hits, err := r.store.SearchDocuments(ctx, embedding, searchThreshold, searchCount, googleID)
	if err != nil {
		return failure(err)
	}

	if len(hits) == 0 {
		return Result{Success: true, Query: query, Message: noMaterialsMessage}
	}

	var b strings.Builder
	for i, h := range hits {
		source := "Your Document"
		if h.IsGlobal {
			source = "Course Material"
		}
		fmt.Fprintf(&b, "From %s (%s) - Relevance: %.3f:\n%s",
			source, h.OriginalFileName, h.Similarity, h.Content)
		if i < len(hits)-1 {
			b.WriteString("\n\n---\n\n")
		}
	}

	return Result{Success: true, Query: query, Context: b.String()}
}
