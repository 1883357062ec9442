// Package tools implements the assistant's five capabilities. Every tool
// returns a Result rather than an error: external failures are captured in
// the envelope so the chat pipeline never crashes on a flaky upstream.
package tools

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/studyrobo/backend/internal/googleauth"
	"github.com/studyrobo/backend/internal/llm"
	"github.com/studyrobo/backend/internal/store"
)

// Store is the slice of persistence the tools need.
type Store interface {
	SearchDocuments(ctx context.Context, embedding []float32, threshold float64, count int, googleID string) ([]store.SearchHit, error)
	MarkAttendance(ctx context.Context, googleID, courseName string) (*store.AttendanceRecord, error)
	AttendanceRecords(ctx context.Context, googleID, courseName string) ([]store.AttendanceRecord, error)
	GmailConnection(ctx context.Context, googleID string) (*store.GmailConnection, error)
	UpsertGmailConnection(ctx context.Context, conn store.GmailConnection) error
}

type CareerResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type CareerInsights struct {
	Field   string         `json:"field"`
	Summary string         `json:"summary"`
	Results []CareerResult `json:"results"`
	Tip     string         `json:"tip"`
}

type EmailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// Result is the uniform tool envelope.
type Result struct {
	Success      bool                     `json:"success"`
	Error        string                   `json:"error,omitempty"`
	Message      string                   `json:"message,omitempty"`
	AuthRequired bool                     `json:"auth_required,omitempty"`
	Context      string                   `json:"context,omitempty"`
	Query        string                   `json:"query,omitempty"`
	Insights     *CareerInsights          `json:"insights,omitempty"`
	Records      []store.AttendanceRecord `json:"records,omitempty"`
	Emails       []EmailSummary           `json:"emails,omitempty"`
	DraftID      string                   `json:"draft_id,omitempty"`
	DraftURL     string                   `json:"draft_url,omitempty"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Registry wires the tools to their backing services.
type Registry struct {
	store      Store
	embedder   llm.Embedder
	oauth      *oauth2.Config
	tokens     *googleauth.TokenCache
	tavilyKey  string
	tavilyURL  string
	httpClient *http.Client
}

func NewRegistry(s Store, embedder llm.Embedder, oauth *oauth2.Config, tokens *googleauth.TokenCache, tavilyKey string) *Registry {
	return &Registry{
		store:      s,
		embedder:   embedder,
		oauth:      oauth,
		tokens:     tokens,
		tavilyKey:  tavilyKey,
		tavilyURL:  tavilySearchURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Definitions returns the function declarations advertised to the LLM
// providers. Dispatch is decided by the intent classifier, but the
// declarations still ride along on synthesis calls.
func Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "search_study_material",
			Description: "Search the student's uploaded study materials and course documents",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to look up in the study materials",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "get_career_insights",
			Description: "Fetch current job-market insights for a career field",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field": map[string]any{
						"type":        "string",
						"description": "Career field, e.g. technology or medicine",
					},
				},
				"required": []string{"field"},
			},
		},
		{
			Name:        "mark_attendance",
			Description: "Mark the student present for a course today",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course to mark attendance for",
					},
				},
				"required": []string{"course_name"},
			},
		},
		{
			Name:        "get_attendance_records",
			Description: "List the student's attendance records",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"course_name": map[string]any{
						"type":        "string",
						"description": "Optional course filter",
					},
				},
			},
		},
		{
			Name:        "check_unread_emails",
			Description: "List the student's unread Gmail messages",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of emails to return",
					},
				},
			},
		},
		{
			Name:        "draft_email",
			Description: "Create a Gmail draft for the student",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"to":      map[string]any{"type": "string"},
					"subject": map[string]any{"type": "string"},
					"body":    map[string]any{"type": "string"},
				},
				"required": []string{"to", "subject", "body"},
			},
		},
	}
}
