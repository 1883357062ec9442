// Package core holds the chat pipeline: intent classification, forced tool
// dispatch and reply composition.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studyrobo/backend/internal/llm"
	"github.com/studyrobo/backend/internal/store"
	"github.com/studyrobo/backend/internal/tools"
)

// ChatStore is the persistence the chat pipeline needs.
type ChatStore interface {
	AddMessage(ctx context.Context, googleID, role, content string) error
	AddConversationMessage(ctx context.Context, conversationID, googleID, role, content string) error
}

// ToolRunner dispatches to the five assistant tools.
type ToolRunner interface {
	StudyMaterial(ctx context.Context, query, googleID string) tools.Result
	CareerInsightsFor(ctx context.Context, field string) tools.Result
	MarkAttendance(ctx context.Context, googleID, courseName string) tools.Result
	AttendanceRecordsFor(ctx context.Context, googleID, courseName string) tools.Result
	UnreadEmails(ctx context.Context, googleID string, max int64) tools.Result
	DraftEmail(ctx context.Context, googleID, to, subject, body string) tools.Result
}

type ChatService struct {
	store    ChatStore
	tools    ToolRunner
	provider llm.Provider
	logger   *slog.Logger
}

func NewChatService(store ChatStore, tr ToolRunner, provider llm.Provider, logger *slog.Logger) *ChatService {
	return &ChatService{store: store, tools: tr, provider: provider, logger: logger}
}

// Respond runs one chat turn: persist the user message, classify its
// intent, run exactly one tool, compose the reply and persist it. Tool
// failures become an apologetic reply rather than a request error.
func (s *ChatService) Respond(ctx context.Context, googleID, conversationID, message string) (string, error) {
	if err := s.persist(ctx, googleID, conversationID, "user", message); err != nil {
		return "", err
	}

	intent := DetectIntent(message)
	s.logger.Info("dispatching chat message", "intent", string(intent), "conversation", conversationID)

	result, reply := s.dispatch(ctx, intent, googleID, message)
	if reply == "" {
		reply = s.composeReply(ctx, message, result)
	}

	if err := s.persist(ctx, googleID, conversationID, "ai", reply); err != nil {
		// The user already has their answer; losing the stored copy is
		// worth a log line, not a failed request.
		s.logger.Error("persisting assistant reply failed", "error", err)
	}
	return reply, nil
}

func (s *ChatService) persist(ctx context.Context, googleID, conversationID, role, content string) error {
	if conversationID != "" {
		return s.store.AddConversationMessage(ctx, conversationID, googleID, role, content)
	}
	return s.store.AddMessage(ctx, googleID, role, content)
}

// dispatch runs the single tool chosen for the intent. It may short-circuit
// with a ready reply (for clarification prompts).
func (s *ChatService) dispatch(ctx context.Context, intent Intent, googleID, message string) (tools.Result, string) {
	switch intent {
	case IntentCareer:
		return s.tools.CareerInsightsFor(ctx, extractCareerField(message)), ""

	case IntentAttendance:
		course := extractCourseName(message)
		if wantsAttendanceMark(message) {
			return s.tools.MarkAttendance(ctx, googleID, course), ""
		}
		filter := ""
		if course != "General" {
			filter = course
		}
		return s.tools.AttendanceRecordsFor(ctx, googleID, filter), ""

	case IntentEmail:
		if wantsEmailDraft(message) {
			details := extractEmailDetails(message)
			if details.To == "" {
				return tools.Result{Success: true}, "Who should the email go to? Include the recipient's address and I'll draft it."
			}
			return s.tools.DraftEmail(ctx, googleID, details.To, details.Subject, details.Body), ""
		}
		return s.tools.UnreadEmails(ctx, googleID, unreadFetchLimit), ""

	default:
		// study and general both go through material search; general
		// questions often hit uploaded notes anyway.
		return s.tools.StudyMaterial(ctx, message, googleID), ""
	}
}

func (s *ChatService) composeReply(ctx context.Context, message string, result tools.Result) string {
	if !result.Success {
		if result.AuthRequired {
			return result.Error
		}
		// career search without an API key still carries a usable
		// fallback payload
		if result.Insights != nil {
			return formatCareerReply(result.Insights)
		}
		return "I encountered an error while processing your request: " + result.Error
	}

	switch {
	case result.Context != "":
		return s.synthesize(ctx, message, result.Context)
	case result.Insights != nil:
		return formatCareerReply(result.Insights)
	case result.Records != nil:
		return formatAttendanceReply(result.Records)
	case result.Emails != nil:
		return formatEmailReply(result.Emails)
	case result.Message != "":
		return result.Message
	default:
		return "Done."
	}
}

const synthesisSystemPrompt = "You are StudyRobo, a helpful study assistant. Answer the student's question using only the provided study material excerpts. Be clear and concise. If the excerpts do not cover the question, say so."

// synthesize asks the LLM to answer from the retrieved excerpts. If the
// provider fails, the raw context is still a useful reply.
func (s *ChatService) synthesize(ctx context.Context, question, studyContext string) string {
	completion, err := s.provider.CreateCompletion(ctx, llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: synthesisSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Study material excerpts:\n\n%s\n\nQuestion: %s", studyContext, question)},
		},
		MaxTokens:   1500,
		Temperature: 0.3,
	})
	if err != nil {
		s.logger.Error("synthesis failed, falling back to raw context", "error", err)
		return "Here's what I found in your study materials:\n\n" + studyContext
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "Here's what I found in your study materials:\n\n" + studyContext
	}
	return completion.Choices[0].Message.Content + "\n\n_Based on your study materials._"
}

func formatCareerReply(insights *tools.CareerInsights) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what the job market looks like for %s:\n\n", insights.Field)
	if insights.Summary != "" {
		b.WriteString(insights.Summary)
		b.WriteString("\n")
	}
	for _, r := range insights.Results {
		fmt.Fprintf(&b, "\n- %s (%s)", r.Title, r.URL)
	}
	if insights.Tip != "" {
		fmt.Fprintf(&b, "\n\nTip: %s", insights.Tip)
	}
	return b.String()
}

func formatAttendanceReply(records []store.AttendanceRecord) string {
	if len(records) == 0 {
		return "No attendance records yet. Say \"mark me present for <course>\" to add one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d attendance record(s):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "\n- %s on %s", r.CourseName, r.MarkedAt.Format("January 2, 2006"))
	}
	return b.String()
}

// unreadFetchLimit is how many unread messages the tool retrieves; the
// reply shows at most unreadShowLimit of them.
const (
	unreadFetchLimit = 10
	unreadShowLimit  = 5
)

func formatEmailReply(emails []tools.EmailSummary) string {
	if len(emails) == 0 {
		return "Your inbox is clear, no unread emails."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d unread email(s):\n", len(emails))
	for i, e := range emails {
		if i == unreadShowLimit {
			fmt.Fprintf(&b, "\n...and %d more.", len(emails)-unreadShowLimit)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s (from %s)", i+1, e.Subject, e.From)
		if e.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", e.Snippet)
		}
	}
	return b.String()
}
