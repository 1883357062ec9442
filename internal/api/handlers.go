// Package api exposes the HTTP surface: authentication middleware,
// request handlers and the chi router.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/studyrobo/backend/internal/apperror"
	"github.com/studyrobo/backend/internal/auth"
	"github.com/studyrobo/backend/internal/googleauth"
	"github.com/studyrobo/backend/internal/store"
	"github.com/studyrobo/backend/internal/tools"
)

// assumedClassesPerCourse drives the attendance percentage shown by the
// stats endpoint; there is no timetable to count real sessions against.
const assumedClassesPerCourse = 15

const maxUploadBytes = 20 << 20

// Store is the persistence surface the handlers use directly.
type Store interface {
	GetUserByGoogleID(ctx context.Context, googleID string) (*store.User, error)
	EnsureUser(ctx context.Context, googleID, email, name string) (*store.User, error)
	UpdateUserCourse(ctx context.Context, googleID, courseName string) error

	CreateConversation(ctx context.Context, googleID, title string) (*store.Conversation, error)
	ListConversations(ctx context.Context, googleID string) ([]store.Conversation, error)
	UpdateConversationTitle(ctx context.Context, conversationID, googleID, title string) error
	DeleteConversation(ctx context.Context, conversationID, googleID string) error
	MessagesByConversation(ctx context.Context, conversationID, googleID string) ([]store.Message, error)
	MessagesByUser(ctx context.Context, googleID string, limit int) ([]store.Message, error)
	AddConversationMessage(ctx context.Context, conversationID, googleID, role, content string) error

	ListUserDocuments(ctx context.Context, googleID string) ([]store.DocumentInfo, error)
	GetDocument(ctx context.Context, documentID int64, googleID string) (*store.DocumentInfo, error)
	DeleteDocument(ctx context.Context, documentID int64, googleID string) error

	MarkAttendance(ctx context.Context, googleID, courseName string) (*store.AttendanceRecord, error)
	AttendanceRecords(ctx context.Context, googleID, courseName string) ([]store.AttendanceRecord, error)
	AttendanceSummaries(ctx context.Context, googleID string) ([]store.AttendanceSummary, error)

	UpsertGmailConnection(ctx context.Context, conn store.GmailConnection) error
	GmailConnection(ctx context.Context, googleID string) (*store.GmailConnection, error)
	DeleteGmailConnection(ctx context.Context, googleID string) error
}

// ChatResponder runs one chat turn.
type ChatResponder interface {
	Respond(ctx context.Context, googleID, conversationID, message string) (string, error)
}

// Uploader ingests an uploaded document.
type Uploader interface {
	Upload(ctx context.Context, googleID, fileName string, data []byte, courseName string) (int, error)
}

// MailTools is the slice of the tool registry the gmail endpoints use.
type MailTools interface {
	UnreadEmails(ctx context.Context, googleID string, max int64) tools.Result
	DraftEmail(ctx context.Context, googleID, to, subject, body string) tools.Result
}

type Handler struct {
	store  Store
	chat   ChatResponder
	ingest Uploader
	mail   MailTools
	oauth  *oauth2.Config
	states *googleauth.StateStore
	logger *slog.Logger
}

func NewHandler(st Store, chat ChatResponder, ingest Uploader, mail MailTools, oauth *oauth2.Config, states *googleauth.StateStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  st,
		chat:   chat,
		ingest: ingest,
		mail:   mail,
		oauth:  oauth,
		states: states,
		logger: logger,
	}
}

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware parses the bearer token and stores the claims on the
// request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.ParseToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}

// --- auth ---

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, err := h.store.GetUserByGoogleID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type syncUserRequest struct {
	Name       string `json:"name"`
	CourseName string `json:"course_name"`
}

// handleSyncUser lazily creates the user row on first login and updates
// the chosen course.
func (h *Handler) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req syncUserRequest
	decodeJSON(r, &req) // body is optional

	user, err := h.store.EnsureUser(r.Context(), claims.UserID, claims.Email, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.CourseName != "" {
		if err := h.store.UpdateUserCourse(r.Context(), claims.UserID, req.CourseName); err != nil {
			writeError(w, err)
			return
		}
		user.CourseName = &req.CourseName
	}
	writeJSON(w, http.StatusOK, user)
}

// --- chat ---

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Message == "" {
		writeError(w, apperror.Validation("message is required"))
		return
	}

	reply, err := h.chat.Respond(r.Context(), claims.UserID, req.ConversationID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply":           reply,
		"conversation_id": req.ConversationID,
	})
}

func (h *Handler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.store.MessagesByUser(r.Context(), claims.UserID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// --- conversations ---

type conversationRequest struct {
	Title string `json:"title"`
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req conversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Title == "" {
		req.Title = "New Conversation"
	}

	conversation, err := h.store.CreateConversation(r.Context(), claims.UserID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	conversations, err := h.store.ListConversations(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (h *Handler) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id := chi.URLParam(r, "conversationID")

	var req conversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Title == "" {
		writeError(w, apperror.Validation("title is required"))
		return
	}

	if err := h.store.UpdateConversationTitle(r.Context(), id, claims.UserID, req.Title); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id := chi.URLParam(r, "conversationID")

	if err := h.store.DeleteConversation(r.Context(), id, claims.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id := chi.URLParam(r, "conversationID")

	messages, err := h.store.MessagesByConversation(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type postMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handlePostConversationMessage appends a message to a conversation without
// running the chat pipeline; the frontend uses it to backfill history.
func (h *Handler) handlePostConversationMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id := chi.URLParam(r, "conversationID")

	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	if req.Role != "user" && req.Role != "ai" {
		writeError(w, apperror.Validation("role must be user or ai"))
		return
	}
	if req.Content == "" {
		writeError(w, apperror.Validation("content is required"))
		return
	}

	if err := h.store.AddConversationMessage(r.Context(), id, claims.UserID, req.Role, req.Content); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// --- documents ---

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.Validation("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.Validation("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, apperror.Validation("could not read uploaded file"))
		return
	}

	courseName := r.FormValue("course_name")
	chunks, err := h.ingest.Upload(r.Context(), claims.UserID, header.Filename, data, courseName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"file_name":      header.Filename,
		"chunks_created": chunks,
	})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	docs, err := h.store.ListUserDocuments(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		writeError(w, apperror.Validation("invalid document id"))
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		writeError(w, apperror.Validation("invalid document id"))
		return
	}

	if err := h.store.DeleteDocument(r.Context(), id, claims.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- attendance ---

type markAttendanceRequest struct {
	CourseName string `json:"course_name"`
}

func (h *Handler) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req markAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CourseName == "" {
		writeError(w, apperror.Validation("course_name is required"))
		return
	}

	record, err := h.store.MarkAttendance(r.Context(), claims.UserID, req.CourseName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleAttendanceRecords(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	records, err := h.store.AttendanceRecords(r.Context(), claims.UserID, r.URL.Query().Get("course_name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

type attendanceStat struct {
	CourseName string  `json:"course_name"`
	Attended   int     `json:"attended"`
	Total      int     `json:"total_classes"`
	Percentage float64 `json:"percentage"`
}

func (h *Handler) handleAttendanceStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	summaries, err := h.store.AttendanceSummaries(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	stats := []attendanceStat{}
	for _, s := range summaries {
		stats = append(stats, attendanceStat{
			CourseName: s.CourseName,
			Attended:   s.Count,
			Total:      assumedClassesPerCourse,
			Percentage: float64(s.Count) / assumedClassesPerCourse * 100,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// --- gmail ---

func (h *Handler) handleUnreadEmails(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	max, _ := strconv.ParseInt(r.URL.Query().Get("max_results"), 10, 64)

	result := h.mail.UnreadEmails(r.Context(), claims.UserID, max)
	writeJSON(w, http.StatusOK, result)
}

type draftEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handler) handleDraftEmail(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req draftEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.To == "" {
		writeError(w, apperror.Validation("to is required"))
		return
	}

	result := h.mail.DraftEmail(r.Context(), claims.UserID, req.To, req.Subject, req.Body)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGmailStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	_, err := h.store.GmailConnection(r.Context(), claims.UserID)
	writeJSON(w, http.StatusOK, map[string]bool{"connected": err == nil})
}

func (h *Handler) handleGmailDisconnect(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := h.store.DeleteGmailConnection(r.Context(), claims.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// handleGoogleConnect starts the OAuth flow: issue a state bound to the
// caller and return the consent URL for the frontend to redirect to.
func (h *Handler) handleGoogleConnect(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	state, err := h.states.Issue(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	url := h.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

type googleCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// handleGoogleCallback finishes the flow: the state must match one we
// issued, and the code is exchanged for tokens which are persisted.
func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	var req googleCallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.finishGoogleCallback(w, r, req.Code, req.State)
}

// handleGoogleCallbackRedirect is the GET variant Google redirects to, with
// code and state in the query string.
func (h *Handler) handleGoogleCallbackRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.finishGoogleCallback(w, r, q.Get("code"), q.Get("state"))
}

func (h *Handler) finishGoogleCallback(w http.ResponseWriter, r *http.Request, code, state string) {
	if code == "" || state == "" {
		writeError(w, apperror.Validation("code and state are required"))
		return
	}

	googleID, err := h.states.Consume(r.Context(), state)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, apperror.Externalf("google token exchange failed: %v", err))
		return
	}

	err = h.store.UpsertGmailConnection(r.Context(), store.GmailConnection{
		GoogleID:     googleID,
		RefreshToken: token.RefreshToken,
		AccessToken:  token.AccessToken,
		TokenExpiry:  token.Expiry,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// handleGoogleTokens reports whether the caller has a Gmail connection and
// when its cached access token expires. Token values are never returned.
func (h *Handler) handleGoogleTokens(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	conn, err := h.store.GmailConnection(r.Context(), claims.UserID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"connected": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":         true,
		"has_refresh_token": conn.RefreshToken != "",
		"token_expiry":      conn.TokenExpiry,
	})
}

type saveTokensRequest struct {
	RefreshToken string    `json:"refresh_token"`
	AccessToken  string    `json:"access_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

// handleSaveGoogleTokens stores tokens the frontend obtained itself, for
// clients that run the consent flow without the server-issued state.
func (h *Handler) handleSaveGoogleTokens(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req saveTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, apperror.Validation("refresh_token is required"))
		return
	}

	err := h.store.UpsertGmailConnection(r.Context(), store.GmailConnection{
		GoogleID:     claims.UserID,
		RefreshToken: req.RefreshToken,
		AccessToken:  req.AccessToken,
		TokenExpiry:  req.TokenExpiry,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
