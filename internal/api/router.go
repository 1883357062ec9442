package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the full route tree. Health endpoints are public; every
// other /api/v1 route requires a bearer token.
func NewRouter(h *Handler, frontendURL string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "StudyRobo API is running"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/health", healthHandler("auth"))
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Get("/me", h.handleMe)
				r.Post("/sync-user", h.handleSyncUser)
				r.Get("/google-auth-url", h.handleGoogleConnect)
				r.Get("/google-callback", h.handleGoogleCallbackRedirect)
				r.Post("/google-callback", h.handleGoogleCallback)
				r.Get("/google-tokens", h.handleGoogleTokens)
				r.Post("/google-tokens", h.handleSaveGoogleTokens)
			})
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/health", healthHandler("chat"))
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/", h.handleChat)
				r.Get("/messages", h.handleChatHistory)
				r.Get("/history", h.handleChatHistory)
			})
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/health", healthHandler("conversations"))
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/", h.handleCreateConversation)
				r.Get("/", h.handleListConversations)
				r.Put("/{conversationID}", h.handleRenameConversation)
				r.Delete("/{conversationID}", h.handleDeleteConversation)
				r.Get("/{conversationID}/messages", h.handleConversationMessages)
				r.Post("/{conversationID}/messages", h.handlePostConversationMessage)
			})
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/health", healthHandler("documents"))
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/upload", h.handleUploadDocument)
				r.Get("/", h.handleListDocuments)
				r.Get("/user", h.handleListDocuments)
				r.Get("/{documentID}", h.handleGetDocument)
				r.Delete("/{documentID}", h.handleDeleteDocument)
			})
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/health", healthHandler("attendance"))
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/mark", h.handleMarkAttendance)
				r.Get("/records", h.handleAttendanceRecords)
				r.Get("/stats", h.handleAttendanceStats)
			})
		})

		r.Route("/gmail", func(r chi.Router) {
			r.Get("/health", healthHandler("gmail"))
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Get("/unread", h.handleUnreadEmails)
				r.Post("/draft", h.handleDraftEmail)
				r.Get("/status", h.handleGmailStatus)
				r.Get("/info", h.handleGmailStatus)
				r.Delete("/disconnect", h.handleGmailDisconnect)
				r.Get("/connect", h.handleGoogleConnect)
				r.Post("/callback", h.handleGoogleCallback)
			})
		})
	})

	return r
}
