package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/studyrobo/backend/internal/apperror"
)

const gmailNotConnected = "Your Gmail account is not connected. Please connect it from the settings page."

// gmailService builds an authenticated Gmail client from the stored
// refresh token, going through the access-token cache when possible.
func (r *Registry) gmailService(ctx context.Context, googleID string) (*gmail.Service, error) {
	conn, err := r.store.GmailConnection(ctx, googleID)
	if err != nil {
		return nil, err
	}
	if conn.RefreshToken == "" {
		return nil, apperror.Auth("gmail connection has no refresh token")
	}

	token := &oauth2.Token{RefreshToken: conn.RefreshToken}
	if cached, ok := r.tokens.Get(ctx, googleID); ok {
		token.AccessToken = cached
	}

	src := r.oauth.TokenSource(ctx, token)
	fresh, err := src.Token()
	if err != nil {
		return nil, classifyGoogleErr(err)
	}
	if fresh.AccessToken != token.AccessToken {
		r.tokens.Put(ctx, googleID, fresh.AccessToken, fresh.Expiry)
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail client: %w", err)
	}
	return svc, nil
}

// classifyGoogleErr maps revoked/expired grants to an auth error so the
// caller can ask the user to reconnect.
func classifyGoogleErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 401 || gerr.Code == 403) {
		return apperror.Auth("gmail authorization expired")
	}
	if strings.Contains(err.Error(), "invalid_grant") {
		return apperror.Auth("gmail authorization revoked")
	}
	return apperror.Externalf("gmail request failed: %v", err)
}

// UnreadEmails lists up to max unread messages with their headers.
func (r *Registry) UnreadEmails(ctx context.Context, googleID string, max int64) Result {
	if max <= 0 {
		max = 5
	}

	svc, err := r.gmailService(ctx, googleID)
	if err != nil {
		return gmailFailure(err)
	}

	list, err := svc.Users.Messages.List("me").Q("is:unread").MaxResults(max).Context(ctx).Do()
	if err != nil {
		return gmailFailure(classifyGoogleErr(err))
	}

	emails := []EmailSummary{}
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			return gmailFailure(classifyGoogleErr(err))
		}

		summary := EmailSummary{ID: ref.Id, Snippet: msg.Snippet}
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				summary.Subject = h.Value
			case "From":
				summary.From = h.Value
			case "Date":
				summary.Date = h.Value
			}
		}
		emails = append(emails, summary)
	}

	return Result{Success: true, Emails: emails}
}

// DraftEmail creates a Gmail draft and returns its id and edit URL.
func (r *Registry) DraftEmail(ctx context.Context, googleID, to, subject, body string) Result {
	svc, err := r.gmailService(ctx, googleID)
	if err != nil {
		return gmailFailure(err)
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		to, subject, body)

	draft, err := svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
		},
	}).Context(ctx).Do()
	if err != nil {
		return gmailFailure(classifyGoogleErr(err))
	}

	return Result{
		Success:  true,
		DraftID:  draft.Id,
		DraftURL: "https://mail.google.com/mail/u/0/#drafts?compose=" + draft.Id,
		Message:  fmt.Sprintf("Draft to %s created.", to),
	}
}

func gmailFailure(err error) Result {
	if errors.Is(err, apperror.ErrNotFound) {
		return Result{Success: false, AuthRequired: true, Error: gmailNotConnected}
	}
	if errors.Is(err, apperror.ErrAuth) {
		return Result{Success: false, AuthRequired: true, Error: "Gmail access expired. Please reconnect your account."}
	}
	return failure(err)
}
