// Package googleauth handles the Gmail OAuth linking flow: building the
// consent URL, validating the callback state and exchanging the code.
package googleauth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/studyrobo/backend/internal/config"
)

var gmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.compose",
}

// OAuthConfig builds the oauth2 config for the Gmail connection flow.
func OAuthConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.FrontendURL + "/auth/google/callback",
		Scopes:       gmailScopes,
		Endpoint:     google.Endpoint,
	}
}
