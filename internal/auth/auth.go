// internal/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	custom_errors "repo-mirror/internal/errors"
)

// Scope requested from GitLab; read-only API access is all the mirror needs.
const Scope = "read_api"

// Config holds the GitLab OAuth application settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GitLab runs the OAuth2 authorization-code flow against a GitLab instance.
type GitLab struct {
	oauth *oauth2.Config
}

func NewGitLab(cfg Config) *GitLab {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &GitLab{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth/authorize",
				TokenURL: base + "/oauth/token",
			},
		},
	}
}

// AuthCodeURL returns the GitLab consent page URL. state is echoed back on the callback.
func (g *GitLab) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (g *GitLab) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, &custom_errors.ValidationError{Field: "code", Message: "is required"}
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return nil, &custom_errors.ValidationError{Field: "code", Message: "rejected by provider"}
		}
		return nil, &custom_errors.UpstreamError{Op: "token exchange", Err: err}
	}
	return token, nil
}

type contextKey struct{}

// BearerToken extracts the credential from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithToken stores the caller's upstream credential in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// TokenFromContext returns the credential stored by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}
