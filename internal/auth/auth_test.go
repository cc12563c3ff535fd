// internal/auth/auth_test.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "repo-mirror/internal/errors"
)

func TestGitLab_AuthCodeURL(t *testing.T) {
	g := NewGitLab(Config{
		BaseURL:     "https://gitlab.example.com/",
		ClientID:    "client",
		RedirectURL: "http://localhost:8080/auth/gitlab/callback",
	})

	raw := g.AuthCodeURL("http://localhost:3000/home")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "gitlab.example.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "read_api", q.Get("scope"))
	assert.Equal(t, "http://localhost:3000/home", q.Get("state"))
	assert.Equal(t, "http://localhost:8080/auth/gitlab/callback", q.Get("redirect_uri"))
}

func TestGitLab_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth/token", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "the-code", r.PostForm.Get("code"))
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintln(w, `{"access_token": "glpat-1", "token_type": "Bearer", "expires_in": 7200}`)
		}))
		t.Cleanup(server.Close)
		g := NewGitLab(Config{BaseURL: server.URL, ClientID: "client", ClientSecret: "secret"})

		token, err := g.Exchange(ctx, "the-code")

		require.NoError(t, err)
		assert.Equal(t, "glpat-1", token.AccessToken)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.False(t, token.Expiry.IsZero())
	})

	t.Run("maps a rejected code to a validation error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, `{"error": "invalid_grant"}`)
		}))
		t.Cleanup(server.Close)
		g := NewGitLab(Config{BaseURL: server.URL, ClientID: "client", ClientSecret: "secret"})

		_, err := g.Exchange(ctx, "bad")

		var validation *custom_errors.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "code", validation.Field)
	})

	t.Run("requires a code", func(t *testing.T) {
		g := NewGitLab(Config{BaseURL: "http://127.0.0.1:1"})

		_, err := g.Exchange(ctx, "")

		var validation *custom_errors.ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"valid", "Bearer abc", "abc", true},
		{"case insensitive scheme", "bearer abc", "abc", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"empty token", "Bearer   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, ok := BearerToken(r)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenContext(t *testing.T) {
	assert.Empty(t, TokenFromContext(context.Background()))
	assert.Equal(t, "abc", TokenFromContext(WithToken(context.Background(), "abc")))
}
