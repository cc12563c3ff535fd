// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

const repoJSON = `{"id": 1, "name": "repo", "owner": {"login": "test"}, "visibility": "public",
	"pushed_at": "2024-02-15T00:00:00Z", "updated_at": "2024-02-01T00:00:00Z", "topics": ["go"]}`

// setupTestClient creates a httptest server and a github client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := NewClient(Options{
		BaseURL:      server.URL,
		Timeout:      5 * time.Second,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}, logger)
	require.NoError(t, err)

	return client
}

func TestClient_GetRepository_Retry(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/repositories/1", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client := setupTestClient(t, handler)

		repo, err := client.GetRepository(context.Background(), "secret", 1)

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Equal(t, "repo", repo.Name)
		assert.Equal(t, "test", *repo.Author)
		assert.Equal(t, model.VisibilityPublic, repo.Visibility)
		assert.True(t, repo.LastActivityAt.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)), "latest of pushed_at and updated_at")
		assert.Nil(t, repo.LicenseName)
	})

	t.Run("retries on 503 server error and succeeds", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.WriteHeader(http.StatusServiceUnavailable) // Fail first time
				return
			}
			w.WriteHeader(http.StatusOK) // Succeed second time
			fmt.Fprintln(w, repoJSON)
		})
		client := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "", 1)

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount), "should have made two requests")
	})

	t.Run("handles rate limit error", func(t *testing.T) {
		var requestCount int32
		reset := time.Unix(time.Now().Add(time.Second).Unix(), 0)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "", 1)

		require.NoError(t, err)
		assert.False(t, time.Now().Before(reset), "client should wait for rate limit reset")
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
	})

	t.Run("fails after max retries on persistent server error", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		client := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "", 1)

		require.Error(t, err)
		var upstream *custom_errors.UpstreamError
		assert.ErrorAs(t, err, &upstream)
		var ghErr *github.ErrorResponse
		require.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusInternalServerError, ghErr.Response.StatusCode)
		assert.Equal(t, int32(maxRetries+1), atomic.LoadInt32(&requestCount), "first attempt plus maxRetries retries")
	})

	t.Run("does not retry a 404 and reports NotFound", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "", 1)

		var notFound *custom_errors.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})
}

func TestClient_ListCommitsAndBranches(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repositories/1":
			fmt.Fprintln(w, repoJSON)
		case "/repos/test/repo/commits":
			fmt.Fprintln(w, `[
				{"sha": "abc", "commit": {"author": {"name": "tester", "email": "t@t.com", "date": "2024-01-01T12:00:00Z"}, "message": "feat: new feature"}},
				{"sha": "def", "commit": {"author": {"name": "tester", "email": "t@t.com", "date": "2024-01-02T12:00:00Z"}, "message": "fix: a bug"}}
			]`)
		case "/repos/test/repo/branches":
			fmt.Fprintln(w, `[{"name": "main", "commit": {"sha": "def"}}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := setupTestClient(t, handler)
	ctx := context.Background()

	commits, err := client.ListCommits(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc", commits[0].ID)
	assert.Equal(t, int64(1), commits[0].RepositoryID)
	assert.Equal(t, "fix: a bug", commits[1].Message)
	assert.True(t, commits[0].Date.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))

	branches, err := client.ListBranches(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Branch{{Name: "main", RepositoryID: 1, CommitID: "def"}}, branches)
}

func TestClient_ResolvesRepositoryOnce(t *testing.T) {
	var lookups int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repositories/1":
			atomic.AddInt32(&lookups, 1)
			fmt.Fprintln(w, repoJSON)
		case "/repos/test/repo/commits":
			fmt.Fprintln(w, `[{"sha": "abc", "commit": {"author": {"name": "tester"}, "message": "init"}}]`)
		case "/repos/test/repo/branches":
			fmt.Fprintln(w, `[{"name": "main", "commit": {"sha": "abc"}}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := setupTestClient(t, handler)
	ctx := context.Background()

	_, err := client.GetRepository(ctx, "", 1)
	require.NoError(t, err)
	commits, err := client.ListCommits(ctx, "", 1)
	require.NoError(t, err)
	branches, err := client.ListBranches(ctx, "", 1)
	require.NoError(t, err)

	assert.Len(t, commits, 1)
	assert.Len(t, branches, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&lookups))
}
