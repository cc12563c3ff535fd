// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"repo-mirror/internal/auth"
	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

// RepositoryService is the sync orchestrator as seen by the HTTP layer.
type RepositoryService interface {
	GetRepositoryByID(ctx context.Context, id int64, marker *time.Time, token string) (*model.Repository, error)
	ListRepositories(ctx context.Context, token string, opts model.ListOptions) ([]model.RepositorySummary, error)
	UpdateRepository(ctx context.Context, id int64, fields map[string]any) (*model.Repository, error)
	DeleteRepository(ctx context.Context, id int64) error
	DeleteCommit(ctx context.Context, repoID int64, commitID string) error
	DeleteBranch(ctx context.Context, repoID int64, name string) error
}

// Assistant answers questions about a mirrored repository.
type Assistant interface {
	Ask(ctx context.Context, repoID int64, question string) (string, error)
}

// OAuthProvider runs the upstream authorization-code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	repos     RepositoryService
	assistant Assistant
	oauth     OAuthProvider
	logger    *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(repos RepositoryService, assistant Assistant, oauth OAuthProvider, logger *slog.Logger) http.Handler {
	h := &Handler{
		repos:     repos,
		assistant: assistant,
		oauth:     oauth,
		logger:    logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/gitlab", h.startLogin)
		r.Get("/gitlab/callback", h.loginCallback)
		r.Get("/check-token", h.checkToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireToken)

		r.Route("/repositories", func(r chi.Router) {
			r.Get("/", h.listRepositories)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getRepository)
				r.Patch("/", h.updateRepository)
				r.Delete("/", h.deleteRepository)
				r.Delete("/commits/{commitId}", h.deleteCommit)
				r.Delete("/branches/{branchName}", h.deleteBranch)
			})
		})
		r.Post("/ai", h.ask)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listRepositories returns one page of upstream repositories.
// GET /repositories?limit=N&page=N&search=term
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := optionalPositiveInt(q.Get("limit"), "limit")
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	page, err := optionalPositiveInt(q.Get("page"), "page")
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	summaries, err := h.repos.ListRepositories(r.Context(), auth.TokenFromContext(r.Context()), model.ListOptions{
		Limit:  limit,
		Page:   page,
		Search: q.Get("search"),
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	views := make([]summaryView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, toSummaryView(s))
	}
	respondWithJSON(w, http.StatusOK, views)
}

// getRepository returns a repository with its commits and branches.
// GET /repositories/{id}?lastActivityAt=2024-02-01
func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	id, err := repositoryID(r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	marker, err := parseMarker(r.URL.Query().Get("lastActivityAt"))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	repo, err := h.repos.GetRepositoryByID(r.Context(), id, marker, auth.TokenFromContext(r.Context()))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toRepositoryView(repo))
}

// updateRepository edits allow-listed fields of a stored repository.
// PATCH /repositories/{id}
func (h *Handler) updateRepository(w http.ResponseWriter, r *http.Request) {
	id, err := repositoryID(r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}

	repo, err := h.repos.UpdateRepository(r.Context(), id, fields)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toRepositoryView(repo))
}

// deleteRepository removes a repository with its commits and branches.
// DELETE /repositories/{id}
func (h *Handler) deleteRepository(w http.ResponseWriter, r *http.Request) {
	id, err := repositoryID(r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if err := h.repos.DeleteRepository(r.Context(), id); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /repositories/{id}/commits/{commitId}
func (h *Handler) deleteCommit(w http.ResponseWriter, r *http.Request) {
	id, err := repositoryID(r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if err := h.repos.DeleteCommit(r.Context(), id, pathParam(r, "commitId")); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /repositories/{id}/branches/{branchName}
func (h *Handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	id, err := repositoryID(r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if err := h.repos.DeleteBranch(r.Context(), id, pathParam(r, "branchName")); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type askRequest struct {
	Question string `json:"question"`
	RepoID   int64  `json:"repoId"`
}

// ask answers a question about a stored repository.
// POST /ai
func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Question and repository ID are required")
		return
	}

	answer, err := h.assistant.Ask(r.Context(), req.RepoID, req.Question)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"response": answer})
}

// startLogin redirects to the provider consent page; redirectUrl is carried in state.
// GET /auth/gitlab?redirectUrl=...
func (h *Handler) startLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauth.AuthCodeURL(r.URL.Query().Get("redirectUrl")), http.StatusFound)
}

// GET /auth/gitlab/callback?code=...&state=...
func (h *Handler) loginCallback(w http.ResponseWriter, r *http.Request) {
	token, err := h.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tokenView{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
		RedirectURL: r.URL.Query().Get("state"),
	})
}

// GET /auth/check-token
func (h *Handler) checkToken(w http.ResponseWriter, r *http.Request) {
	_, ok := auth.BearerToken(r)
	respondWithJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func repositoryID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &custom_errors.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// pathParam returns a decoded URL parameter. chi routes on RawPath when the request
// carries escaped slashes (feature%2Fx); otherwise the parameter is already decoded.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func optionalPositiveInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &custom_errors.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return n, nil
}

// parseMarker accepts an RFC 3339 timestamp or a plain date (midnight UTC).
func parseMarker(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &custom_errors.ValidationError{Field: "lastActivityAt", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
}
