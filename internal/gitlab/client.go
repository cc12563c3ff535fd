// internal/gitlab/client.go
package gitlab

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

const (
	DefaultBaseURL = "https://gitlab.com"

	perPage = 100
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// CommitPageLimit bounds how many pages of commits are fetched per repository.
	CommitPageLimit int
	// RetryWaitMin and RetryWaitMax bound the backoff between retries. Zero uses the library defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client fetches projects, commits and branches from the GitLab REST API.
// Credentials are supplied per call so one Client serves every user.
type Client struct {
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. Retries on 429 and 5xx responses are handled by the
// underlying library with exponential backoff, bounded by opts.MaxRetries.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CommitPageLimit <= 0 {
		opts.CommitPageLimit = 1
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

func (c *Client) api(token string) (*gl.Client, error) {
	options := []gl.ClientOptionFunc{
		gl.WithBaseURL(c.opts.BaseURL),
		gl.WithHTTPClient(c.httpClient),
		gl.WithCustomRetryMax(c.opts.MaxRetries),
	}
	if c.opts.RetryWaitMin > 0 && c.opts.RetryWaitMax > 0 {
		options = append(options, gl.WithCustomRetryWaitMinMax(c.opts.RetryWaitMin, c.opts.RetryWaitMax))
	}
	return gl.NewOAuthClient(token, options...)
}

// ListRepositories returns one page of public projects ordered by last activity.
func (c *Client) ListRepositories(ctx context.Context, token string, opts model.ListOptions) ([]model.RepositorySummary, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, &custom_errors.UpstreamError{Op: "list projects", Err: err}
	}

	listOpts := &gl.ListProjectsOptions{
		ListOptions: gl.ListOptions{
			Page:    opts.Page,
			PerPage: opts.Limit,
		},
		Visibility: gl.Ptr(gl.PublicVisibility),
		OrderBy:    gl.Ptr("last_activity_at"),
	}
	if opts.Search != "" {
		listOpts.Search = gl.Ptr(opts.Search)
	}

	projects, resp, err := api.Projects.ListProjects(listOpts, gl.WithContext(ctx))
	if err != nil {
		return nil, wrapError("list projects", "projects", "", resp, err)
	}

	summaries := make([]model.RepositorySummary, len(projects))
	for i, p := range projects {
		summaries[i] = toInternalSummary(p)
	}
	return summaries, nil
}

// GetRepository fetches one project and translates it to our internal model.
func (c *Client) GetRepository(ctx context.Context, token string, id int64) (*model.Repository, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, &custom_errors.UpstreamError{Op: "get project", Err: err}
	}

	pid := strconv.FormatInt(id, 10)
	project, resp, err := api.Projects.GetProject(pid, &gl.GetProjectOptions{License: gl.Ptr(true)}, gl.WithContext(ctx))
	if err != nil {
		return nil, wrapError("get project", "repository", pid, resp, err)
	}
	return toInternalRepository(project), nil
}

// ListCommits fetches the most recent commits of a project, up to the configured page limit.
func (c *Client) ListCommits(ctx context.Context, token string, id int64) ([]model.Commit, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, &custom_errors.UpstreamError{Op: "list commits", Err: err}
	}

	pid := strconv.FormatInt(id, 10)
	opts := &gl.ListCommitsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
	}

	var allCommits []model.Commit
	for page := 0; page < c.opts.CommitPageLimit; page++ {
		c.logger.Debug("Fetching commits page", "project", id, "page", opts.Page)

		commits, resp, err := api.Commits.ListCommits(pid, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, wrapError("list commits", "repository", pid, resp, err)
		}
		for _, commit := range commits {
			allCommits = append(allCommits, toInternalCommit(id, commit))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCommits, nil
}

// ListBranches fetches every branch of a project. It handles API pagination transparently.
func (c *Client) ListBranches(ctx context.Context, token string, id int64) ([]model.Branch, error) {
	api, err := c.api(token)
	if err != nil {
		return nil, &custom_errors.UpstreamError{Op: "list branches", Err: err}
	}

	pid := strconv.FormatInt(id, 10)
	opts := &gl.ListBranchesOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
	}

	var allBranches []model.Branch
	for {
		branches, resp, err := api.Branches.ListBranches(pid, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, wrapError("list branches", "repository", pid, resp, err)
		}
		for _, b := range branches {
			allBranches = append(allBranches, toInternalBranch(id, b))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allBranches, nil
}

// wrapError maps a 404 to NotFoundError and everything else to UpstreamError.
func wrapError(op, resource, id string, resp *gl.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound && resource != "" && id != "" {
		return &custom_errors.NotFoundError{Resource: resource, ID: id}
	}
	return &custom_errors.UpstreamError{Op: op, Err: err}
}

// toInternalRepository translates a GitLab project to our internal model.Repository.
func toInternalRepository(p *gl.Project) *model.Repository {
	repo := &model.Repository{
		ID:             int64(p.ID),
		Name:           p.Name,
		Description:    optional(p.Description),
		LastActivityAt: p.LastActivityAt,
		Visibility:     model.Visibility(p.Visibility),
		Topics:         p.Topics,
		DefaultBranch:  optional(p.DefaultBranch),
		AvatarURL:      optional(p.AvatarURL),
		ReadmeURL:      optional(p.ReadmeURL),
	}
	if p.Namespace != nil {
		repo.Author = optional(p.Namespace.Name)
	}
	if p.License != nil {
		repo.LicenseName = optional(p.License.Name)
	}
	if repo.Topics == nil {
		repo.Topics = []string{}
	}
	return repo
}

func toInternalSummary(p *gl.Project) model.RepositorySummary {
	s := model.RepositorySummary{
		ID:             int64(p.ID),
		Name:           p.Name,
		Description:    optional(p.Description),
		LastActivityAt: p.LastActivityAt,
		AvatarURL:      optional(p.AvatarURL),
	}
	if p.Namespace != nil {
		s.Author = optional(p.Namespace.Name)
	}
	return s
}

func toInternalCommit(repoID int64, c *gl.Commit) model.Commit {
	return model.Commit{
		ID:           c.ID,
		RepositoryID: repoID,
		Message:      c.Message,
		Author:       c.AuthorName,
		Date:         c.CreatedAt,
	}
}

func toInternalBranch(repoID int64, b *gl.Branch) model.Branch {
	branch := model.Branch{
		Name:         b.Name,
		RepositoryID: repoID,
	}
	if b.Commit != nil {
		branch.CommitID = b.Commit.ID
	}
	return branch
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
