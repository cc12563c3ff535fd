// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"

	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

const (
	maxRetries       = 3
	maxRateLimitWait = time.Minute
	perPage          = 100
)

// Options configures a Client.
type Options struct {
	// BaseURL overrides the API root, e.g. for GitHub Enterprise. It must end with a slash.
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	CommitPageLimit int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	opts   Options
	logger *slog.Logger

	// coords maps repository ID to its owner and name, filled by every GetByID lookup.
	coords sync.Map
}

type repoCoordinates struct {
	owner string
	name  string
}

// NewClient creates and configures a new Client instance.
// Tokens are supplied per call, so the base client is unauthenticated.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = maxRetries
	}
	if opts.CommitPageLimit <= 0 {
		opts.CommitPageLimit = 1
	}

	gh := github.NewClient(&http.Client{Timeout: opts.Timeout})
	if opts.BaseURL != "" {
		if !strings.HasSuffix(opts.BaseURL, "/") {
			opts.BaseURL += "/"
		}
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		opts:   opts,
		logger: logger,
	}, nil
}

func (c *Client) api(token string) *github.Client {
	if token == "" {
		return c.gh
	}
	return c.gh.WithAuthToken(token)
}

// ListRepositories searches public repositories, most recently updated first.
func (c *Client) ListRepositories(ctx context.Context, token string, opts model.ListOptions) ([]model.RepositorySummary, error) {
	api := c.api(token)
	query := strings.TrimSpace(opts.Search + " is:public")

	var result *github.RepositoriesSearchResult
	err := c.withRetry(ctx, "search repositories", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		result, resp, err = api.Search.Repositories(ctx, query, &github.SearchOptions{
			Sort:        "updated",
			Order:       "desc",
			ListOptions: github.ListOptions{Page: opts.Page, PerPage: opts.Limit},
		})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]model.RepositorySummary, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		summaries = append(summaries, toInternalSummary(r))
	}
	return summaries, nil
}

// GetRepository fetches repository details and translates them to our internal model.
func (c *Client) GetRepository(ctx context.Context, token string, id int64) (*model.Repository, error) {
	repo, err := c.getByID(ctx, c.api(token), id)
	if err != nil {
		return nil, err
	}
	return toInternalRepository(repo), nil
}

// ListCommits fetches the most recent commits of a repository, up to the configured page limit.
func (c *Client) ListCommits(ctx context.Context, token string, id int64) ([]model.Commit, error) {
	api := c.api(token)
	owner, name, err := c.coordinates(ctx, api, id)
	if err != nil {
		return nil, err
	}

	var allCommits []model.Commit
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for page := 0; page < c.opts.CommitPageLimit; page++ {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", name, "page", opts.Page)

		var commits []*github.RepositoryCommit
		var resp *github.Response
		err := c.withRetry(ctx, "list commits", func() (*github.Response, error) {
			var err error
			commits, resp, err = api.Repositories.ListCommits(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
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

// ListBranches fetches every branch of a repository. It handles API pagination transparently.
func (c *Client) ListBranches(ctx context.Context, token string, id int64) ([]model.Branch, error) {
	api := c.api(token)
	owner, name, err := c.coordinates(ctx, api, id)
	if err != nil {
		return nil, err
	}

	var allBranches []model.Branch
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		var branches []*github.Branch
		var resp *github.Response
		err := c.withRetry(ctx, "list branches", func() (*github.Response, error) {
			var err error
			branches, resp, err = api.Repositories.ListBranches(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, b := range branches {
			allBranches = append(allBranches, model.Branch{
				Name:         b.GetName(),
				RepositoryID: id,
				CommitID:     b.GetCommit().GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allBranches, nil
}

// coordinates resolves the owner and name the commit and branch endpoints are addressed by.
// A repository already looked up is not fetched again.
func (c *Client) coordinates(ctx context.Context, api *github.Client, id int64) (string, string, error) {
	if v, ok := c.coords.Load(id); ok {
		rc := v.(repoCoordinates)
		return rc.owner, rc.name, nil
	}
	repo, err := c.getByID(ctx, api, id)
	if err != nil {
		return "", "", err
	}
	return repo.GetOwner().GetLogin(), repo.GetName(), nil
}

func (c *Client) getByID(ctx context.Context, api *github.Client, id int64) (*github.Repository, error) {
	var repo *github.Repository
	err := c.withRetry(ctx, "get repository", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = api.Repositories.GetByID(ctx, id)
		return resp, err
	})
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return nil, &custom_errors.NotFoundError{Resource: "repository", ID: strconv.FormatInt(id, 10)}
		}
		return nil, err
	}
	c.coords.Store(id, repoCoordinates{owner: repo.GetOwner().GetLogin(), name: repo.GetName()})
	return repo, nil
}

// withRetry runs call with exponential backoff. Server errors and network failures are
// retried up to MaxRetries times; rate limit errors wait for the reset time
// when it is close enough; other client errors fail immediately.
func (c *Client) withRetry(ctx context.Context, op string, call func() (*github.Response, error)) error {
	operation := func() error {
		resp, err := call()
		if err == nil {
			return nil
		}

		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			wait := time.Until(rateErr.Rate.Reset.Time)
			if wait > maxRateLimitWait {
				return backoff.Permanent(err)
			}
			c.logger.Warn("Rate limited by upstream, waiting for reset", "op", op, "wait", wait.String())
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		if resp != nil && resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		c.logger.Debug("Retrying upstream call", "op", op, "error", err)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	if c.opts.RetryWaitMin > 0 {
		bo.InitialInterval = c.opts.RetryWaitMin
	}
	if c.opts.RetryWaitMax > 0 {
		bo.MaxInterval = c.opts.RetryWaitMax
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.opts.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return &custom_errors.UpstreamError{Op: op, Err: err}
	}
	return nil
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) *model.Repository {
	repo := &model.Repository{
		ID:             r.GetID(),
		Name:           r.GetName(),
		Description:    toOptional(r.Description),
		Author:         optional(r.GetOwner().GetLogin()),
		LastActivityAt: lastActivity(r),
		Visibility:     model.Visibility(r.GetVisibility()),
		Topics:         r.Topics,
		DefaultBranch:  toOptional(r.DefaultBranch),
		LicenseName:    optional(r.GetLicense().GetName()),
		AvatarURL:      optional(r.GetOwner().GetAvatarURL()),
	}
	if repo.Visibility == "" {
		repo.Visibility = model.VisibilityPublic
		if r.GetPrivate() {
			repo.Visibility = model.VisibilityPrivate
		}
	}
	if repo.Topics == nil {
		repo.Topics = []string{}
	}
	return repo
}

func toInternalSummary(r *github.Repository) model.RepositorySummary {
	return model.RepositorySummary{
		ID:             r.GetID(),
		Name:           r.GetName(),
		Author:         optional(r.GetOwner().GetLogin()),
		Description:    toOptional(r.Description),
		LastActivityAt: lastActivity(r),
		AvatarURL:      optional(r.GetOwner().GetAvatarURL()),
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.Commit.
func toInternalCommit(repoID int64, c *github.RepositoryCommit) model.Commit {
	commit := model.Commit{
		ID:           c.GetSHA(),
		RepositoryID: repoID,
		Author:       c.GetCommit().GetAuthor().GetName(),
		Message:      c.GetCommit().GetMessage(),
	}
	if date := c.GetCommit().GetAuthor().Date; date != nil {
		t := date.Time
		commit.Date = &t
	}
	return commit
}

// lastActivity is the later of the last push and the last metadata update.
func lastActivity(r *github.Repository) *time.Time {
	var latest *time.Time
	for _, ts := range []*github.Timestamp{r.PushedAt, r.UpdatedAt} {
		if ts == nil {
			continue
		}
		t := ts.Time
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest
}

// toOptional drops empty strings so they are reported as absent.
func toOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
