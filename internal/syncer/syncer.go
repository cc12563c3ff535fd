// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"repo-mirror/internal/cache"
	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

const (
	// Number of repositories refreshed in parallel by the background loop
	concurrency = 5

	defaultListLimit = 10
	maxListLimit     = 100

	// Upper bound for one detached reconciliation, covering every upstream page and the store write
	defaultReconcileTimeout = 2 * time.Minute
)

// Source is the upstream source-control provider. Tokens are passed per call.
type Source interface {
	ListRepositories(ctx context.Context, token string, opts model.ListOptions) ([]model.RepositorySummary, error)
	GetRepository(ctx context.Context, token string, id int64) (*model.Repository, error)
	ListCommits(ctx context.Context, token string, id int64) ([]model.Commit, error)
	ListBranches(ctx context.Context, token string, id int64) ([]model.Branch, error)
}

// Store is the persistent mirror.
type Store interface {
	GetRepository(ctx context.Context, id int64) (*model.Repository, error)
	ListCommits(ctx context.Context, repoID int64) ([]model.Commit, error)
	ListBranches(ctx context.Context, repoID int64) ([]model.Branch, error)
	SaveSnapshot(ctx context.Context, repo *model.Repository) (*model.Repository, error)
	UpdateRepository(ctx context.Context, id int64, upd model.RepositoryUpdate) (*model.Repository, error)
	DeleteRepository(ctx context.Context, id int64) error
	DeleteCommit(ctx context.Context, repoID int64, commitID string) error
	DeleteBranch(ctx context.Context, repoID int64, name string) error
}

// RefreshConfig configures the optional background refresh of a fixed set of repositories.
type RefreshConfig struct {
	Token         string
	RepositoryIDs []string
	Interval      time.Duration

	// ReconcileTimeout bounds a single upstream reconciliation. Zero uses the default.
	ReconcileTimeout time.Duration
}

// Syncer decides whether a repository is served from memory, from the store, or
// refetched from upstream, and keeps the three consistent.
//
// The caller-supplied freshness marker is advisory: a marker that is too new only
// forces an extra refetch, one that is too old lets an older copy be served.
type Syncer struct {
	store  Store
	source Source
	cache  *cache.Cache[int64, *model.Repository]
	logger *slog.Logger
	group  singleflight.Group

	refreshToken    string
	refreshIDs      []int64
	refreshInterval time.Duration

	reconcileTimeout time.Duration
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(store Store, source Source, c *cache.Cache[int64, *model.Repository], logger *slog.Logger, refresh RefreshConfig) (*Syncer, error) {
	ids, err := parseRepositoryIDs(refresh.RepositoryIDs)
	if err != nil {
		return nil, err
	}

	timeout := refresh.ReconcileTimeout
	if timeout <= 0 {
		timeout = defaultReconcileTimeout
	}

	return &Syncer{
		store:           store,
		source:          source,
		cache:           c,
		logger:          logger,
		refreshToken:    refresh.Token,
		refreshIDs:      ids,
		refreshInterval: refresh.Interval,

		reconcileTimeout: timeout,
	}, nil
}

// GetRepositoryByID returns the repository with its commits and branches.
// The cache is tried first, then the store, and only then upstream; each tier is
// accepted when marker is nil or the tier's last activity is at or after marker.
func (s *Syncer) GetRepositoryByID(ctx context.Context, id int64, marker *time.Time, token string) (*model.Repository, error) {
	logger := s.logger.With("repo_id", id)

	if cached, ok := s.cache.Get(id); ok && cached.FreshAt(marker) {
		logger.Debug("Serving repository from cache")
		return cached, nil
	}

	stored, err := s.store.GetRepository(ctx, id)
	var notFound *custom_errors.NotFoundError
	switch {
	case err == nil && stored.FreshAt(marker):
		logger.Debug("Serving repository from store")
		return s.cacheStored(ctx, stored)
	case err != nil && !errors.As(err, &notFound):
		return nil, err
	}

	logger.Info("Repository missing or stale locally, reconciling with upstream")
	return s.reconcile(ctx, id, token)
}

// LoadRepository returns the cached or stored repository without contacting upstream.
func (s *Syncer) LoadRepository(ctx context.Context, id int64) (*model.Repository, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}

	stored, err := s.store.GetRepository(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cacheStored(ctx, stored)
}

// ListRepositories proxies one page of the upstream repository listing.
func (s *Syncer) ListRepositories(ctx context.Context, token string, opts model.ListOptions) ([]model.RepositorySummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	return s.source.ListRepositories(ctx, token, opts)
}

// Refresh reconciles a repository with upstream regardless of local freshness.
func (s *Syncer) Refresh(ctx context.Context, id int64, token string) (*model.Repository, error) {
	return s.reconcile(ctx, id, token)
}

func (s *Syncer) cacheStored(ctx context.Context, repo *model.Repository) (*model.Repository, error) {
	commits, err := s.store.ListCommits(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	branches, err := s.store.ListBranches(ctx, repo.ID)
	if err != nil {
		return nil, err
	}

	snapshot := *repo
	snapshot.Commits = commits
	snapshot.Branches = branches
	s.cache.Set(repo.ID, &snapshot)
	return &snapshot, nil
}

// reconcile collapses concurrent refetches of the same repository with the same
// credential into one upstream round trip. The shared work runs detached from any
// single caller, bounded by reconcileTimeout; each caller stops waiting when its own
// ctx is done.
func (s *Syncer) reconcile(ctx context.Context, id int64, token string) (*model.Repository, error) {
	key := strconv.FormatInt(id, 10) + ":" + token
	ch := s.group.DoChan(key, func() (interface{}, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.reconcileTimeout)
		defer cancel()
		return s.fetchAndStore(workCtx, id, token)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("Joined in-flight reconciliation", "repo_id", id)
		}
		return res.Val.(*model.Repository), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchAndStore pulls the repository, its commits and its branches from upstream and
// writes them in one store transaction. Nothing is written if any fetch fails.
func (s *Syncer) fetchAndStore(ctx context.Context, id int64, token string) (*model.Repository, error) {
	logger := s.logger.With("repo_id", id)

	repo, err := s.source.GetRepository(ctx, token, id)
	if err != nil {
		return nil, err
	}

	var commits []model.Commit
	var branches []model.Branch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		commits, err = s.source.ListCommits(gctx, token, id)
		return err
	})
	g.Go(func() error {
		var err error
		branches, err = s.source.ListBranches(gctx, token, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("Fetched repository from upstream", "commits", len(commits), "branches", len(branches))

	repo.Commits = commits
	repo.Branches = branches
	saved, err := s.store.SaveSnapshot(ctx, repo)
	if err != nil {
		return nil, err
	}

	s.cache.Set(id, saved)
	return saved, nil
}

func parseRepositoryIDs(raw []string) ([]int64, error) {
	var ids []int64
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil || id <= 0 {
			return nil, &custom_errors.ErrInvalidRepositoryID{Value: r}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
