// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"repo-mirror/internal/database"
	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

// Store is the persistent mirror of repository metadata backed by PostgreSQL.
type Store struct {
	dbpool *pgxpool.Pool
	q      database.Querier
	logger *slog.Logger
}

// New creates a Store on top of an open connection pool.
func New(dbpool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		dbpool: dbpool,
		q:      database.New(dbpool),
		logger: logger,
	}
}

// GetRepository returns the repository row without its commits and branches.
func (s *Store) GetRepository(ctx context.Context, id int64) (*model.Repository, error) {
	row, err := s.q.GetRepository(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &custom_errors.NotFoundError{Resource: "repository", ID: formatID(id)}
	}
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "get repository", Err: err}
	}
	return toModelRepository(row), nil
}

// ListCommits returns the stored commits of a repository, newest first.
func (s *Store) ListCommits(ctx context.Context, repoID int64) ([]model.Commit, error) {
	rows, err := s.q.GetCommitsByRepoID(ctx, repoID)
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "list commits", Err: err}
	}
	return toModelCommits(rows), nil
}

// ListBranches returns the stored branches of a repository ordered by name.
func (s *Store) ListBranches(ctx context.Context, repoID int64) ([]model.Branch, error) {
	rows, err := s.q.GetBranchesByRepoID(ctx, repoID)
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "list branches", Err: err}
	}
	return toModelBranches(rows), nil
}

// SaveSnapshot writes an upstream repository with its commits and branches in a
// single transaction and returns the stored state read back inside that transaction.
func (s *Store) SaveSnapshot(ctx context.Context, repo *model.Repository) (*model.Repository, error) {
	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	saved, err := s.saveSnapshot(ctx, database.New(tx), repo)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &custom_errors.PersistenceError{Op: "commit transaction", Err: err}
	}
	return saved, nil
}

func (s *Store) saveSnapshot(ctx context.Context, q database.Querier, repo *model.Repository) (*model.Repository, error) {
	logger := s.logger.With("repo_id", repo.ID)

	n, err := q.UpsertRepository(ctx, toUpsertParams(repo))
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "upsert repository", Err: err}
	}
	if n == 0 {
		logger.Info("Stored repository is newer than upstream copy, keeping stored metadata")
	}

	for _, c := range repo.Commits {
		err := q.InsertCommit(ctx, database.InsertCommitParams{
			ID:           c.ID,
			RepositoryID: repo.ID,
			Message:      c.Message,
			Author:       c.Author,
			Date:         toTimestamptz(c.Date),
		})
		if err != nil {
			return nil, &custom_errors.PersistenceError{Op: "insert commit", Err: err}
		}
	}

	for _, b := range repo.Branches {
		err := q.UpsertBranch(ctx, database.UpsertBranchParams{
			RepositoryID: repo.ID,
			Name:         b.Name,
			CommitID:     b.CommitID,
		})
		if err != nil {
			return nil, &custom_errors.PersistenceError{Op: "upsert branch", Err: err}
		}
	}
	logger.Debug("Wrote repository snapshot", "commits", len(repo.Commits), "branches", len(repo.Branches))

	row, err := q.GetRepository(ctx, repo.ID)
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "reload repository", Err: err}
	}
	commits, err := q.GetCommitsByRepoID(ctx, repo.ID)
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "reload commits", Err: err}
	}
	branches, err := q.GetBranchesByRepoID(ctx, repo.ID)
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "reload branches", Err: err}
	}

	saved := toModelRepository(row)
	saved.Commits = toModelCommits(commits)
	saved.Branches = toModelBranches(branches)
	return saved, nil
}

// UpdateRepository applies a validated field update and returns the updated row.
func (s *Store) UpdateRepository(ctx context.Context, id int64, upd model.RepositoryUpdate) (*model.Repository, error) {
	params := database.UpdateRepositoryFieldsParams{
		ID:          id,
		Name:        toText(upd.Name),
		Description: toText(upd.Description),
	}
	if upd.Visibility != nil {
		params.Visibility = pgtype.Text{String: string(*upd.Visibility), Valid: true}
	}

	row, err := s.q.UpdateRepositoryFields(ctx, params)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &custom_errors.NotFoundError{Resource: "repository", ID: formatID(id)}
	}
	if err != nil {
		return nil, &custom_errors.PersistenceError{Op: "update repository", Err: err}
	}
	return toModelRepository(row), nil
}

// DeleteRepository removes a repository; commits and branches go with it by cascade.
func (s *Store) DeleteRepository(ctx context.Context, id int64) error {
	n, err := s.q.DeleteRepository(ctx, id)
	if err != nil {
		return &custom_errors.PersistenceError{Op: "delete repository", Err: err}
	}
	if n == 0 {
		return &custom_errors.NotFoundError{Resource: "repository", ID: formatID(id)}
	}
	return nil
}

// DeleteCommit removes one commit, scoped to its repository.
func (s *Store) DeleteCommit(ctx context.Context, repoID int64, commitID string) error {
	n, err := s.q.DeleteCommit(ctx, database.DeleteCommitParams{ID: commitID, RepositoryID: repoID})
	if err != nil {
		return &custom_errors.PersistenceError{Op: "delete commit", Err: err}
	}
	if n == 0 {
		return &custom_errors.NotFoundError{Resource: "commit", ID: commitID}
	}
	return nil
}

// DeleteBranch removes one branch by name, scoped to its repository.
func (s *Store) DeleteBranch(ctx context.Context, repoID int64, name string) error {
	n, err := s.q.DeleteBranch(ctx, database.DeleteBranchParams{Name: name, RepositoryID: repoID})
	if err != nil {
		return &custom_errors.PersistenceError{Op: "delete branch", Err: err}
	}
	if n == 0 {
		return &custom_errors.NotFoundError{Resource: "branch", ID: name}
	}
	return nil
}

func toUpsertParams(r *model.Repository) database.UpsertRepositoryParams {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return database.UpsertRepositoryParams{
		ID:             r.ID,
		Name:           r.Name,
		Description:    toText(r.Description),
		Author:         toText(r.Author),
		LastActivityAt: toTimestamptz(r.LastActivityAt),
		Visibility:     string(r.Visibility),
		Topics:         topics,
		DefaultBranch:  toText(r.DefaultBranch),
		LicenseName:    toText(r.LicenseName),
		AvatarUrl:      toText(r.AvatarURL),
		ReadmeUrl:      toText(r.ReadmeURL),
	}
}

func toModelRepository(r database.Repository) *model.Repository {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return &model.Repository{
		ID:             r.ID,
		Name:           r.Name,
		Description:    fromText(r.Description),
		Author:         fromText(r.Author),
		LastActivityAt: fromTimestamptz(r.LastActivityAt),
		Visibility:     model.Visibility(r.Visibility),
		Topics:         topics,
		DefaultBranch:  fromText(r.DefaultBranch),
		LicenseName:    fromText(r.LicenseName),
		AvatarURL:      fromText(r.AvatarUrl),
		ReadmeURL:      fromText(r.ReadmeUrl),
	}
}

func toModelCommits(rows []database.Commit) []model.Commit {
	commits := make([]model.Commit, len(rows))
	for i, c := range rows {
		commits[i] = model.Commit{
			ID:           c.ID,
			RepositoryID: c.RepositoryID,
			Message:      c.Message,
			Author:       c.Author,
			Date:         fromTimestamptz(c.Date),
		}
	}
	return commits
}

func toModelBranches(rows []database.Branch) []model.Branch {
	branches := make([]model.Branch, len(rows))
	for i, b := range rows {
		branches[i] = model.Branch{
			Name:         b.Name,
			RepositoryID: b.RepositoryID,
			CommitID:     b.CommitID,
		}
	}
	return branches
}

func toText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
