// internal/store/postgres_test.go
package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"repo-mirror/internal/database"
	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) DeleteBranch(ctx context.Context, arg database.DeleteBranchParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) DeleteCommit(ctx context.Context, arg database.DeleteCommitParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) DeleteRepository(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) GetBranchesByRepoID(ctx context.Context, repositoryID int64) ([]database.Branch, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]database.Branch), args.Error(1)
}
func (m *MockQuerier) GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]database.Commit, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]database.Commit), args.Error(1)
}
func (m *MockQuerier) GetRepository(ctx context.Context, id int64) (database.Repository, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Repository), args.Error(1)
}
func (m *MockQuerier) InsertCommit(ctx context.Context, arg database.InsertCommitParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *MockQuerier) UpdateRepositoryFields(ctx context.Context, arg database.UpdateRepositoryFieldsParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}
func (m *MockQuerier) UpsertBranch(ctx context.Context, arg database.UpsertBranchParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *MockQuerier) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func ptr[T any](v T) *T { return &v }

func TestStore_GetRepository(t *testing.T) {
	ctx := context.Background()
	activity := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("maps nullable columns to optional fields", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}

		mockQ.On("GetRepository", ctx, int64(42)).Return(database.Repository{
			ID:             42,
			Name:           "mirror",
			Description:    pgtype.Text{String: "a repo", Valid: true},
			LastActivityAt: pgtype.Timestamptz{Time: activity, Valid: true},
			Visibility:     "public",
		}, nil).Once()

		repo, err := s.GetRepository(ctx, 42)

		require.NoError(t, err)
		assert.Equal(t, int64(42), repo.ID)
		assert.Equal(t, "a repo", *repo.Description)
		assert.Nil(t, repo.Author)
		assert.Nil(t, repo.LicenseName)
		assert.Equal(t, activity, *repo.LastActivityAt)
		assert.Equal(t, model.VisibilityPublic, repo.Visibility)
		assert.Equal(t, []string{}, repo.Topics)
		mockQ.AssertExpectations(t)
	})

	t.Run("returns NotFoundError when the row is missing", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		mockQ.On("GetRepository", ctx, int64(7)).Return(database.Repository{}, pgx.ErrNoRows).Once()

		_, err := s.GetRepository(ctx, 7)

		var notFound *custom_errors.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "7", notFound.ID)
	})

	t.Run("wraps unexpected database errors", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		dbError := errors.New("unexpected database error")
		mockQ.On("GetRepository", ctx, int64(7)).Return(database.Repository{}, dbError).Once()

		_, err := s.GetRepository(ctx, 7)

		var persistence *custom_errors.PersistenceError
		require.ErrorAs(t, err, &persistence)
		assert.ErrorIs(t, err, dbError)
	})
}

func TestStore_SaveSnapshot(t *testing.T) {
	ctx := context.Background()
	activity := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	upstream := &model.Repository{
		ID:             42,
		Name:           "mirror",
		Author:         ptr("group"),
		LastActivityAt: &activity,
		Visibility:     model.VisibilityPublic,
		Commits: []model.Commit{
			{ID: "abc", Message: "feat: new feature", Author: "tester", Date: &activity},
		},
		Branches: []model.Branch{
			{Name: "main", CommitID: "abc"},
		},
	}

	t.Run("writes parent and children then reloads them", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{logger: testLogger()}

		mockQ.On("UpsertRepository", ctx, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
			return p.ID == 42 && p.Author.String == "group" && p.Topics != nil && p.LastActivityAt.Time.Equal(activity)
		})).Return(int64(1), nil).Once()
		mockQ.On("InsertCommit", ctx, database.InsertCommitParams{
			ID:           "abc",
			RepositoryID: 42,
			Message:      "feat: new feature",
			Author:       "tester",
			Date:         pgtype.Timestamptz{Time: activity, Valid: true},
		}).Return(nil).Once()
		mockQ.On("UpsertBranch", ctx, database.UpsertBranchParams{RepositoryID: 42, Name: "main", CommitID: "abc"}).Return(nil).Once()
		mockQ.On("GetRepository", ctx, int64(42)).Return(database.Repository{
			ID: 42, Name: "mirror", Visibility: "public",
			LastActivityAt: pgtype.Timestamptz{Time: activity, Valid: true},
		}, nil).Once()
		mockQ.On("GetCommitsByRepoID", ctx, int64(42)).Return([]database.Commit{
			{ID: "abc", RepositoryID: 42, Message: "feat: new feature", Author: "tester"},
		}, nil).Once()
		mockQ.On("GetBranchesByRepoID", ctx, int64(42)).Return([]database.Branch{
			{RepositoryID: 42, Name: "main", CommitID: "abc"},
		}, nil).Once()

		saved, err := s.saveSnapshot(ctx, mockQ, upstream)

		require.NoError(t, err)
		assert.Equal(t, activity, *saved.LastActivityAt)
		require.Len(t, saved.Commits, 1)
		assert.Equal(t, "abc", saved.Commits[0].ID)
		require.Len(t, saved.Branches, 1)
		assert.Equal(t, "main", saved.Branches[0].Name)
		mockQ.AssertExpectations(t)
	})

	t.Run("stops at the first failing write", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{logger: testLogger()}
		dbError := errors.New("constraint violation")

		mockQ.On("UpsertRepository", ctx, mock.Anything).Return(int64(1), nil).Once()
		mockQ.On("InsertCommit", ctx, mock.Anything).Return(dbError).Once()

		_, err := s.saveSnapshot(ctx, mockQ, upstream)

		assert.ErrorIs(t, err, dbError)
		mockQ.AssertNotCalled(t, "UpsertBranch")
		mockQ.AssertNotCalled(t, "GetRepository")
	})
}

func TestStore_UpdateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("sends only provided fields", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		vis := model.VisibilityPrivate

		mockQ.On("UpdateRepositoryFields", ctx, database.UpdateRepositoryFieldsParams{
			ID:         42,
			Name:       pgtype.Text{String: "X", Valid: true},
			Visibility: pgtype.Text{String: "private", Valid: true},
		}).Return(database.Repository{ID: 42, Name: "X", Visibility: "private"}, nil).Once()

		repo, err := s.UpdateRepository(ctx, 42, model.RepositoryUpdate{Name: ptr("X"), Visibility: &vis})

		require.NoError(t, err)
		assert.Equal(t, "X", repo.Name)
		mockQ.AssertExpectations(t)
	})

	t.Run("returns NotFoundError for unknown ids", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		mockQ.On("UpdateRepositoryFields", ctx, mock.Anything).Return(database.Repository{}, pgx.ErrNoRows).Once()

		_, err := s.UpdateRepository(ctx, 1, model.RepositoryUpdate{Name: ptr("X")})

		var notFound *custom_errors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestStore_Deletes(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting a missing repository is NotFound", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		mockQ.On("DeleteRepository", ctx, int64(42)).Return(int64(0), nil).Once()

		err := s.DeleteRepository(ctx, 42)

		var notFound *custom_errors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("commit deletes are scoped by repository", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		mockQ.On("DeleteCommit", ctx, database.DeleteCommitParams{ID: "abc", RepositoryID: 42}).Return(int64(1), nil).Once()

		require.NoError(t, s.DeleteCommit(ctx, 42, "abc"))
		mockQ.AssertExpectations(t)
	})

	t.Run("branch deletes are scoped by repository", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		mockQ.On("DeleteBranch", ctx, database.DeleteBranchParams{Name: "main", RepositoryID: 42}).Return(int64(0), nil).Once()

		err := s.DeleteBranch(ctx, 42, "main")

		var notFound *custom_errors.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "branch", notFound.Resource)
	})

	t.Run("database failures are PersistenceErrors", func(t *testing.T) {
		mockQ := new(MockQuerier)
		s := &Store{q: mockQ, logger: testLogger()}
		mockQ.On("DeleteRepository", ctx, int64(42)).Return(int64(0), errors.New("boom")).Once()

		err := s.DeleteRepository(ctx, 42)

		var persistence *custom_errors.PersistenceError
		assert.ErrorAs(t, err, &persistence)
	})
}
