// Package repotest provides a migrated in-memory SQLite repository for tests.
package repotest

import (
	"context"
	"testing"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// New returns an empty repository: schema applied, seed quests removed.
func New(t *testing.T) *repository.Repository {
	t.Helper()

	db, err := sqlx.Connect(repository.DriverSQLite, repository.SQLiteDSN(":memory:"))
	require.NoError(t, err)

	repo := repository.NewWithDB(db, repository.DriverSQLite)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	quests, err := repo.GetAllQuests(ctx)
	require.NoError(t, err)
	for _, q := range quests {
		require.NoError(t, repo.DeleteQuest(ctx, q.ID))
	}

	return repo
}

func User(t *testing.T, repo *repository.Repository, username string) *model.User {
	t.Helper()

	user := &model.User{Username: username}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func Quest(t *testing.T, repo *repository.Repository, quest model.Quest) *model.Quest {
	t.Helper()

	require.NoError(t, repo.CreateQuest(context.Background(), &quest))
	return &quest
}
