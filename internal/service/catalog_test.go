package service

import (
	"context"
	"testing"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
	"github.com/bebokaka99/truyenviethay-backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	repo := &mocks.MockCatalogRepository{}
	reads := []*model.Quest{{ID: 1, Key: "daily_read_5", ActionType: model.ActionRead}}

	repo.On("GetQuestsByAction", mock.Anything, model.ActionRead).Return(reads, nil).Twice()
	repo.On("GetQuestByKey", mock.Anything, "nope").Return(nil, repository.ErrNotFound)

	catalog, err := NewCatalog(repo, 8, time.Minute)
	require.NoError(t, err)

	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	catalog.now = func() time.Time { return clock }
	ctx := context.Background()

	got, err := catalog.ByAction(ctx, model.ActionRead)
	require.NoError(t, err)
	assert.Equal(t, reads, got)

	// cached
	_, err = catalog.ByAction(ctx, model.ActionRead)
	require.NoError(t, err)

	// expired
	clock = clock.Add(2 * time.Minute)
	_, err = catalog.ByAction(ctx, model.ActionRead)
	require.NoError(t, err)

	_, err = catalog.ByKey(ctx, "nope")
	assert.ErrorIs(t, err, ErrQuestNotFound)

	repo.AssertExpectations(t)
}

func TestCatalog_Invalidate(t *testing.T) {
	repo := &mocks.MockCatalogRepository{}
	quest := &model.Quest{ID: 2, Key: "weekly_streak"}
	repo.On("GetQuestByKey", mock.Anything, "weekly_streak").Return(quest, nil).Twice()

	catalog, err := NewCatalog(repo, 0, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = catalog.ByKey(ctx, "weekly_streak")
	require.NoError(t, err)
	catalog.Invalidate()
	got, err := catalog.ByKey(ctx, "weekly_streak")
	require.NoError(t, err)
	assert.Equal(t, quest, got)

	repo.AssertExpectations(t)
}

func TestCatalog_InvalidateDuringLoad(t *testing.T) {
	repo := &mocks.MockCatalogRepository{}
	stale := []*model.Quest{{ID: 1, Key: "daily_read_5", TargetCount: 5}}
	fresh := []*model.Quest{{ID: 1, Key: "daily_read_5", TargetCount: 10}}

	catalog, err := NewCatalog(repo, 8, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	// an admin edit lands while the first read is in flight
	repo.On("GetQuestsByAction", mock.Anything, model.ActionRead).
		Run(func(mock.Arguments) { catalog.Invalidate() }).
		Return(stale, nil).Once()
	repo.On("GetQuestsByAction", mock.Anything, model.ActionRead).Return(fresh, nil).Once()

	got, err := catalog.ByAction(ctx, model.ActionRead)
	require.NoError(t, err)
	assert.Equal(t, stale, got)

	got, err = catalog.ByAction(ctx, model.ActionRead)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	// the fresh load was not interrupted and is served from cache
	got, err = catalog.ByAction(ctx, model.ActionRead)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	repo.AssertExpectations(t)
}
