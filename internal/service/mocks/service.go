package mocks

import (
	"context"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, category model.NotificationCategory, title, body string, link *string) error {
	args := m.Called(ctx, userID, category, title, body, link)
	return args.Error(0)
}

type MockQuestCatalog struct {
	mock.Mock
}

func (m *MockQuestCatalog) ByAction(ctx context.Context, action model.ActionType) ([]*model.Quest, error) {
	args := m.Called(ctx, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestCatalog) ByKey(ctx context.Context, key string) (*model.Quest, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestCatalog) Invalidate() {
	m.Called()
}

type MockQuestEngine struct {
	mock.Mock
}

func (m *MockQuestEngine) RecordAction(ctx context.Context, userID int64, action model.ActionType, amount int, questKey string) {
	m.Called(ctx, userID, action, amount, questKey)
}

func (m *MockQuestEngine) Accumulate(ctx context.Context, userID int64, action model.ActionType, delta int) {
	m.Called(ctx, userID, action, delta)
}

func (m *MockQuestEngine) ResyncAbsolute(ctx context.Context, userID int64, questKey string, value int) {
	m.Called(ctx, userID, questKey, value)
}

func (m *MockQuestEngine) Track(ctx context.Context, userID int64, action model.ActionType, amount int) {
	m.Called(ctx, userID, action, amount)
}

type MockStreakService struct {
	mock.Mock
}

func (m *MockStreakService) RecordLogin(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockQuestService struct {
	mock.Mock
}

func (m *MockQuestService) ListForUser(ctx context.Context, userID int64) ([]*model.UserQuest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserQuest), args.Error(1)
}

func (m *MockQuestService) ListAll(ctx context.Context) ([]*model.Quest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestService) Create(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestService) Update(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockClaimService struct {
	mock.Mock
}

func (m *MockClaimService) Claim(ctx context.Context, userID, questID int64) (*model.ClaimResult, error) {
	args := m.Called(ctx, userID, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimResult), args.Error(1)
}
