package mocks

import (
	"context"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockTxRunner hands Tx to the transaction body unless the expectation returns an error.
type MockTxRunner struct {
	mock.Mock
	Tx *MockQuestTx
}

func (m *MockTxRunner) QuestTransaction(ctx context.Context, fn func(tx repository.QuestTx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Tx)
}

type MockQuestTx struct {
	mock.Mock
}

func (m *MockQuestTx) LockProgress(ctx context.Context, userID, questID int64) (*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserQuestProgress), args.Error(1)
}

func (m *MockQuestTx) SaveProgress(ctx context.Context, progress *model.UserQuestProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockQuestTx) LockClaimView(ctx context.Context, userID, questID int64) (*model.ClaimView, error) {
	args := m.Called(ctx, userID, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimView), args.Error(1)
}

func (m *MockQuestTx) MarkClaimed(ctx context.Context, userID, questID int64) error {
	args := m.Called(ctx, userID, questID)
	return args.Error(0)
}

func (m *MockQuestTx) SetUserExperience(ctx context.Context, userID int64, experience, level int) error {
	args := m.Called(ctx, userID, experience, level)
	return args.Error(0)
}

func (m *MockQuestTx) LockUser(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockQuestTx) SetLoginStreak(ctx context.Context, userID int64, streak int, loginAt time.Time) error {
	args := m.Called(ctx, userID, streak, loginAt)
	return args.Error(0)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetQuestsByAction(ctx context.Context, action model.ActionType) ([]*model.Quest, error) {
	args := m.Called(ctx, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockCatalogRepository) GetQuestByKey(ctx context.Context, key string) (*model.Quest, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) GetAllQuests(ctx context.Context) ([]*model.Quest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetUserQuests(ctx context.Context, userID int64) ([]*model.UserQuest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserQuest), args.Error(1)
}

func (m *MockQuestRepository) GetQuestByID(ctx context.Context, id int64) (*model.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestRepository) UpdateQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestRepository) DeleteQuest(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
