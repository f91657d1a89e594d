package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/period"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
	"github.com/bebokaka99/truyenviethay-backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLevelForExperience(t *testing.T) {
	tests := []struct {
		experience int
		expected   int
	}{
		{0, 1},
		{99, 1},
		{399, 1},
		{400, 2},
		{899, 2},
		{900, 3},
		{10000, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelForExperience(tt.experience), "experience %d", tt.experience)
	}
}

func TestClaimService_Claim(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, period.DefaultLocation)
	today := now.Add(-time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name            string
		mockSetup       func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier)
		expectedError   error
		checkAdditional func(*testing.T, *model.ClaimResult)
	}{
		{
			name: "No progress row",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrProgressNotFound,
		},
		{
			name: "Progress never updated",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(&model.ClaimView{Recurrence: model.RecurrenceAchievement, TargetCount: 1}, nil)
			},
			expectedError: ErrProgressNotFound,
		},
		{
			name: "Daily quest from yesterday",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(&model.ClaimView{
						Recurrence:   model.RecurrenceDaily,
						TargetCount:  1,
						CurrentCount: 1,
						LastUpdated:  &yesterday,
					}, nil)
			},
			expectedError: ErrQuestExpired,
		},
		{
			name: "Already claimed",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(&model.ClaimView{
						Recurrence:   model.RecurrenceDaily,
						TargetCount:  1,
						CurrentCount: 1,
						IsClaimed:    true,
						LastUpdated:  &today,
					}, nil)
			},
			expectedError: ErrQuestAlreadyClaimed,
		},
		{
			name: "Target not reached",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(&model.ClaimView{
						Recurrence:   model.RecurrenceWeekly,
						TargetCount:  5,
						CurrentCount: 4,
						LastUpdated:  &today,
					}, nil)
			},
			expectedError: ErrTargetNotReached,
		},
		{
			name: "Claimed without level up",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(&model.ClaimView{
						QuestName:    "Daily check-in",
						Recurrence:   model.RecurrenceDaily,
						TargetCount:  1,
						CurrentCount: 1,
						RewardExp:    10,
						Experience:   100,
						Level:        1,
						LastUpdated:  &today,
					}, nil)
				tx.On("MarkClaimed", mock.Anything, int64(1), int64(10)).Return(nil)
				tx.On("SetUserExperience", mock.Anything, int64(1), 110, 1).Return(nil)
			},
			checkAdditional: func(t *testing.T, result *model.ClaimResult) {
				assert.Equal(t, 110, result.Experience)
				assert.Equal(t, 1, result.Level)
				assert.Equal(t, 10, result.Reward)
				assert.False(t, result.LeveledUp)
			},
		},
		{
			name: "Claim crosses a level boundary",
			mockSetup: func(tx *mocks.MockQuestTx, notifier *mocks.MockNotifier) {
				tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
					Return(&model.ClaimView{
						Recurrence:   model.RecurrenceAchievement,
						TargetCount:  100,
						CurrentCount: 130,
						RewardExp:    50,
						Experience:   380,
						Level:        1,
						LastUpdated:  &yesterday,
					}, nil)
				tx.On("MarkClaimed", mock.Anything, int64(1), int64(10)).Return(nil)
				tx.On("SetUserExperience", mock.Anything, int64(1), 430, 2).Return(nil)
				notifier.On("Notify", mock.Anything, int64(1), model.NotificationLevel, levelUpTitle, mock.Anything, mock.Anything).
					Return(errors.New("inbox down"))
			},
			checkAdditional: func(t *testing.T, result *model.ClaimResult) {
				assert.Equal(t, 430, result.Experience)
				assert.Equal(t, 2, result.Level)
				assert.True(t, result.LeveledUp)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &mocks.MockQuestTx{}
			runner := &mocks.MockTxRunner{Tx: tx}
			notifier := &mocks.MockNotifier{}
			runner.On("QuestTransaction", mock.Anything).Return(nil)
			tt.mockSetup(tx, notifier)

			service := NewClaimService(runner, notifier, period.New(nil))
			service.now = func() time.Time { return now }

			result, err := service.Claim(context.Background(), 1, 10)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
				tx.AssertNotCalled(t, "MarkClaimed", mock.Anything, mock.Anything, mock.Anything)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, result)
			if tt.checkAdditional != nil {
				tt.checkAdditional(t, result)
			}
			tx.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestClaimService_Claim_StorageFailure(t *testing.T) {
	today := time.Now()
	tx := &mocks.MockQuestTx{}
	runner := &mocks.MockTxRunner{Tx: tx}
	notifier := &mocks.MockNotifier{}

	runner.On("QuestTransaction", mock.Anything).Return(nil)
	tx.On("LockClaimView", mock.Anything, int64(1), int64(10)).
		Return(&model.ClaimView{
			Recurrence:   model.RecurrenceAchievement,
			TargetCount:  1,
			CurrentCount: 1,
			RewardExp:    1000,
			LastUpdated:  &today,
		}, nil)
	tx.On("MarkClaimed", mock.Anything, int64(1), int64(10)).Return(nil)
	tx.On("SetUserExperience", mock.Anything, int64(1), 1000, 3).Return(errors.New("disk full"))

	service := NewClaimService(runner, notifier, period.New(nil))
	result, err := service.Claim(context.Background(), 1, 10)

	assert.Error(t, err)
	assert.Nil(t, result)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
