package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/period"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	levelUpTitle = "Level up!"
	levelUpLink  = "/profile"
)

// LevelForExperience is floor(sqrt(exp/100)), never below 1.
func LevelForExperience(exp int) int {
	level := int(math.Floor(math.Sqrt(float64(exp) / 100)))
	if level < 1 {
		return 1
	}
	return level
}

type ClaimService struct {
	tx       TxRunner
	notifier Notifier
	policy   *period.Policy
	now      func() time.Time
}

func NewClaimService(tx TxRunner, notifier Notifier, policy *period.Policy) *ClaimService {
	return &ClaimService{
		tx:       tx,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
	}
}

// Claim redeems a completed quest. Marking the quest claimed and crediting
// experience happen in one transaction.
func (s *ClaimService) Claim(ctx context.Context, userID, questID int64) (*model.ClaimResult, error) {
	now := s.now()
	var result *model.ClaimResult

	err := s.tx.QuestTransaction(ctx, func(tx repository.QuestTx) error {
		view, err := tx.LockClaimView(ctx, userID, questID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProgressNotFound
			}
			return err
		}
		if view.LastUpdated == nil {
			return ErrProgressNotFound
		}

		if view.Recurrence == model.RecurrenceDaily && !s.policy.SamePeriod(view.LastUpdated, now, view.Recurrence) {
			return ErrQuestExpired
		}
		if view.IsClaimed {
			return ErrQuestAlreadyClaimed
		}
		if view.CurrentCount < view.TargetCount {
			return ErrTargetNotReached
		}

		if err := tx.MarkClaimed(ctx, userID, questID); err != nil {
			return err
		}

		experience := view.Experience + view.RewardExp
		level := LevelForExperience(experience)
		if err := tx.SetUserExperience(ctx, userID, experience, level); err != nil {
			return err
		}

		result = &model.ClaimResult{
			Message:    fmt.Sprintf("Reward claimed! +%d EXP", view.RewardExp),
			Reward:     view.RewardExp,
			Experience: experience,
			Level:      level,
			LeveledUp:  level > LevelForExperience(view.Experience),
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProgressNotFound),
			errors.Is(err, ErrQuestExpired),
			errors.Is(err, ErrQuestAlreadyClaimed),
			errors.Is(err, ErrTargetNotReached):
			return nil, err
		}
		return nil, fmt.Errorf("failed to claim quest %d: %w", questID, err)
	}

	if result.LeveledUp {
		link := levelUpLink
		body := fmt.Sprintf("You reached level %d.", result.Level)
		if err := s.notifier.Notify(ctx, userID, model.NotificationLevel, levelUpTitle, body, &link); err != nil {
			logger.Logger().Warn("failed to send level up notification",
				zap.Int64("user_id", userID), zap.Int("level", result.Level), zap.Error(err))
		}
	}

	return result, nil
}
