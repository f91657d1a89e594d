package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/period"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"go.uber.org/zap"
)

// StreakService keeps the consecutive-day login streak and feeds logins into
// the quest engine.
type StreakService struct {
	tx         TxRunner
	engine     QuestEngineI
	policy     *period.Policy
	streakKeys []string
	now        func() time.Time
}

func NewStreakService(tx TxRunner, engine QuestEngineI, policy *period.Policy, streakKeys []string) *StreakService {
	return &StreakService{
		tx:         tx,
		engine:     engine,
		policy:     policy,
		streakKeys: streakKeys,
		now:        time.Now,
	}
}

// NextStreak returns the streak after a login at now. Same day keeps it,
// the next day extends it, anything else starts over at 1.
func (s *StreakService) NextStreak(current int, lastLogin *time.Time, now time.Time) int {
	if lastLogin == nil || current < 1 {
		return 1
	}
	switch s.policy.DaysBetween(*lastLogin, now) {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// RecordLogin updates the user's streak, then records the login and resyncs
// streak quests. Quest errors are logged by the engine.
func (s *StreakService) RecordLogin(ctx context.Context, userID int64) (int, error) {
	now := s.now()
	var streak int

	err := s.tx.QuestTransaction(ctx, func(tx repository.QuestTx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		streak = s.NextStreak(user.LoginStreak, user.LastLoginDate, now)
		if user.LastLoginDate != nil && s.policy.SameDay(*user.LastLoginDate, now) && streak == user.LoginStreak {
			return nil
		}
		return tx.SetLoginStreak(ctx, userID, streak, now)
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to update login streak: %w", err)
	}

	logger.Logger().Debug("login recorded", zap.Int64("user_id", userID), zap.Int("streak", streak))

	s.engine.Accumulate(ctx, userID, model.ActionLogin, 1)
	for _, key := range s.streakKeys {
		s.engine.ResyncAbsolute(ctx, userID, key, streak)
	}

	return streak, nil
}
