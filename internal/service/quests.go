package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/period"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
)

type QuestService struct {
	repo    QuestRepository
	catalog QuestCatalog
	policy  *period.Policy
	now     func() time.Time
}

func NewQuestService(repo QuestRepository, catalog QuestCatalog, policy *period.Policy) *QuestService {
	return &QuestService{
		repo:    repo,
		catalog: catalog,
		policy:  policy,
		now:     time.Now,
	}
}

// ListForUser returns the quest board. Progress left over from an earlier
// day or week is shown as reset.
func (s *QuestService) ListForUser(ctx context.Context, userID int64) ([]*model.UserQuest, error) {
	quests, err := s.repo.GetUserQuests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user quests: %w", err)
	}

	now := s.now()
	for _, q := range quests {
		if !s.policy.SamePeriod(q.LastUpdated, now, q.Recurrence) {
			q.CurrentCount = 0
			q.IsClaimed = false
		}
		q.Status = questStatus(q)
	}
	return quests, nil
}

func questStatus(q *model.UserQuest) model.QuestStatus {
	switch {
	case q.IsClaimed:
		return model.StatusClaimed
	case q.CurrentCount >= q.TargetCount:
		return model.StatusCompleted
	case q.CurrentCount > 0:
		return model.StatusInProgress
	default:
		return model.StatusUnstarted
	}
}

func (s *QuestService) ListAll(ctx context.Context) ([]*model.Quest, error) {
	quests, err := s.repo.GetAllQuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quests: %w", err)
	}
	return quests, nil
}

func (s *QuestService) Create(ctx context.Context, quest *model.Quest) error {
	if err := validateQuest(quest); err != nil {
		return err
	}

	if err := s.repo.CreateQuest(ctx, quest); err != nil {
		if errors.Is(err, repository.ErrQuestKeyExists) {
			return ErrQuestKeyExists
		}
		return fmt.Errorf("failed to create quest: %w", err)
	}

	s.catalog.Invalidate()
	return nil
}

func (s *QuestService) Update(ctx context.Context, quest *model.Quest) error {
	if err := validateQuest(quest); err != nil {
		return err
	}

	if err := s.repo.UpdateQuest(ctx, quest); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrQuestNotFound
		case errors.Is(err, repository.ErrQuestKeyExists):
			return ErrQuestKeyExists
		}
		return fmt.Errorf("failed to update quest: %w", err)
	}
	s.catalog.Invalidate()

	stored, err := s.repo.GetQuestByID(ctx, quest.ID)
	if err != nil {
		return fmt.Errorf("failed to reload quest: %w", err)
	}
	*quest = *stored
	return nil
}

func (s *QuestService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteQuest(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestNotFound
		}
		return fmt.Errorf("failed to delete quest: %w", err)
	}

	s.catalog.Invalidate()
	return nil
}

func validateQuest(q *model.Quest) error {
	q.Key = strings.TrimSpace(q.Key)
	q.Name = strings.TrimSpace(q.Name)

	switch {
	case q.Key == "":
		return fmt.Errorf("%w: quest key is required", ErrInvalidQuest)
	case q.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidQuest)
	case q.TargetCount < 1:
		return fmt.Errorf("%w: target count must be at least 1", ErrInvalidQuest)
	case q.RewardExp < 0:
		return fmt.Errorf("%w: reward must not be negative", ErrInvalidQuest)
	}

	if _, err := model.ParseActionType(string(q.ActionType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuest, err)
	}
	if _, err := model.ParseRecurrence(string(q.Recurrence)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuest, err)
	}

	return nil
}
