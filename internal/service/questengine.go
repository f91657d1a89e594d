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
	"golang.org/x/sync/errgroup"
)

const (
	questCompletedTitle = "Quest completed!"
	questCompletedLink  = "/profile?tab=tasks"

	defaultWorkerLimit = 4
)

type EngineConfig struct {
	// StreakQuestKeys are always resynced to an absolute value, whatever their action type.
	StreakQuestKeys []string
	WorkerLimit     int
}

// QuestEngine maps user actions onto quest progress. Every quest is updated
// in its own transaction with the progress row locked; notifications go out
// after commit. Failures are logged and never returned.
type QuestEngine struct {
	tx       TxRunner
	catalog  QuestCatalog
	notifier Notifier
	policy   *period.Policy

	absoluteKeys map[string]struct{}
	limit        int
	now          func() time.Time
}

func NewQuestEngine(tx TxRunner, catalog QuestCatalog, notifier Notifier, policy *period.Policy, cfg EngineConfig) *QuestEngine {
	keys := make(map[string]struct{}, len(cfg.StreakQuestKeys))
	for _, k := range cfg.StreakQuestKeys {
		keys[k] = struct{}{}
	}

	limit := cfg.WorkerLimit
	if limit <= 0 {
		limit = defaultWorkerLimit
	}

	return &QuestEngine{
		tx:           tx,
		catalog:      catalog,
		notifier:     notifier,
		policy:       policy,
		absoluteKeys: keys,
		limit:        limit,
		now:          time.Now,
	}
}

func (e *QuestEngine) isKeyedStreak(q *model.Quest) bool {
	if q.ActionType.Absolute() {
		return false
	}
	_, ok := e.absoluteKeys[q.Key]
	return ok
}

func (e *QuestEngine) isAbsolute(q *model.Quest) bool {
	if q.ActionType.Absolute() {
		return true
	}
	_, ok := e.absoluteKeys[q.Key]
	return ok
}

// RecordAction applies amount to every quest of the given action type, or only
// to questKey when it is set. Absolute quests take amount as their new value.
// Quests made absolute only through StreakQuestKeys are skipped unless
// questKey names them, so a plain login never overwrites a streak.
func (e *QuestEngine) RecordAction(ctx context.Context, userID int64, action model.ActionType, amount int, questKey string) {
	log := logger.Logger()

	quests, err := e.catalog.ByAction(ctx, action)
	if err != nil {
		log.Error("failed to resolve quests for action",
			zap.Int64("user_id", userID), zap.String("action", string(action)), zap.Error(err))
		return
	}

	matched := quests[:0:0]
	for _, q := range quests {
		switch {
		case questKey != "":
			if q.Key == questKey {
				matched = append(matched, q)
			}
		case e.isKeyedStreak(q):
		default:
			matched = append(matched, q)
		}
	}

	e.applyAll(ctx, userID, matched, amount, modeDerived)
}

// Accumulate adds delta to every counting quest of the action type. Absolute
// quests are left to ResyncAbsolute.
func (e *QuestEngine) Accumulate(ctx context.Context, userID int64, action model.ActionType, delta int) {
	log := logger.Logger()

	quests, err := e.catalog.ByAction(ctx, action)
	if err != nil {
		log.Error("failed to resolve quests for action",
			zap.Int64("user_id", userID), zap.String("action", string(action)), zap.Error(err))
		return
	}

	e.applyAll(ctx, userID, quests, delta, modeDelta)
}

// ResyncAbsolute overwrites one quest's progress with value.
func (e *QuestEngine) ResyncAbsolute(ctx context.Context, userID int64, questKey string, value int) {
	log := logger.Logger()

	quest, err := e.catalog.ByKey(ctx, questKey)
	if err != nil {
		if errors.Is(err, ErrQuestNotFound) {
			log.Debug("absolute quest not configured", zap.String("quest_key", questKey))
			return
		}
		log.Error("failed to resolve quest",
			zap.Int64("user_id", userID), zap.String("quest_key", questKey), zap.Error(err))
		return
	}

	e.applyAll(ctx, userID, []*model.Quest{quest}, value, modeAbsolute)
}

// Track runs RecordAction in the background, detached from ctx cancellation.
func (e *QuestEngine) Track(ctx context.Context, userID int64, action model.ActionType, amount int) {
	ctx = context.WithoutCancel(ctx)
	go e.RecordAction(ctx, userID, action, amount, "")
}

type applyMode int

const (
	modeDerived applyMode = iota
	modeDelta
	modeAbsolute
)

func (e *QuestEngine) applyAll(ctx context.Context, userID int64, quests []*model.Quest, value int, mode applyMode) {
	log := logger.Logger()

	var g errgroup.Group
	g.SetLimit(e.limit)

	for _, quest := range quests {
		absolute := e.isAbsolute(quest)
		switch mode {
		case modeDelta:
			if absolute {
				continue
			}
		case modeAbsolute:
			absolute = true
		}

		g.Go(func() error {
			completed, err := e.applyQuest(ctx, userID, quest, value, absolute)
			if err != nil {
				log.Error("failed to update quest progress",
					zap.Int64("user_id", userID),
					zap.String("quest_key", quest.Key),
					zap.Error(err))
				return nil
			}
			if completed {
				e.notifyCompleted(ctx, userID, quest)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (e *QuestEngine) applyQuest(ctx context.Context, userID int64, quest *model.Quest, value int, absolute bool) (bool, error) {
	now := e.now()
	var completed bool

	err := e.tx.QuestTransaction(ctx, func(tx repository.QuestTx) error {
		progress, err := tx.LockProgress(ctx, userID, quest.ID)
		if err != nil {
			return err
		}

		next, changed, first := e.advance(quest, *progress, value, absolute, now)
		if !changed {
			return nil
		}
		completed = first
		return tx.SaveProgress(ctx, &next)
	})
	if err != nil {
		return false, fmt.Errorf("apply quest %s: %w", quest.Key, err)
	}

	return completed, nil
}

// advance computes the next progress state. It reports whether anything
// changed and whether this update is the first completion in the period.
func (e *QuestEngine) advance(
	quest *model.Quest,
	p model.UserQuestProgress,
	value int,
	absolute bool,
	now time.Time,
) (model.UserQuestProgress, bool, bool) {
	target := quest.TargetCount

	if !e.policy.SamePeriod(p.LastUpdated, now, quest.Recurrence) {
		count := value
		if !absolute && quest.ActionType.Presence() {
			count = 1
		}

		p.CurrentCount = clampCount(count)
		p.IsClaimed = false
		p.LastUpdated = &now
		return p, true, p.CurrentCount >= target
	}

	prev := p.CurrentCount
	next := prev

	switch {
	case absolute:
		next = value
	case quest.ActionType.Presence():
		if e.policy.SameDay(*p.LastUpdated, now) {
			return p, false, false
		}
		next = prev + 1
		if quest.Recurrence != model.RecurrenceAchievement && next > target {
			next = target
		}
	default:
		if prev >= target && quest.Recurrence != model.RecurrenceAchievement {
			return p, false, false
		}
		next = prev + value
		if quest.Recurrence != model.RecurrenceAchievement && next > target {
			next = target
		}
	}

	next = clampCount(next)
	if next == prev {
		return p, false, false
	}

	p.CurrentCount = next
	p.LastUpdated = &now
	first := next >= target && prev < target && !p.IsClaimed
	return p, true, first
}

func (e *QuestEngine) notifyCompleted(ctx context.Context, userID int64, quest *model.Quest) {
	link := questCompletedLink
	body := fmt.Sprintf("You completed: %s. Claim your reward on your profile!", quest.Name)

	if err := e.notifier.Notify(ctx, userID, model.NotificationQuest, questCompletedTitle, body, &link); err != nil {
		logger.Logger().Warn("failed to send quest completion notification",
			zap.Int64("user_id", userID),
			zap.String("quest_key", quest.Key),
			zap.Error(err))
	}
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
