package service

import (
	"context"
	"errors"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrQuestNotFound    = errors.New("quest not found")
	ErrProgressNotFound = errors.New("quest progress not found")

	ErrQuestExpired        = errors.New("quest has expired, progress was reset for the new period")
	ErrQuestAlreadyClaimed = errors.New("quest reward already claimed")
	ErrTargetNotReached    = errors.New("quest target not reached")
	ErrInvalidQuest        = errors.New("invalid quest definition")
	ErrQuestKeyExists      = errors.New("quest key already exists")
)

type Service struct {
	*UserService
	*QuestService
	*ClaimService
	*StreakService
	Engine *QuestEngine
}

func NewService(
	userService *UserService,
	questService *QuestService,
	claimService *ClaimService,
	streakService *StreakService,
	engine *QuestEngine,
) *Service {
	return &Service{
		UserService:   userService,
		QuestService:  questService,
		ClaimService:  claimService,
		StreakService: streakService,
		Engine:        engine,
	}
}

type UserServiceI interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type QuestEngineI interface {
	RecordAction(ctx context.Context, userID int64, action model.ActionType, amount int, questKey string)
	Accumulate(ctx context.Context, userID int64, action model.ActionType, delta int)
	ResyncAbsolute(ctx context.Context, userID int64, questKey string, value int)
}

// ActionTracker records a user action without blocking the caller.
type ActionTracker interface {
	Track(ctx context.Context, userID int64, action model.ActionType, amount int)
}

type ClaimServiceI interface {
	Claim(ctx context.Context, userID, questID int64) (*model.ClaimResult, error)
}

type StreakServiceI interface {
	RecordLogin(ctx context.Context, userID int64) (int, error)
}

type QuestServiceI interface {
	ListForUser(ctx context.Context, userID int64) ([]*model.UserQuest, error)
	ListAll(ctx context.Context) ([]*model.Quest, error)
	Create(ctx context.Context, quest *model.Quest) error
	Update(ctx context.Context, quest *model.Quest) error
	Delete(ctx context.Context, id int64) error
}

// TxRunner opens a transaction with row-locked quest operations.
type TxRunner interface {
	QuestTransaction(ctx context.Context, fn func(tx repository.QuestTx) error) error
}

type CatalogRepository interface {
	GetQuestsByAction(ctx context.Context, action model.ActionType) ([]*model.Quest, error)
	GetQuestByKey(ctx context.Context, key string) (*model.Quest, error)
}

type QuestRepository interface {
	GetAllQuests(ctx context.Context) ([]*model.Quest, error)
	GetUserQuests(ctx context.Context, userID int64) ([]*model.UserQuest, error)
	GetQuestByID(ctx context.Context, id int64) (*model.Quest, error)
	CreateQuest(ctx context.Context, quest *model.Quest) error
	UpdateQuest(ctx context.Context, quest *model.Quest) error
	DeleteQuest(ctx context.Context, id int64) error
}

// QuestCatalog resolves quest definitions for the engine.
type QuestCatalog interface {
	ByAction(ctx context.Context, action model.ActionType) ([]*model.Quest, error)
	ByKey(ctx context.Context, key string) (*model.Quest, error)
	Invalidate()
}

// Notifier delivers a user-facing message. Callers log and drop its errors.
type Notifier interface {
	Notify(ctx context.Context, userID int64, category model.NotificationCategory, title, body string, link *string) error
}
