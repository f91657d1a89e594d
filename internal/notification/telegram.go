package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramConfig struct {
	BotToken string
	Debug    bool
	// Endpoint overrides the Bot API URL format, mainly for tests.
	Endpoint string
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramMirror sends a copy of each notification to the user's Telegram
// chat when the account is linked.
type TelegramMirror struct {
	bot   *tgbotapi.BotAPI
	users UserLookup
}

func NewTelegramMirror(config TelegramConfig, users UserLookup) (*TelegramMirror, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(config.BotToken, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug

	return &TelegramMirror{
		bot:   bot,
		users: users,
	}, nil
}

func (m *TelegramMirror) Mirror(ctx context.Context, userID int64, n *model.Notification) error {
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TelegramID == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(*user.TelegramID, fmt.Sprintf("%s\n%s", n.Title, n.Body))
	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
