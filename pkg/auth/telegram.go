package auth

import (
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const expTime = 24 * time.Hour

type TelegramAuth struct {
	botToken  string
	debugMode bool
}

func NewTelegramAuth(botToken string, debugMode bool) *TelegramAuth {
	return &TelegramAuth{
		botToken:  botToken,
		debugMode: debugMode,
	}
}

type TelegramUserData struct {
	ID       int64
	Username string
	AuthDate time.Time
}

// Verify checks the init data signature (skipped in debug mode) and returns
// the Telegram user it describes.
func (t *TelegramAuth) Verify(initData string) (*TelegramUserData, error) {
	if !t.debugMode {
		if err := initdata.Validate(initData, t.botToken, expTime); err != nil {
			return nil, err
		}
	}

	data, err := initdata.Parse(initData)
	if err != nil {
		return nil, err
	}

	return &TelegramUserData{
		ID:       data.User.ID,
		Username: data.User.Username,
		AuthDate: data.AuthDate(),
	}, nil
}
