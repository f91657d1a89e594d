package model

import "time"

type User struct {
	ID            int64
	Username      string
	Role          string
	Experience    int
	Level         int
	LoginStreak   int
	LastLoginDate *time.Time
	TelegramID    *int64
	CreatedAt     time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
