package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type User struct {
	ID            int64      `db:"id"`
	Username      string     `db:"username"`
	Role          string     `db:"role"`
	Experience    int        `db:"experience"`
	Level         int        `db:"level"`
	LoginStreak   int        `db:"login_streak"`
	LastLoginDate *time.Time `db:"last_login_date"`
	TelegramID    *int64     `db:"telegram_id"`
	CreatedAt     time.Time  `db:"created_at"`
}

var userColumns = []string{
	"id", "username", "role", "experience", "level",
	"login_streak", "last_login_date", "telegram_id", "created_at",
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:            u.ID,
		Username:      u.Username,
		Role:          u.Role,
		Experience:    u.Experience,
		Level:         u.Level,
		LoginStreak:   u.LoginStreak,
		LastLoginDate: u.LastLoginDate,
		TelegramID:    u.TelegramID,
		CreatedAt:     u.CreatedAt,
	}
}

// CreateUser inserts a user row. Accounts are owned elsewhere; this exists for
// provisioning and local development.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	role := user.Role
	if role == "" {
		role = "user"
	}
	level := user.Level
	if level < 1 {
		level = 1
	}

	query, args, err := r.sb.
		Insert("users").
		SetMap(map[string]interface{}{
			"username":    user.Username,
			"role":        role,
			"experience":  user.Experience,
			"level":       level,
			"telegram_id": user.TelegramID,
		}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&user.ID); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.Role = role
	user.Level = level

	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"id": id})
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"telegram_id": telegramID})
}

func (r *Repository) getUser(ctx context.Context, where squirrel.Sqlizer) (*model.User, error) {
	query, args, err := r.sb.
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}
