package repository

import (
	"context"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type Notification struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Category  string    `db:"category"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Link      *string   `db:"link"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.sb.
		Insert("notifications").
		Columns("user_id", "category", "title", "body", "link", "is_read", "created_at").
		Values(n.UserID, string(n.Category), n.Title, n.Body, n.Link, false, n.CreatedAt.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRowxContext(ctx, query, args...).Scan(&n.ID)
}

func (r *Repository) GetNotifications(ctx context.Context, userID int64, limit uint64) ([]*model.Notification, error) {
	query, args, err := r.sb.
		Select("id", "user_id", "category", "title", "body", "link", "is_read", "created_at").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Notification
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	notifications := make([]*model.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, &model.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Category:  model.NotificationCategory(row.Category),
			Title:     row.Title,
			Body:      row.Body,
			Link:      row.Link,
			IsRead:    row.IsRead,
			CreatedAt: row.CreatedAt,
		})
	}
	return notifications, nil
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, userID int64) (int, error) {
	query, args, err := r.sb.
		Select("COUNT(1)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) MarkNotificationsRead(ctx context.Context, userID int64) error {
	query, args, err := r.sb.
		Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// PublishNotification broadcasts a payload on a Postgres channel so that
// every instance can push it to its own live connections. No-op on SQLite.
func (r *Repository) PublishNotification(ctx context.Context, channel string, payload []byte) error {
	if r.driver != DriverPostgres {
		return nil
	}
	_, err := r.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, string(payload))
	return err
}
