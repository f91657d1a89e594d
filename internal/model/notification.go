package model

import "time"

type NotificationCategory string

const (
	NotificationQuest NotificationCategory = "quest"
	NotificationLevel NotificationCategory = "level"
)

type Notification struct {
	ID        int64                `json:"id"`
	UserID    int64                `json:"user_id"`
	Category  NotificationCategory `json:"category"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Link      *string              `json:"link,omitempty"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
}

type Inbox struct {
	Notifications []*Notification `json:"notifications"`
	Unread        int             `json:"unread_count"`
}
