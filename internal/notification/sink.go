// Package notification persists user notifications and pushes them to live
// websocket connections, optionally mirroring them to Telegram.
package notification

import (
	"context"
	"fmt"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// Channel is the Postgres NOTIFY channel shared by all instances.
	Channel = "quest_notifications"

	inboxSize = 20
)

type Store interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	GetNotifications(ctx context.Context, userID int64, limit uint64) ([]*model.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int, error)
	MarkNotificationsRead(ctx context.Context, userID int64) error
	PublishNotification(ctx context.Context, channel string, payload []byte) error
}

type Mirror interface {
	Mirror(ctx context.Context, userID int64, n *model.Notification) error
}

// Message is the frame written to websocket clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type envelope struct {
	UserID       int64               `json:"user_id"`
	Notification *model.Notification `json:"notification"`
}

type Sink struct {
	store   Store
	hub     *Hub
	mirror  Mirror
	relayed bool
}

// NewSink builds the sink. When relayed is set, live delivery goes through
// the Postgres channel so that every instance's Relay pushes to its own hub.
func NewSink(store Store, hub *Hub, mirror Mirror, relayed bool) *Sink {
	return &Sink{
		store:   store,
		hub:     hub,
		mirror:  mirror,
		relayed: relayed,
	}
}

func (s *Sink) Notify(ctx context.Context, userID int64, category model.NotificationCategory, title, body string, link *string) error {
	n := &model.Notification{
		UserID:   userID,
		Category: category,
		Title:    title,
		Body:     body,
		Link:     link,
	}

	if err := s.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	log := logger.Logger()

	if s.relayed {
		payload, err := json.Marshal(envelope{UserID: userID, Notification: n})
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}
		if err := s.store.PublishNotification(ctx, Channel, payload); err != nil {
			log.Warn("failed to publish notification", zap.Int64("user_id", userID), zap.Error(err))
		}
	} else if s.hub != nil {
		s.hub.Publish(userID, Message{Type: "notification", Payload: n})
	}

	if s.mirror != nil {
		if err := s.mirror.Mirror(ctx, userID, n); err != nil {
			log.Warn("failed to mirror notification", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	return nil
}

type Inbox struct {
	store Store
}

func NewInbox(store Store) *Inbox {
	return &Inbox{store: store}
}

// List returns the latest notifications and the number still unread.
func (i *Inbox) List(ctx context.Context, userID int64) (*model.Inbox, error) {
	notifications, err := i.store.GetNotifications(ctx, userID, inboxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	unread, err := i.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &model.Inbox{
		Notifications: notifications,
		Unread:        unread,
	}, nil
}

func (i *Inbox) MarkAllRead(ctx context.Context, userID int64) error {
	if err := i.store.MarkNotificationsRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
