package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// Relay listens on the Postgres channel and pushes every notification to
// the local hub.
type Relay struct {
	dsn string
	hub *Hub
}

func NewRelay(dsn string, hub *Hub) *Relay {
	return &Relay{dsn: dsn, hub: hub}
}

func (r *Relay) Run(ctx context.Context) error {
	log := logger.Logger()

	listener := pq.NewListener(r.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("notification listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}
	log.Info("notification relay started", zap.String("channel", Channel))

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			if err := r.dispatch([]byte(n.Extra)); err != nil {
				log.Warn("failed to relay notification", zap.Error(err))
			}
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				log.Warn("notification listener ping failed", zap.Error(err))
			}
		}
	}
}

func (r *Relay) dispatch(payload []byte) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if env.Notification == nil || env.UserID == 0 {
		return fmt.Errorf("incomplete payload")
	}

	r.hub.Publish(env.UserID, Message{Type: "notification", Payload: env.Notification})
	return nil
}
