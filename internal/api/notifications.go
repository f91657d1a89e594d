package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/notification"
	"github.com/bebokaka99/truyenviethay-backend/pkg/auth"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type NotificationInbox interface {
	List(ctx context.Context, userID int64) (*model.Inbox, error)
	MarkAllRead(ctx context.Context, userID int64) error
}

type notificationRoutes struct {
	inbox    NotificationInbox
	hub      *notification.Hub
	upgrader websocket.Upgrader
}

func NewNotificationRoutes(handler *gin.RouterGroup, inbox NotificationInbox, hub *notification.Hub, authMiddleware gin.HandlerFunc) {
	r := &notificationRoutes{
		inbox: inbox,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	h := handler.Group("/notifications")
	h.Use(tokenFromQuery(), authMiddleware)
	{
		h.GET("", r.GetNotifications)
		h.PUT("/read", r.MarkAllRead)
		h.GET("/ws", r.Connect)
	}
}

// tokenFromQuery lets browsers authenticate the websocket handshake, which
// cannot carry custom headers.
func tokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := strings.TrimSpace(c.Query("token")); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}

func (r *notificationRoutes) GetNotifications(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	inbox, err := r.inbox.List(c.Request.Context(), userID)
	if err != nil {
		logger.Logger().Error("failed to get notifications", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, inbox)
}

func (r *notificationRoutes) MarkAllRead(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := r.inbox.MarkAllRead(c.Request.Context(), userID); err != nil {
		logger.Logger().Error("failed to mark notifications read", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notifications marked as read"})
}

func (r *notificationRoutes) Connect(c *gin.Context) {
	log := logger.Logger()

	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := r.hub.Register(userID, conn)
	log.Info("websocket client connected",
		zap.Int64("user_id", userID), zap.String("client_id", client.ID.String()))

	r.hub.Serve(client)

	log.Info("websocket client disconnected",
		zap.Int64("user_id", userID), zap.String("client_id", client.ID.String()))
}
