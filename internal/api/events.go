package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/service"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// eventRoutes are the trigger points other backend services call after a
// user logs in, reads a chapter or posts a comment.
type eventRoutes struct {
	streak  service.StreakServiceI
	tracker service.ActionTracker
}

func NewEventRoutes(handler *gin.RouterGroup, streak service.StreakServiceI, tracker service.ActionTracker, internal gin.HandlerFunc) {
	r := &eventRoutes{streak: streak, tracker: tracker}
	h := handler.Group("/events")
	h.Use(internal)
	{
		h.POST("/login/:user_id", r.Login)
		h.POST("/read/:user_id", r.action(model.ActionRead))
		h.POST("/comment/:user_id", r.action(model.ActionComment))
	}
}

type EventRequest struct {
	Amount int `json:"amount"`
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		logger.Logger().Error("failed to parse user_id", zap.String("user_id", c.Param("user_id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

func (r *eventRoutes) Login(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if _, err := r.streak.RecordLogin(ctx, userID); err != nil {
			level := zap.ErrorLevel
			if errors.Is(err, service.ErrUserNotFound) {
				level = zap.WarnLevel
			}
			logger.Logger().Log(level, "failed to record login", zap.Int64("user_id", userID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "accepted"})
}

func (r *eventRoutes) action(action model.ActionType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseUserID(c)
		if !ok {
			return
		}

		req := EventRequest{Amount: 1}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		if req.Amount <= 0 {
			req.Amount = 1
		}

		r.tracker.Track(c.Request.Context(), userID, action, req.Amount)

		c.JSON(http.StatusAccepted, gin.H{"message": "accepted"})
	}
}
