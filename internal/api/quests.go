package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/service"
	"github.com/bebokaka99/truyenviethay-backend/pkg/auth"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type questRoutes struct {
	qs service.QuestServiceI
	cs service.ClaimServiceI
}

// QuestGuards are the middlewares the quest routes are mounted behind.
type QuestGuards struct {
	Auth       gin.HandlerFunc
	Admin      gin.HandlerFunc
	ClaimLimit gin.HandlerFunc
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, cs service.ClaimServiceI, g QuestGuards) {
	r := &questRoutes{qs: qs, cs: cs}
	h := handler.Group("/quests")
	h.Use(g.Auth)
	{
		h.GET("", r.GetUserQuests)
		h.POST("/claim", g.ClaimLimit, r.ClaimReward)
	}

	admin := h.Group("/admin")
	admin.Use(g.Admin)
	{
		admin.GET("/all", r.GetAllQuests)
		admin.POST("", r.CreateQuest)
		admin.PUT("/:id", r.UpdateQuest)
		admin.DELETE("/:id", r.DeleteQuest)
	}
}

type QuestResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"quest_key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ActionType  string    `json:"action_type"`
	Recurrence  string    `json:"type"`
	TargetCount int       `json:"target_count"`
	RewardExp   int       `json:"reward_exp"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserQuestResponse struct {
	QuestResponse
	CurrentCount int        `json:"current_count"`
	IsClaimed    bool       `json:"is_claimed"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
	Status       string     `json:"status"`
}

func newQuestResponse(q *model.Quest) QuestResponse {
	return QuestResponse{
		ID:          q.ID,
		Key:         q.Key,
		Name:        q.Name,
		Description: q.Description,
		ActionType:  string(q.ActionType),
		Recurrence:  string(q.Recurrence),
		TargetCount: q.TargetCount,
		RewardExp:   q.RewardExp,
		CreatedAt:   q.CreatedAt,
	}
}

func (r *questRoutes) GetUserQuests(c *gin.Context) {
	log := logger.Logger()

	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quests, err := r.qs.ListForUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("failed to get user quests", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quests"})
		return
	}

	response := make([]UserQuestResponse, len(quests))
	for i, q := range quests {
		response[i] = UserQuestResponse{
			QuestResponse: newQuestResponse(&q.Quest),
			CurrentCount:  q.CurrentCount,
			IsClaimed:     q.IsClaimed,
			LastUpdated:   q.LastUpdated,
			Status:        string(q.Status),
		}
	}

	c.JSON(http.StatusOK, response)
}

type ClaimRequest struct {
	QuestID int64 `json:"quest_id" binding:"required"`
}

type ClaimResponse struct {
	Message    string `json:"message"`
	Reward     int    `json:"reward"`
	Experience int    `json:"experience"`
	Level      int    `json:"level"`
	LeveledUp  bool   `json:"leveled_up"`
}

func (r *questRoutes) ClaimReward(c *gin.Context) {
	log := logger.Logger()

	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := r.cs.Claim(c.Request.Context(), userID, req.QuestID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProgressNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest progress not found"})
		case errors.Is(err, service.ErrQuestExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "quest has expired, progress was reset for the new period"})
		case errors.Is(err, service.ErrQuestAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"error": "reward already claimed"})
		case errors.Is(err, service.ErrTargetNotReached):
			c.JSON(http.StatusForbidden, gin.H{"error": "quest target not reached"})
		default:
			log.Error("failed to claim quest reward",
				zap.Int64("user_id", userID), zap.Int64("quest_id", req.QuestID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim reward"})
		}
		return
	}

	c.JSON(http.StatusOK, ClaimResponse{
		Message:    result.Message,
		Reward:     result.Reward,
		Experience: result.Experience,
		Level:      result.Level,
		LeveledUp:  result.LeveledUp,
	})
}

func (r *questRoutes) GetAllQuests(c *gin.Context) {
	quests, err := r.qs.ListAll(c.Request.Context())
	if err != nil {
		logger.Logger().Error("failed to list quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quests"})
		return
	}

	response := make([]QuestResponse, len(quests))
	for i, q := range quests {
		response[i] = newQuestResponse(q)
	}

	c.JSON(http.StatusOK, response)
}

type QuestRequest struct {
	Key         string `json:"quest_key" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ActionType  string `json:"action_type" binding:"required"`
	Recurrence  string `json:"type" binding:"required"`
	TargetCount int    `json:"target_count"`
	RewardExp   int    `json:"reward_exp"`
}

func (req *QuestRequest) toModel() (*model.Quest, error) {
	action, err := model.ParseActionType(req.ActionType)
	if err != nil {
		return nil, err
	}
	recurrence, err := model.ParseRecurrence(req.Recurrence)
	if err != nil {
		return nil, err
	}

	return &model.Quest{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		ActionType:  action,
		Recurrence:  recurrence,
		TargetCount: req.TargetCount,
		RewardExp:   req.RewardExp,
	}, nil
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	quest, ok := bindQuest(c)
	if !ok {
		return
	}

	if err := r.qs.Create(c.Request.Context(), quest); err != nil {
		writeQuestError(c, "failed to create quest", err)
		return
	}

	c.JSON(http.StatusCreated, newQuestResponse(quest))
}

func (r *questRoutes) UpdateQuest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest id"})
		return
	}

	quest, ok := bindQuest(c)
	if !ok {
		return
	}
	quest.ID = id

	if err := r.qs.Update(c.Request.Context(), quest); err != nil {
		writeQuestError(c, "failed to update quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(quest))
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest id"})
		return
	}

	if err := r.qs.Delete(c.Request.Context(), id); err != nil {
		writeQuestError(c, "failed to delete quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quest deleted"})
}

func bindQuest(c *gin.Context) (*model.Quest, bool) {
	var req QuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return nil, false
	}

	quest, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return quest, true
}

func writeQuestError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrQuestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
	case errors.Is(err, service.ErrQuestKeyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "quest key already exists"})
	case errors.Is(err, service.ErrInvalidQuest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Logger().Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
