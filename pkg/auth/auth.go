package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
)

var ErrInvalidToken = errors.New("invalid token")

type UserResolver interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type Config struct {
	JWTSecret        string
	TelegramBotToken string
	Debug            bool
}

// Claims are issued by the account service; only verification happens here.
type Claims struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator accepts either "Bearer <jwt>" or "Telegram <init data>".
type Authenticator struct {
	secret   []byte
	telegram *TelegramAuth
	users    UserResolver
}

func New(cfg Config, users UserResolver) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		telegram: NewTelegramAuth(cfg.TelegramBotToken, cfg.Debug),
		users:    users,
	}
}

func (a *Authenticator) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		switch {
		case strings.HasPrefix(authHeader, "Bearer "):
			claims, err := a.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Info("invalid bearer token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			c.Set(UserIDKey, claims.ID)
			c.Set(UserRoleKey, claims.Role)

		case strings.HasPrefix(authHeader, "Telegram "):
			telegramUser, err := a.telegram.Verify(strings.TrimPrefix(authHeader, "Telegram "))
			if err != nil {
				log.Info("invalid telegram init data", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram auth data"})
				return
			}

			user, err := a.users.GetUserByTelegramID(c.Request.Context(), telegramUser.ID)
			if err != nil {
				log.Info("telegram user is not linked", zap.Int64("telegram_id", telegramUser.ID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "telegram account is not linked"})
				return
			}
			c.Set(UserIDKey, user.ID)
			c.Set(UserRoleKey, user.Role)

		default:
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user id set by Middleware.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
