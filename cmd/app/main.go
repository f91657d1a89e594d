package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/api"
	"github.com/bebokaka99/truyenviethay-backend/internal/middleware"
	"github.com/bebokaka99/truyenviethay-backend/internal/notification"
	"github.com/bebokaka99/truyenviethay-backend/internal/period"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"
	"github.com/bebokaka99/truyenviethay-backend/internal/service"
	"github.com/bebokaka99/truyenviethay-backend/pkg/auth"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	claimBurst      = 5
	shutdownTimeout = 10 * time.Second
)

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quests",
		Short:        "Quest progress and reward service",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default ./config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	})

	return root
}

// bootstrap loads config, initializes the logger and opens the database.
func bootstrap() (*Config, *repository.Repository, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return nil, nil, err
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return nil, nil, err
	}

	repo, err := repository.New(cfg.Database)
	if err != nil {
		logger.Logger().Error("Failed to initialize repository", zap.Error(err))
		return nil, nil, err
	}

	return cfg, repo, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, repo, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer repo.Close()

	if err := repo.Migrate(cmd.Context()); err != nil {
		logger.Logger().Error("Migration failed", zap.Error(err))
		return err
	}

	logger.Logger().Info("Migrations applied")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, repo, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer repo.Close()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repo.Migrate(ctx); err != nil {
		zapLogger.Error("Migration failed", zap.Error(err))
		return err
	}

	loc, err := period.LoadLocation(cfg.Quests.Timezone)
	if err != nil {
		zapLogger.Error("Invalid quest timezone", zap.Error(err))
		return err
	}
	policy := period.New(loc)

	catalog, err := service.NewCatalog(repo, cfg.Quests.CatalogSize, cfg.Quests.CatalogTTL)
	if err != nil {
		return err
	}

	hub := notification.NewHub()
	relayed := repo.Driver() == repository.DriverPostgres

	var mirror notification.Mirror
	if cfg.Notifications.TelegramMirror && cfg.Auth.TelegramBotToken != "" {
		tm, err := notification.NewTelegramMirror(notification.TelegramConfig{
			BotToken: cfg.Auth.TelegramBotToken,
			Debug:    cfg.Auth.Debug,
		}, repo)
		if err != nil {
			zapLogger.Warn("Telegram mirror disabled", zap.Error(err))
		} else {
			mirror = tm
		}
	}
	sink := notification.NewSink(repo, hub, mirror, relayed)

	engine := service.NewQuestEngine(repo, catalog, sink, policy, service.EngineConfig{
		StreakQuestKeys: cfg.Quests.StreakQuestKeys,
		WorkerLimit:     cfg.Quests.WorkerLimit,
	})
	svc := service.NewService(
		service.NewUserService(repo),
		service.NewQuestService(repo, catalog, policy),
		service.NewClaimService(repo, sink, policy),
		service.NewStreakService(repo, engine, policy, cfg.Quests.StreakQuestKeys),
		engine,
	)

	authenticator := auth.New(auth.Config{
		JWTSecret:        cfg.Auth.JWTSecret,
		TelegramBotToken: cfg.Auth.TelegramBotToken,
		Debug:            cfg.Auth.Debug,
	}, svc.UserService)
	authorization := middleware.NewAuthorization(svc.UserService)
	limiter := middleware.NewRateLimiter(cfg.Server.ClaimRatePerMinute, claimBurst)

	if !cfg.Auth.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewQuestRoutes(a, svc.QuestService, svc.ClaimService, api.QuestGuards{
		Auth:       authenticator.Middleware(),
		Admin:      authorization.AdminOnly(),
		ClaimLimit: limiter.Middleware(),
	})
	api.NewNotificationRoutes(a, notification.NewInbox(repo), hub, authenticator.Middleware())
	api.NewEventRoutes(a, svc.StreakService, svc.Engine, middleware.InternalOnly(cfg.Server.InternalToken))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	if relayed {
		relay := notification.NewRelay(cfg.Database.GetDatabaseURL(), hub)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		zapLogger.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	return nil
}
