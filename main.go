package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synergy-backend/internal/config"
	"synergy-backend/internal/database"
	"synergy-backend/internal/handlers"
	"synergy-backend/internal/metrics"
	"synergy-backend/internal/middleware"
	"synergy-backend/internal/notify"
	"synergy-backend/internal/redis"
	"synergy-backend/internal/services"
	"synergy-backend/internal/utils"
	"synergy-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	log := logrus.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) (err error) {
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel, log)
	if err != nil {
		return err
	}

	// Redis is optional; without it tokens cannot be revoked and logins
	// are not rate limited.
	var sessions *redis.Client
	if cfg.RedisURL != "" {
		if sessions, err = redis.Initialize(ctx, cfg.RedisURL, log); err != nil {
			return err
		}
	} else {
		log.Warn("REDIS_URL not set, token revocation and login rate limiting are disabled")
	}
	defer func() { err = multierr.Append(err, closeAll(db, sessions)) }()

	backend, err := services.NewStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.WithField("backend", backend.Name()).Info("File storage ready")
	files := services.NewFileStore(backend, cfg.MaxFileSize, cfg.AllowedExtensions, log)

	var pusher notify.Pusher = notify.NewLogPusher(log)
	if cfg.PushEnabled() {
		fcm, err := notify.NewFCMPusher(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return err
		}
		pusher = fcm
	}
	notifier := notify.NewNotifier(db, pusher, log)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	auth := services.NewAuthService(db, tokens, sessions, cfg.LoginRateLimit, cfg.LoginRateWindow, log)
	profiles := services.NewProfileService(db, files, log)
	collections := services.NewCollectionService(db, files, log)
	collaborations := services.NewCollaborationService(db, files, notifier, cfg.BaseURL, log)
	matches := services.NewMatchService(db, collaborations, collections, notifier, m, log)
	chats := services.NewChatService(db)

	hub := websocket.NewHub(chats, matches, notifier, m, cfg.ChatRequireMatch, log)

	router := setupRoutes(cfg, log, m, backend, auth, handlers.Set{
		Auth:          handlers.NewAuthHandler(auth, log),
		Profile:       handlers.NewProfileHandler(profiles, cfg.BaseURL, log),
		Collection:    handlers.NewCollectionHandler(collections, cfg.BaseURL, log),
		Collaboration: handlers.NewCollaborationHandler(collaborations, cfg.BaseURL, log),
		Match:         handlers.NewMatchHandler(matches, cfg.BaseURL, log),
		Chat:          handlers.NewChatHandler(chats, hub, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupRoutes(cfg *config.Config, log *logrus.Logger, m *metrics.Metrics, backend services.Storage,
	auth middleware.Authenticator, h handlers.Set) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(log), middleware.Metrics(m), middleware.CORS(cfg.CORSOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	if local, ok := backend.(*services.LocalStorage); ok {
		router.Static(services.LocalPrefix, local.Root())
	}

	handlers.RegisterRoutes(router, auth, h)
	return router
}

func closeAll(db *gorm.DB, sessions *redis.Client) error {
	var err error
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		err = multierr.Append(err, sqlDB.Close())
	} else {
		err = multierr.Append(err, dbErr)
	}
	return multierr.Append(err, sessions.Close())
}
