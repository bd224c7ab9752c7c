package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rally-backend/internal/config"
	"rally-backend/internal/database"
	"rally-backend/internal/events"
	"rally-backend/internal/handlers"
	"rally-backend/internal/logging"
	"rally-backend/internal/middleware"
	"rally-backend/internal/repository"
	"rally-backend/internal/router"
	"rally-backend/internal/services"
	"rally-backend/internal/storage"
	"rally-backend/internal/websocket"
	"rally-backend/internal/worker"
)

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("🚀 Starting Rally Backend...")
	logger.Info("✓ Environment variables loaded", "env", cfg.Env)

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "✗ PostgreSQL connection failed", err)
	}
	defer pool.Close()
	logger.Info("✓ PostgreSQL connected")

	// ──── Step 3: Run Database Migrations ────
	if err := database.Migrate(pool); err != nil {
		fatal(logger, "✗ Database migration failed", err)
	}
	logger.Info("✓ Database migrations applied")

	// ──── Step 4: Initialize Redis Clients (optional) ────
	var (
		redisCommands *redis.Client
		redisPubSub   *redis.Client
		limiter       services.RateLimiter
	)
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			fatal(logger, "✗ Redis connection failed", err)
		}
		defer redisClients.Close()
		redisCommands, redisPubSub = redisClients.Commands, redisClients.PubSub
		limiter = middleware.NewRedisLimiter(redisCommands, cfg.RateLimitInterval)
		logger.Info("✓ Redis connected (shared rate limiter, websocket fan-out)")
	} else {
		limiter = middleware.NewKeyedLimiter(cfg.RateLimitInterval)
		logger.Info("✓ Redis not configured, using in-process rate limiter")
	}

	// ──── Step 5: Initialize Event Publisher ────
	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	emitter := events.NewEmitter(publisher, cfg.Env)
	logger.Info("✓ Event publisher ready", "mode", events.Mode(publisher))

	// ──── Step 6: Initialize Object Storage (optional) ────
	var avatars services.AvatarStorage
	if cfg.ObjectStore.Enabled() {
		s3Storage, err := storage.NewS3Storage(context.Background(), cfg.ObjectStore)
		if err != nil {
			fatal(logger, "✗ Object storage initialization failed", err)
		}
		avatars = s3Storage
		logger.Info("✓ Object storage ready", "bucket", cfg.ObjectStore.Bucket)
	} else {
		logger.Info("✓ Object storage not configured, avatar uploads disabled")
	}

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewStudySessionRepo(pool)
	dailyStatRepo := repository.NewDailyStatRepo(pool)
	friendshipRepo := repository.NewFriendshipRepo(pool)
	classRepo := repository.NewClassRepo(pool)
	locationRepo := repository.NewLocationRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	adminRepo := repository.NewAdminRepo(pool)

	// ──── Step 7: Start WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.AuthJWTSecret)
	wsHub := websocket.NewHub(redisCommands, redisPubSub, jwtAuth, logger)
	defer wsHub.Close()
	logger.Info("✓ WebSocket hub started")

	// ──── Initialize Services ────
	workerPool := worker.NewPool(4, logger)
	timerService := services.NewTimerService(sessionRepo, dailyStatRepo, classRepo, limiter, emitter)
	reconciler := services.NewReconciler(sessionRepo, emitter, cfg.StaleSessionAfter)
	leaderboardService := services.NewLeaderboardService(dailyStatRepo, sessionRepo, locationRepo)
	friendService := services.NewFriendService(friendshipRepo, userRepo, dailyStatRepo, sessionRepo, locationRepo, limiter, emitter)
	classService := services.NewClassService(classRepo, emitter)
	locationService := services.NewLocationService(locationRepo, userRepo)
	chatService := services.NewChatService(chatRepo, userRepo, wsHub)
	userService := services.NewUserService(services.UserServiceDeps{
		Users:         userRepo,
		Stats:         dailyStatRepo,
		Sessions:      sessionRepo,
		Friendships:   friendshipRepo,
		Classes:       classRepo,
		Locations:     locationRepo,
		Avatars:       avatars,
		Limiter:       limiter,
		AllowedDomain: cfg.AllowedEmailDomain,
	})
	adminService := services.NewAdminService(adminRepo, classRepo, locationRepo, workerPool)

	// ──── Step 8: Start Reconciliation Scheduler (optional) ────
	var scheduler *services.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = services.NewScheduler(reconciler, logger)
		scheduler.Start()
		logger.Info("✓ Reconciliation scheduler started")
	} else {
		logger.Info("✓ Reconciliation scheduler disabled, expecting external cron")
	}

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		router.Options{
			Logger:      logger,
			JWTAuth:     jwtAuth,
			CronSecret:  cfg.CronSecret,
			AdminSecret: cfg.AdminSecret,
			FrontendURL: cfg.FrontendURL,
		},
		router.Handlers{
			Health:      handlers.NewHealthHandler(pool),
			Timer:       handlers.NewTimerHandler(timerService),
			Cron:        handlers.NewCronHandler(reconciler),
			Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
			Friends:     handlers.NewFriendHandler(friendService),
			Classes:     handlers.NewClassHandler(classService),
			Locations:   handlers.NewLocationHandler(locationService),
			Chat:        handlers.NewChatHandler(chatService),
			Users:       handlers.NewUserHandler(userService),
			Admin:       handlers.NewAdminHandler(adminService),
		},
		wsHub,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		if scheduler != nil {
			scheduler.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Info(fmt.Sprintf("✓ Rally Backend ready on http://localhost:%s", cfg.Port))
	logger.Info(fmt.Sprintf("  API: http://localhost:%s/api", cfg.Port))
	logger.Info(fmt.Sprintf("  WS:  ws://localhost:%s/api/ws", cfg.Port))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		fatal(logger, "Server error", err)
	}
}
