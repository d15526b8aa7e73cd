// Package main is the entry point for the API server.
// It initializes all dependencies, sets up the HTTP server,
// starts the scheduled-transfer job and shuts everything down on signal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paycore/internal/config"
	"paycore/internal/handlers"
	applogger "paycore/internal/logger"
	"paycore/internal/middleware"
	"paycore/internal/repositories"
	"paycore/internal/repositories/cache"
	"paycore/internal/routes"
	"paycore/internal/services/account"
	"paycore/internal/services/auth"
	"paycore/internal/services/beneficiary"
	"paycore/internal/services/ledger"
	"paycore/internal/services/limits"
	"paycore/internal/services/notification"
	"paycore/internal/services/review"
	"paycore/internal/services/scheduler"
	"paycore/internal/services/transfer"
	"paycore/internal/services/verification"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		bootLog := applogger.New("info", true)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := applogger.New(cfg.LogLevel, cfg.LogPretty || !cfg.IsProduction())
	applogger.Setup(log)

	db, err := repositories.InitDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	go logPoolStats(db, log)

	rdb := connectRedis(cfg, log)

	// Locks and cache
	var locker ledger.Locker = ledger.NewMemoryLocker()
	var accountCache ledger.AccountCache
	if rdb != nil {
		accountCache = cache.NewCacheService(rdb, cfg.CacheTTL)
		if cfg.LockBackend == config.LockBackendRedis {
			locker = ledger.NewRedisLocker(rdb, cfg.LockLease)
		}
	}
	log.Info().Str("lock_backend", cfg.LockBackend).Bool("cache", accountCache != nil).Msg("ledger store configured")

	// Events
	var publisher notification.Publisher
	amqpPublisher, err := notification.NewRabbitMQPublisher(cfg.AMQPURL, cfg.EventExchange, log)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable, transfer events will only be logged")
		publisher = notification.NewLogPublisher(log)
	} else {
		publisher = amqpPublisher
	}
	events := notification.NewDispatcher(publisher, cfg.EventBufferSize, log)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	transferRepo := repositories.NewTransferRepository(db)
	beneficiaryRepo := repositories.NewBeneficiaryRepository(db)
	limitRepo := repositories.NewLimitRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)

	// Services
	store := ledger.NewStore(accountRepo, locker, accountCache, ledger.Config{LockWait: cfg.LockWait}, nil, log)
	gate := verification.NewGate(verificationRepo)
	policy := limits.NewPolicy(transferRepo, limitRepo, limits.Limits{
		Daily:   cfg.Limits.Daily,
		Monthly: cfg.Limits.Monthly,
		Minimum: cfg.Limits.Minimum,
	})
	beneficiaryService := beneficiary.NewService(beneficiaryRepo, transferRepo)
	transferService := transfer.NewService(store, transferRepo, policy, gate, beneficiaryService, events, transfer.Config{}, log)
	accountService := account.NewService(store, userRepo, log)
	reviewService := review.NewService(transferService)
	authService := auth.NewService(userRepo, auth.Config{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
	}, log)

	jobs := scheduler.NewJobs(transferRepo, transferService, cfg.SchedulerBatchSize, log)
	sched := scheduler.NewScheduler(jobs, cfg.SchedulerSpec, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	app := newApp(cfg, log)
	routes.SetupRoutes(app, routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService, log),
		Accounts:      handlers.NewAccountHandler(accountService),
		Beneficiaries: handlers.NewBeneficiaryHandler(beneficiaryService),
		Transfers:     handlers.NewTransferHandler(transferService),
		Admin:         handlers.NewAdminHandler(reviewService, transferService, gate, jobs, log),
		Health:        handlers.NewHealthHandler(db, rdb),
	}, middleware.NewAuthMiddleware(authService, log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("scheduler scan still running at shutdown")
	}
	if err := events.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Int64("dropped", events.Dropped()).Msg("event dispatcher did not drain")
	}
	if err := publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close event publisher")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if err := repositories.Close(db); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
	log.Info().Msg("shutdown complete")
}

func newApp(cfg *config.Config, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "paycore",
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Msg("login rate limit reached")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	return app
}

// connectRedis returns nil when redis is unreachable and the lock backend
// does not need it.
func connectRedis(cfg *config.Config, log zerolog.Logger) *redis.Client {
	rdb := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		if cfg.LockBackend == config.LockBackendRedis {
			log.Fatal().Err(err).Msg("redis lock backend configured but redis is unreachable")
		}
		log.Warn().Err(err).Msg("redis unavailable, running without account cache")
		_ = rdb.Close()
		return nil
	}
	log.Info().Str("addr", cfg.RedisAddr()).Msg("redis connected")
	return rdb
}

// logPoolStats periodically reports connection pool usage.
func logPoolStats(db *gorm.DB, log zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		stats := sqlDB.Stats()
		log.Debug().
			Int("open", stats.OpenConnections).
			Int("idle", stats.Idle).
			Int("in_use", stats.InUse).
			Int64("wait_count", stats.WaitCount).
			Dur("wait_duration", stats.WaitDuration).
			Msg("db pool stats")
	}
}
