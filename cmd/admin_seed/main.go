// Command admin_seed creates the first admin principal.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"paycore/internal/config"
	applogger "paycore/internal/logger"
	"paycore/internal/models"
	"paycore/internal/repositories"
	"paycore/internal/services/auth"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		bootLog := applogger.New("info", true)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := applogger.New(cfg.LogLevel, true)

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminName := config.GetEnv("ADMIN_NAME", "Administrator")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal().Msg("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.InitDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repositories.NewUserRepository(db)
	admin, err := auth.NewService(users, auth.Config{JWTSecret: cfg.JWTSecret}, log).
		CreateUser(ctx, adminEmail, adminName, adminPassword, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			log.Info().Str("email", adminEmail).Msg("admin user already exists")
			return
		}
		log.Fatal().Err(err).Msg("failed to create admin user")
	}

	log.Info().Str("user_id", admin.ID).Str("email", admin.Email).Msg("admin account created")
}
