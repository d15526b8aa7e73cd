package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports dependency reachability. redis may be nil when the
// service runs without a cache.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "ok"
	services := fiber.Map{"database": "connected", "redis": "disabled"}

	if err := h.pingDB(ctx); err != nil {
		status = "degraded"
		services["database"] = "unreachable"
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status = "degraded"
			services["redis"] = "unreachable"
		} else {
			services["redis"] = "connected"
		}
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"version":  "1.0.0",
		"services": services,
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	if h.db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
