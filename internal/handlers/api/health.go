package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"seodesk/internal/models"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports database and cache reachability.
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a new handler. redis may be nil.
func NewHealthHandler(database, redis Pinger) *HealthHandler {
	return &HealthHandler{db: database, redis: redis}
}

// Check answers 200 when every configured dependency responds, 503 otherwise.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	resp := models.HealthResponse{Status: "ok", Database: "ok"}
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if h.redis != nil {
		resp.Redis = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Redis = "unreachable"
		}
	}

	if resp.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
