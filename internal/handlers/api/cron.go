package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"seodesk/internal/jobs"
)

// RankCheckRunner runs one pass of the rank check.
type RankCheckRunner interface {
	RunOnce(ctx context.Context) (*jobs.RankCheckResult, error)
}

// GSCSyncRunner runs one pass of the Search Console sync.
type GSCSyncRunner interface {
	RunOnce(ctx context.Context) (*jobs.GSCSyncResult, error)
}

// CronHandler exposes the scheduled jobs to an external scheduler. Routes are
// guarded by the cron bearer secret.
type CronHandler struct {
	ranks RankCheckRunner
	gsc   GSCSyncRunner
}

// NewCronHandler creates a new handler. Either runner may be nil when its
// provider is not configured.
func NewCronHandler(ranks RankCheckRunner, gsc GSCSyncRunner) *CronHandler {
	return &CronHandler{ranks: ranks, gsc: gsc}
}

// DailyRankCheck checks every tracked keyword of every project.
func (h *CronHandler) DailyRankCheck(c fiber.Ctx) error {
	if h.ranks == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "DataForSEO is not configured")
	}
	result, err := h.ranks.RunOnce(c.Context())
	if err != nil {
		slog.Error("cron rank check failed", "error", err)
		return jsonErrorDetails(c, fiber.StatusInternalServerError, "rank check failed", err.Error())
	}
	return jsonSuccess(c, result)
}

// GSCSync syncs every connected Search Console property.
func (h *CronHandler) GSCSync(c fiber.Ctx) error {
	if h.gsc == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "Search Console is not configured")
	}
	result, err := h.gsc.RunOnce(c.Context())
	if err != nil {
		slog.Error("cron search console sync failed", "error", err)
		return jsonErrorDetails(c, fiber.StatusInternalServerError, "search console sync failed", err.Error())
	}
	return jsonSuccess(c, result)
}
