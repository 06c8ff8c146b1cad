package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"seodesk/internal/db"
	"seodesk/internal/models"
	"seodesk/internal/validation"
)

// CompetitorHandler handles the competitor domains of a project.
type CompetitorHandler struct {
	db *db.DB
}

// NewCompetitorHandler creates a new API competitor handler.
func NewCompetitorHandler(database *db.DB) *CompetitorHandler {
	return &CompetitorHandler{db: database}
}

// List returns a project's competitors.
func (h *CompetitorHandler) List(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	competitors, err := h.db.ListCompetitors(c.Context(), project.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch competitors")
	}
	if competitors == nil {
		competitors = []models.Competitor{}
	}
	return jsonSuccess(c, competitors)
}

// Create adds a competitor domain to a project.
func (h *CompetitorHandler) Create(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	var body struct {
		Domain string `json:"domain"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if valid, msg := validation.ValidateDomain(body.Domain); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	domain := validation.CleanDomain(body.Domain)
	if domain == validation.CleanDomain(project.Domain) {
		return jsonError(c, fiber.StatusBadRequest, "a project cannot compete with its own domain")
	}

	competitor := &models.Competitor{ProjectID: project.ID, Domain: domain}
	if name := strings.TrimSpace(body.Name); name != "" {
		competitor.Name = &name
	}
	if err := h.db.CreateCompetitor(c.Context(), competitor); err != nil {
		if errors.Is(err, db.ErrDuplicateCompetitor) {
			return jsonError(c, fiber.StatusConflict, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to create competitor")
	}
	return jsonCreated(c, competitor)
}

// Delete removes a competitor.
func (h *CompetitorHandler) Delete(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid competitor id")
	}

	if err := h.db.DeleteCompetitor(c.Context(), id, user.ID); err != nil {
		if errors.Is(err, db.ErrCompetitorNotFound) {
			return jsonError(c, fiber.StatusNotFound, "competitor not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete competitor")
	}
	return jsonSuccess(c, fiber.Map{"deleted": true})
}
