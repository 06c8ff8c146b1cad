package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/db"
	"seodesk/internal/models"
	"seodesk/internal/validation"
)

const backlinkListLimit = 500

// ProjectHandler handles project CRUD and the per-project listings.
type ProjectHandler struct {
	db *db.DB
}

// NewProjectHandler creates a new API project handler.
func NewProjectHandler(database *db.DB) *ProjectHandler {
	return &ProjectHandler{db: database}
}

type projectBody struct {
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	TargetLocation int    `json:"target_location"`
	TargetLanguage string `json:"target_language"`
}

func (b *projectBody) validate() string {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return "name is required"
	}
	if valid, msg := validation.ValidateDomain(b.Domain); !valid {
		return msg
	}
	b.Domain = validation.CleanDomain(b.Domain)
	if b.TargetLocation < 0 {
		return "target_location must be a provider location code"
	}
	b.TargetLanguage = strings.ToLower(strings.TrimSpace(b.TargetLanguage))
	return ""
}

// List returns the signed-in user's projects.
func (h *ProjectHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	projects, err := h.db.ListProjects(c.Context(), user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch projects")
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return jsonSuccess(c, projects)
}

// Create creates a project owned by the signed-in user.
func (h *ProjectHandler) Create(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body projectBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := body.validate(); msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	project := &models.Project{
		UserID:         user.ID,
		Name:           body.Name,
		Domain:         body.Domain,
		TargetLocation: body.TargetLocation,
		TargetLanguage: body.TargetLanguage,
	}
	if err := h.db.CreateProject(c.Context(), project); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to create project")
	}
	return jsonCreated(c, project)
}

// Get returns one project.
func (h *ProjectHandler) Get(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}
	return jsonSuccess(c, project)
}

// Update changes a project's name, domain and targeting.
func (h *ProjectHandler) Update(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	body := projectBody{
		Name:           project.Name,
		Domain:         project.Domain,
		TargetLocation: project.TargetLocation,
		TargetLanguage: project.TargetLanguage,
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := body.validate(); msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	project.Name = body.Name
	project.Domain = body.Domain
	if body.TargetLocation != 0 {
		project.TargetLocation = body.TargetLocation
	}
	if body.TargetLanguage != "" {
		project.TargetLanguage = body.TargetLanguage
	}
	if err := h.db.UpdateProject(c.Context(), project); err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "project not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update project")
	}
	return jsonSuccess(c, project)
}

// Delete removes a project with its keywords, rankings, backlinks and campaigns.
func (h *ProjectHandler) Delete(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid project id")
	}

	if err := h.db.DeleteProject(c.Context(), id, user.ID); err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "project not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete project")
	}
	return jsonSuccess(c, fiber.Map{"deleted": true})
}

// Stats returns the dashboard counters for a project.
func (h *ProjectHandler) Stats(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	stats, err := h.db.GetProjectStats(c.Context(), project.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch project stats")
	}
	return jsonSuccess(c, stats)
}

// Backlinks lists the stored backlinks of a project.
func (h *ProjectHandler) Backlinks(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	links, err := h.db.ListBacklinks(c.Context(), project.ID, backlinkListLimit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch backlinks")
	}
	if links == nil {
		links = []models.Backlink{}
	}
	return jsonSuccess(c, links)
}

// Campaigns lists the outreach campaigns of a project.
func (h *ProjectHandler) Campaigns(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	campaigns, err := h.db.ListCampaigns(c.Context(), project.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch campaigns")
	}
	if campaigns == nil {
		campaigns = []models.OutreachCampaign{}
	}
	return jsonSuccess(c, campaigns)
}

// ownedProject loads the project named by the :id param for the signed-in
// user. When it returns nil the error response has already been written and
// the returned error is what the handler should return.
func ownedProject(c fiber.Ctx, database *db.DB) (*models.Project, error) {
	user, ok := currentUser(c)
	if !ok {
		return nil, jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid project id")
	}
	return projectFor(c, database, id, user.ID)
}

// projectFor is ownedProject for an id taken from somewhere other than the path.
func projectFor(c fiber.Ctx, database *db.DB, id, userID uuid.UUID) (*models.Project, error) {
	project, err := database.GetProject(c.Context(), id, userID)
	if err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "project not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "failed to fetch project")
	}
	return project, nil
}
