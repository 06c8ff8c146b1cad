package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/db"
	"seodesk/internal/models"
)

const (
	pageRankingDays  = 30
	pageBacklinks    = 50
	pageAuditsListed = 20
)

// PageHandler renders the server-side pages.
type PageHandler struct {
	db *db.DB
}

// NewPageHandler creates a new page handler.
func NewPageHandler(database *db.DB) *PageHandler {
	return &PageHandler{db: database}
}

// ProjectCard is a project with its dashboard counters.
type ProjectCard struct {
	Project models.Project
	Stats   *models.ProjectStats
}

// KeywordRow is a tracked keyword with its latest position.
type KeywordRow struct {
	Keyword  models.Keyword
	Position int
	Badge    string
}

// Login renders the sign-in page without the app layout.
func (h *PageHandler) Login(c fiber.Ctx) error {
	return c.Render("login", fiber.Map{"Title": "Sign in"}, "")
}

// Dashboard renders the signed-in user's projects with their stats.
func (h *PageHandler) Dashboard(c fiber.Ctx) error {
	user, ok := pageUser(c)
	if !ok {
		return c.Redirect().To("/login")
	}

	cards, err := h.projectCards(c, user.ID)
	if err != nil {
		return err
	}

	return c.Render("index", fiber.Map{
		"Title":    "Dashboard",
		"User":     user,
		"Projects": cards,
	})
}

// Projects renders the project list and creation form.
func (h *PageHandler) Projects(c fiber.Ctx) error {
	user, ok := pageUser(c)
	if !ok {
		return c.Redirect().To("/login")
	}

	projects, err := h.db.ListProjects(c.Context(), user.ID)
	if err != nil {
		return err
	}

	return c.Render("projects", fiber.Map{
		"Title":           "Projects",
		"User":            user,
		"Projects":        projects,
		"DefaultLocation": models.DefaultLocationCode,
		"DefaultLanguage": models.DefaultLanguageCode,
	})
}

// Project renders the detail page for a single project.
func (h *PageHandler) Project(c fiber.Ctx) error {
	user, ok := pageUser(c)
	if !ok {
		return c.Redirect().To("/login")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "project not found")
	}

	ctx := c.Context()
	project, err := h.db.GetProject(ctx, id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrProjectNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "project not found")
		}
		return err
	}

	stats, err := h.db.GetProjectStats(ctx, project.ID)
	if err != nil {
		return err
	}
	keywords, err := h.db.ListKeywords(ctx, project.ID)
	if err != nil {
		return err
	}
	rankings, err := h.db.ListProjectRankings(ctx, project.ID, time.Now().AddDate(0, 0, -pageRankingDays))
	if err != nil {
		return err
	}
	competitors, err := h.db.ListCompetitors(ctx, project.ID)
	if err != nil {
		return err
	}
	campaigns, err := h.db.ListCampaigns(ctx, project.ID)
	if err != nil {
		return err
	}
	backlinks, err := h.db.ListBacklinks(ctx, project.ID, pageBacklinks)
	if err != nil {
		return err
	}

	gscConnected := true
	if _, err := h.db.GetGSCToken(ctx, user.ID, project.ID); err != nil {
		if !errors.Is(err, db.ErrGSCTokenNotFound) {
			slog.Warn("failed to load search console token", "project_id", project.ID, "error", err)
		}
		gscConnected = false
	}

	flash, flashError := gscFlash(c.Query("gsc"))

	return c.Render("project", fiber.Map{
		"Title":        project.Name,
		"User":         user,
		"Project":      project,
		"Stats":        stats,
		"Keywords":     keywordRows(keywords, latestPositions(rankings)),
		"Competitors":  competitors,
		"Campaigns":    campaigns,
		"Backlinks":    backlinks,
		"GSCConnected": gscConnected,
		"Flash":        flash,
		"FlashError":   flashError,
	})
}

// Audits renders the page analyzer with recent audits.
func (h *PageHandler) Audits(c fiber.Ctx) error {
	user, ok := pageUser(c)
	if !ok {
		return c.Redirect().To("/login")
	}

	audits, err := h.db.ListPageAudits(c.Context(), user.ID, pageAuditsListed)
	if err != nil {
		return err
	}

	return c.Render("audits", fiber.Map{
		"Title":  "Page analyzer",
		"User":   user,
		"Audits": audits,
	})
}

// Assistant renders the chat page.
func (h *PageHandler) Assistant(c fiber.Ctx) error {
	user, ok := pageUser(c)
	if !ok {
		return c.Redirect().To("/login")
	}
	return c.Render("assistant", fiber.Map{
		"Title": "Assistant",
		"User":  user,
	})
}

func (h *PageHandler) projectCards(c fiber.Ctx, userID uuid.UUID) ([]ProjectCard, error) {
	projects, err := h.db.ListProjects(c.Context(), userID)
	if err != nil {
		return nil, err
	}

	cards := make([]ProjectCard, 0, len(projects))
	for _, p := range projects {
		stats, err := h.db.GetProjectStats(c.Context(), p.ID)
		if err != nil {
			return nil, err
		}
		cards = append(cards, ProjectCard{Project: p, Stats: stats})
	}
	return cards, nil
}

func keywordRows(keywords []models.Keyword, positions map[uuid.UUID]int) []KeywordRow {
	rows := make([]KeywordRow, 0, len(keywords))
	for _, k := range keywords {
		pos := positions[k.ID]
		rows = append(rows, KeywordRow{Keyword: k, Position: pos, Badge: positionClass(pos)})
	}
	return rows
}
