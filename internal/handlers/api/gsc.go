package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"

	"seodesk/internal/db"
	"seodesk/internal/gsc"
	"seodesk/internal/models"
	"seodesk/internal/validation"
)

// Session keys for the Search Console consent round trip.
const (
	sessionGSCState   = "gsc_state"
	sessionGSCProject = "gsc_project"
)

const (
	manualSyncDays = 30
	gscRowsLimit   = 1000
)

// GSCHandler connects projects to Search Console and syncs their analytics.
type GSCHandler struct {
	db     *db.DB
	client *gsc.Client
}

// NewGSCHandler creates a new handler. client is nil when Google OAuth is not configured.
func NewGSCHandler(database *db.DB, client *gsc.Client) *GSCHandler {
	return &GSCHandler{db: database, client: client}
}

// Auth starts the consent flow for ?projectId.
func (h *GSCHandler) Auth(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.client == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "Search Console is not configured")
	}

	projectID, err := uuid.Parse(c.Query("projectId"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "projectId is required")
	}
	if project, _ := projectFor(c, h.db, projectID, user.ID); project == nil {
		return nil
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	state := generateState()
	sess.Set(sessionGSCState, state)
	sess.Set(sessionGSCProject, projectID.String())

	return c.Redirect().To(h.client.AuthURL(state))
}

// Callback completes the consent flow, stores the tokens and redirects back
// to the project page with ?gsc=connected or ?gsc=error.
func (h *GSCHandler) Callback(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.client == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "Search Console is not configured")
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	savedState, _ := sess.Get(sessionGSCState).(string)
	rawProject, _ := sess.Get(sessionGSCProject).(string)
	sess.Delete(sessionGSCState)
	sess.Delete(sessionGSCProject)

	if savedState == "" || savedState != c.Query("state") {
		return jsonError(c, fiber.StatusBadRequest, "invalid state")
	}
	projectID, err := uuid.Parse(rawProject)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid state")
	}
	project, _ := projectFor(c, h.db, projectID, user.ID)
	if project == nil {
		return nil
	}

	back := "/projects/" + project.ID.String()
	if e := c.Query("error"); e != "" {
		slog.Warn("search console consent denied", "project_id", project.ID, "error", e)
		return c.Redirect().To(back + "?gsc=denied")
	}

	tok, err := h.client.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		slog.Error("search console code exchange failed", "project_id", project.ID, "error", err)
		return c.Redirect().To(back + "?gsc=error")
	}

	sites, err := h.client.Sites(c.Context(), tok)
	if err != nil {
		slog.Error("failed to list search console sites", "project_id", project.ID, "error", err)
		return c.Redirect().To(back + "?gsc=error")
	}
	site := PickSite(sites, project.Domain)
	if site == "" {
		return c.Redirect().To(back + "?gsc=no_sites")
	}

	record := &models.GSCToken{
		UserID:       user.ID,
		ProjectID:    project.ID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
		SiteURL:      site,
	}
	if err := h.db.UpsertGSCToken(c.Context(), record); err != nil {
		slog.Error("failed to store search console token", "project_id", project.ID, "error", err)
		return c.Redirect().To(back + "?gsc=error")
	}

	slog.Info("search console connected", "project_id", project.ID, "site", site)
	return c.Redirect().To(back + "?gsc=connected")
}

// Sync pulls the last 30 days of analytics for a project.
func (h *GSCHandler) Sync(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.client == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "Search Console is not configured")
	}

	projectID, err := uuid.Parse(bodyOrQuery(c, "projectId"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "projectId is required")
	}

	token, err := h.db.GetGSCToken(c.Context(), user.ID, projectID)
	if err != nil {
		if errors.Is(err, db.ErrGSCTokenNotFound) {
			return jsonError(c, fiber.StatusNotFound, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch search console token")
	}

	result, err := h.client.Sync(c.Context(), h.db, token, manualSyncDays)
	if err != nil {
		if errors.Is(err, gsc.ErrNoRefreshToken) {
			return jsonError(c, fiber.StatusConflict, "search console access expired, reconnect the project")
		}
		slog.Error("search console sync failed", "project_id", projectID, "error", err)
		return jsonErrorDetails(c, fiber.StatusBadGateway, "failed to sync search console data", err.Error())
	}
	return jsonSuccess(c, result)
}

// Data returns stored analytics rows for a project over ?days (default 30).
func (h *GSCHandler) Data(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	days := clampDays(fiber.Query[int](c, "days", manualSyncDays))
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.DateOnly)
	rows, err := h.db.ListGSCRows(c.Context(), project.ID, since, gscRowsLimit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch search console data")
	}
	if rows == nil {
		rows = []models.GSCRow{}
	}
	return jsonSuccess(c, rows)
}

// PickSite chooses the property matching domain, falling back to the first
// property. Domain properties ("sc-domain:") match the bare domain.
func PickSite(sites []gsc.Site, domain string) string {
	if len(sites) == 0 {
		return ""
	}
	want := validation.CleanDomain(domain)
	for _, s := range sites {
		candidate := strings.TrimPrefix(s.SiteURL, "sc-domain:")
		if want != "" && validation.CleanDomain(candidate) == want {
			return s.SiteURL
		}
	}
	return sites[0].SiteURL
}

// bodyOrQuery reads key from a JSON body, falling back to the query string.
func bodyOrQuery(c fiber.Ctx, key string) string {
	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err == nil {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return c.Query(key)
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
