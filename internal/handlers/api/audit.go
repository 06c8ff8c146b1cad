package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/db"
	"seodesk/internal/metrics"
	"seodesk/internal/models"
	"seodesk/internal/pageaudit"
	"seodesk/internal/validation"
)

const auditListLimit = 50

// PageAnalyzer renders and analyzes a page.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url, keyword string) (*pageaudit.Report, error)
}

// AuditHandler runs on-page SEO analysis.
type AuditHandler struct {
	db       *db.DB
	analyzer PageAnalyzer
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(database *db.DB, analyzer PageAnalyzer) *AuditHandler {
	return &AuditHandler{db: database, analyzer: analyzer}
}

// Analyze renders a public URL, extracts its on-page signals and stores the audit.
func (h *AuditHandler) Analyze(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		URL           string `json:"url"`
		TargetKeyword string `json:"targetKeyword"`
		ProjectID     string `json:"projectId"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	body.URL = strings.TrimSpace(body.URL)
	if valid, msg := validation.ValidateURLForFetch(body.URL); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	var projectID *uuid.UUID
	if body.ProjectID != "" {
		id, err := uuid.Parse(body.ProjectID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid projectId")
		}
		project, _ := projectFor(c, h.db, id, user.ID)
		if project == nil {
			return nil
		}
		projectID = &project.ID
	}

	report, err := h.analyzer.Analyze(c.Context(), body.URL, validation.NormalizeKeyword(body.TargetKeyword))
	if err != nil {
		slog.Error("page analysis failed", "url", body.URL, "error", err)
		return jsonErrorDetails(c, fiber.StatusBadGateway, "failed to analyze page", err.Error())
	}

	audit := report.Audit(user.ID, projectID, time.Now())
	if err := h.db.CreatePageAudit(c.Context(), audit); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to save page audit")
	}
	metrics.RecordUsage(&user.ID, models.APIPageAnalyzer, "analyze_page", 1, body)

	return jsonSuccess(c, fiber.Map{
		"audit_id": audit.ID,
		"report":   report,
		"issues":   report.Issues(),
	})
}

// List returns the user's recent page audits.
func (h *AuditHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	audits, err := h.db.ListPageAudits(c.Context(), user.ID, auditListLimit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch page audits")
	}
	if audits == nil {
		audits = []models.PageAudit{}
	}
	return jsonSuccess(c, audits)
}
