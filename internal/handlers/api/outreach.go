package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/db"
	"seodesk/internal/metrics"
	"seodesk/internal/models"
	"seodesk/internal/outreach"
	"seodesk/internal/seo"
	"seodesk/internal/validation"
)

const usageTargetFinder = "outreach_target_finder"

// OutreachHandler handles target discovery, campaign launches and the
// workflow callback.
type OutreachHandler struct {
	db                *db.DB
	finder            *outreach.Finder
	campaigns         *outreach.Service
	defaultWebhookURL string
	callbackSecret    string
}

// NewOutreachHandler creates a new API outreach handler. finder is nil when
// DataForSEO is not configured.
func NewOutreachHandler(database *db.DB, finder *outreach.Finder, campaigns *outreach.Service, webhookURL, callbackSecret string) *OutreachHandler {
	return &OutreachHandler{
		db:                database,
		finder:            finder,
		campaigns:         campaigns,
		defaultWebhookURL: webhookURL,
		callbackSecret:    callbackSecret,
	}
}

// FindTargets runs the link-intersect search for a keyword.
func (h *OutreachHandler) FindTargets(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.finder == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "DataForSEO is not configured")
	}

	var body struct {
		Keyword    string `json:"keyword"`
		KeywordID  string `json:"keywordId"`
		ProjectID  string `json:"projectId"`
		YourDomain string `json:"yourDomain"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	finder := h.finder
	if body.ProjectID != "" {
		id, err := uuid.Parse(body.ProjectID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid projectId")
		}
		project, _ := projectFor(c, h.db, id, user.ID)
		if project == nil {
			return nil
		}
		if body.YourDomain == "" {
			body.YourDomain = project.Domain
		}
		finder = finder.WithLocale(seo.Locale{LocationCode: project.TargetLocation, LanguageCode: project.TargetLanguage})
	}
	if body.Keyword == "" && body.KeywordID != "" {
		id, err := uuid.Parse(body.KeywordID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid keywordId")
		}
		k, err := h.db.GetKeyword(c.Context(), id, user.ID)
		if err != nil {
			if errors.Is(err, db.ErrKeywordNotFound) {
				return jsonError(c, fiber.StatusNotFound, "keyword not found")
			}
			return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keyword")
		}
		body.Keyword = k.Keyword
	}

	keyword := validation.NormalizeKeyword(body.Keyword)
	if valid, msg := validation.ValidateKeyword(keyword); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	result, err := finder.FindTargets(c.Context(), keyword, body.YourDomain)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to find outreach targets")
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageTargetFinder, result.CreditsUsed, body)
	return jsonSuccess(c, result)
}

// LaunchCampaign stores a campaign and hands it to the workflow webhook.
// A webhook failure is reported in the response; the campaign stays pending.
func (h *OutreachHandler) LaunchCampaign(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		ProjectID    string            `json:"projectId"`
		KeywordID    string            `json:"keywordId"`
		Keyword      string            `json:"keyword"`
		CampaignName string            `json:"campaignName"`
		YourDomain   string            `json:"yourDomain"`
		WebhookURL   string            `json:"webhookUrl"`
		Targets      []outreach.Target `json:"targets"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	projectID, err := uuid.Parse(body.ProjectID)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "projectId is required")
	}
	keyword := validation.NormalizeKeyword(body.Keyword)
	if keyword == "" {
		return jsonError(c, fiber.StatusBadRequest, "keyword is required")
	}
	if len(body.Targets) == 0 {
		return jsonError(c, fiber.StatusBadRequest, outreach.ErrNoTargets.Error())
	}

	webhookURL := strings.TrimSpace(body.WebhookURL)
	if webhookURL == "" {
		webhookURL = h.defaultWebhookURL
	}
	if webhookURL == "" {
		return jsonError(c, fiber.StatusBadRequest, "no outreach webhook URL is configured")
	}
	if valid, msg := validation.ValidateURL(webhookURL); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	project, _ := projectFor(c, h.db, projectID, user.ID)
	if project == nil {
		return nil
	}

	var keywordID *uuid.UUID
	if body.KeywordID != "" {
		id, err := uuid.Parse(body.KeywordID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid keywordId")
		}
		k, err := h.db.GetKeyword(c.Context(), id, user.ID)
		if err != nil || k.ProjectID != project.ID {
			return jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		keywordID = &k.ID
	}

	yourDomain := body.YourDomain
	if yourDomain == "" {
		yourDomain = project.Domain
	}

	result, err := h.campaigns.Launch(c.Context(), outreach.LaunchRequest{
		ProjectID:    project.ID,
		KeywordID:    keywordID,
		UserID:       user.ID,
		Keyword:      keyword,
		CampaignName: body.CampaignName,
		YourDomain:   validation.CleanDomain(yourDomain),
		WebhookURL:   webhookURL,
		Targets:      body.Targets,
	})
	if err != nil {
		if errors.Is(err, outreach.ErrNoTargets) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to launch campaign")
	}
	return jsonCreated(c, result)
}

// CallbackInfo answers GET on the callback URL so the workflow can check it.
func (h *OutreachHandler) CallbackInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "ok",
		"endpoint":        "outreach webhook callback",
		"method":          fiber.MethodPost,
		"secret_required": h.callbackSecret != "",
		"statuses": []string{
			models.TargetPending, models.TargetResearching, models.TargetDrafted, models.TargetSent,
			models.TargetOpened, models.TargetReplied, models.TargetLinkAcquired, models.TargetDeclined,
		},
	})
}

// Callback applies a progress update from the workflow engine.
func (h *OutreachHandler) Callback(c fiber.Ctx) error {
	if h.callbackSecret != "" {
		got := c.Get(outreach.SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.callbackSecret)) != 1 {
			outreach.RecordCallbackOutcome(errors.New("bad secret"))
			return jsonError(c, fiber.StatusUnauthorized, "invalid webhook secret")
		}
	}

	var cb outreach.Callback
	if err := json.Unmarshal(c.Body(), &cb); err != nil {
		outreach.RecordCallbackOutcome(err)
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.campaigns.ApplyCallback(c.Context(), cb)
	outreach.RecordCallbackOutcome(err)
	if err != nil {
		switch {
		case errors.Is(err, outreach.ErrMissingFields),
			errors.Is(err, outreach.ErrInvalidStatus),
			errors.Is(err, outreach.ErrInvalidCampaign):
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, db.ErrTargetNotFound), errors.Is(err, db.ErrCampaignNotFound):
			return jsonError(c, fiber.StatusNotFound, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to apply callback")
	}
	return jsonSuccess(c, result)
}

// GetCampaign returns a campaign with its target records.
func (h *OutreachHandler) GetCampaign(c fiber.Ctx) error {
	campaign, done := h.ownedCampaign(c)
	if campaign == nil {
		return done
	}

	targets, err := h.db.ListTargets(c.Context(), campaign.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch campaign targets")
	}
	if targets == nil {
		targets = []models.OutreachTargetRecord{}
	}
	return jsonSuccess(c, fiber.Map{"campaign": campaign, "targets": targets})
}

// UpdateCampaignStatus sets a campaign's status.
func (h *OutreachHandler) UpdateCampaignStatus(c fiber.Ctx) error {
	campaign, done := h.ownedCampaign(c)
	if campaign == nil {
		return done
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.campaigns.UpdateCampaignStatus(c.Context(), campaign.ID, body.Status); err != nil {
		if errors.Is(err, outreach.ErrInvalidCampaign) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		if errors.Is(err, db.ErrCampaignNotFound) {
			return jsonError(c, fiber.StatusNotFound, "campaign not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update campaign")
	}
	campaign.Status = body.Status
	return jsonSuccess(c, campaign)
}

func (h *OutreachHandler) ownedCampaign(c fiber.Ctx) (*models.OutreachCampaign, error) {
	user, ok := currentUser(c)
	if !ok {
		return nil, jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
	}
	campaign, err := h.db.GetCampaignForUser(c.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrCampaignNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "campaign not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "failed to fetch campaign")
	}
	return campaign, nil
}

// ListTemplates returns the user's outreach email templates.
func (h *OutreachHandler) ListTemplates(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	templates, err := h.db.ListTemplates(c.Context(), user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch templates")
	}
	if templates == nil {
		templates = []models.OutreachTemplate{}
	}
	return jsonSuccess(c, templates)
}

// CreateTemplate stores an outreach email template.
func (h *OutreachHandler) CreateTemplate(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		Name      string `json:"name"`
		Subject   string `json:"subject"`
		Body      string `json:"body"`
		IsDefault bool   `json:"is_default"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	t := &models.OutreachTemplate{
		UserID:    user.ID,
		Name:      strings.TrimSpace(body.Name),
		Subject:   strings.TrimSpace(body.Subject),
		Body:      body.Body,
		IsDefault: body.IsDefault,
	}
	if t.Name == "" || t.Subject == "" || strings.TrimSpace(t.Body) == "" {
		return jsonError(c, fiber.StatusBadRequest, "name, subject and body are required")
	}

	if err := h.db.CreateTemplate(c.Context(), t); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to create template")
	}
	return jsonCreated(c, t)
}

// DeleteTemplate removes a template.
func (h *OutreachHandler) DeleteTemplate(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid template id")
	}

	if err := h.db.DeleteTemplate(c.Context(), id, user.ID); err != nil {
		if errors.Is(err, db.ErrTemplateNotFound) {
			return jsonError(c, fiber.StatusNotFound, "template not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete template")
	}
	return jsonSuccess(c, fiber.Map{"deleted": true})
}
