package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"seodesk/internal/metrics"
	"seodesk/internal/models"
)

// Store is the persistence the campaign lifecycle needs.
type Store interface {
	CreateCampaign(ctx context.Context, c *models.OutreachCampaign, targets []models.OutreachTargetRecord) error
	SetCampaignWebhookResult(ctx context.Context, id uuid.UUID, status string, firedAt *time.Time, response json.RawMessage) error
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateCampaignCounts(ctx context.Context, id uuid.UUID, counts models.CampaignCounts) error
	GetTargetByDomain(ctx context.Context, campaignID uuid.UUID, domain string) (*models.OutreachTargetRecord, error)
	UpdateTarget(ctx context.Context, t *models.OutreachTargetRecord) error
	ListTargetStatuses(ctx context.Context, campaignID uuid.UUID) ([]string, error)
}

// Validation errors returned to callers as 400s.
var (
	ErrMissingFields   = errors.New("campaign_id and target_domain are required")
	ErrInvalidStatus   = errors.New("invalid target status")
	ErrInvalidCampaign = errors.New("invalid campaign status")
	ErrNoTargets       = errors.New("at least one target is required")
)

// Service runs the campaign lifecycle.
type Service struct {
	store       Store
	webhook     Webhook
	callbackURL string
	now         func() time.Time
}

// NewService creates a Service. callbackURL is sent to the workflow engine
// with every launched campaign.
func NewService(store Store, webhook Webhook, callbackURL string) *Service {
	return &Service{store: store, webhook: webhook, callbackURL: callbackURL, now: time.Now}
}

// LaunchRequest describes a campaign to start.
type LaunchRequest struct {
	ProjectID    uuid.UUID
	KeywordID    *uuid.UUID
	UserID       uuid.UUID
	Keyword      string
	CampaignName string
	YourDomain   string
	WebhookURL   string
	Targets      []Target
}

// LaunchResult reports the stored campaign and the webhook outcome.
type LaunchResult struct {
	Campaign      *models.OutreachCampaign `json:"campaign"`
	WebhookStatus int                      `json:"webhook_status"`
	WebhookFired  bool                     `json:"webhook_fired"`
	WebhookError  string                   `json:"webhook_error,omitempty"`
}

// Launch stores the campaign with its targets and fires the webhook. A webhook
// failure leaves the campaign pending and is reported in the result, not as an
// error; the stored campaign is never rolled back.
func (s *Service) Launch(ctx context.Context, req LaunchRequest) (*LaunchResult, error) {
	req.Targets = uniqueTargets(req.Targets)
	if len(req.Targets) == 0 {
		return nil, ErrNoTargets
	}

	snapshot, err := json.Marshal(req.Targets)
	if err != nil {
		return nil, fmt.Errorf("marshal targets: %w", err)
	}

	name := strings.TrimSpace(req.CampaignName)
	if name == "" {
		name = req.Keyword + " - Outreach"
	}

	campaign := &models.OutreachCampaign{
		ProjectID:    req.ProjectID,
		KeywordID:    req.KeywordID,
		UserID:       req.UserID,
		CampaignName: name,
		Keyword:      req.Keyword,
		Status:       models.CampaignPending,
		Targets:      snapshot,
		WebhookURL:   req.WebhookURL,
	}
	records := Records(req.Targets)
	if err := s.store.CreateCampaign(ctx, campaign, records); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	slog.Info("outreach campaign created", "campaign_id", campaign.ID, "targets", len(records))

	payload := s.buildPayload(campaign, req, records)
	result := &LaunchResult{Campaign: campaign}

	resp, fireErr := s.webhook.Fire(ctx, req.WebhookURL, payload)
	var (
		status   = models.CampaignPending
		firedAt  *time.Time
		response json.RawMessage
	)
	switch {
	case fireErr != nil:
		slog.Error("outreach webhook failed", "campaign_id", campaign.ID, "error", fireErr)
		result.WebhookError = fireErr.Error()
		response, _ = json.Marshal(map[string]string{"error": fireErr.Error()})
	default:
		now := s.now()
		firedAt = &now
		response = resp.Body
		result.WebhookStatus = resp.Status
		result.WebhookFired = resp.OK()
		if resp.OK() {
			status = models.CampaignRunning
		} else {
			result.WebhookError = fmt.Sprintf("webhook returned HTTP %d", resp.Status)
		}
		slog.Info("outreach webhook fired", "campaign_id", campaign.ID, "status", resp.Status)
	}

	if err := s.store.SetCampaignWebhookResult(ctx, campaign.ID, status, firedAt, response); err != nil {
		return result, fmt.Errorf("record webhook result: %w", err)
	}
	campaign.Status = status
	campaign.WebhookFiredAt = firedAt
	campaign.WebhookResponse = response
	return result, nil
}

// uniqueTargets drops targets without a domain and repeats of a domain,
// compared case-insensitively. The first occurrence wins.
func uniqueTargets(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		key := strings.ToLower(strings.TrimSpace(t.Domain))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func (s *Service) buildPayload(c *models.OutreachCampaign, req LaunchRequest, records []models.OutreachTargetRecord) *WebhookPayload {
	p := &WebhookPayload{
		CampaignID:  c.ID.String(),
		Keyword:     c.Keyword,
		ProjectID:   c.ProjectID.String(),
		YourDomain:  req.YourDomain,
		CallbackURL: s.callbackURL,
		Targets:     make([]WebhookTarget, len(req.Targets)),
		CreatedAt:   c.CreatedAt,
	}
	if c.KeywordID != nil {
		id := c.KeywordID.String()
		p.KeywordID = &id
	}
	for i, t := range req.Targets {
		wt := WebhookTarget{
			Domain:          t.Domain,
			TargetURL:       t.TargetURL,
			TargetScore:     t.TargetScore,
			Metrics:         t.Metrics,
			WhyTargeted:     t.WhyTargeted,
			OutreachAngle:   t.OutreachAngle,
			PitchHook:       t.PitchHook,
			ResearchPrompts: t.ResearchPrompts,
		}
		if i < len(records) && records[i].ID != uuid.Nil {
			id := records[i].ID.String()
			wt.TargetID = &id
		}
		p.Targets[i] = wt
	}
	return p
}

// Callback is an inbound progress update from the workflow engine.
type Callback struct {
	CampaignID     string          `json:"campaign_id"`
	TargetDomain   string          `json:"target_domain"`
	Status         string          `json:"status,omitempty"`
	CampaignStatus string          `json:"campaign_status,omitempty"`
	ContactInfo    json.RawMessage `json:"contact_info,omitempty"`
	ResearchData   json.RawMessage `json:"research_data,omitempty"`
	OutreachEmail  string          `json:"outreach_email,omitempty"`
	ResponseData   json.RawMessage `json:"response_data,omitempty"`
}

// CallbackResult reports the applied update.
type CallbackResult struct {
	TargetID   uuid.UUID             `json:"target_id"`
	CampaignID uuid.UUID             `json:"campaign_id"`
	Status     string                `json:"status"`
	Counts     models.CampaignCounts `json:"counts"`
}

// ApplyCallback updates one target and recounts the campaign. Applying the
// same callback twice leaves the same state: fields are overwritten,
// milestone timestamps are set only once and counts are recomputed.
func (s *Service) ApplyCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	if cb.CampaignID == "" || cb.TargetDomain == "" {
		return nil, ErrMissingFields
	}
	campaignID, err := uuid.Parse(cb.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: campaign_id is not a UUID", ErrMissingFields)
	}
	if cb.Status != "" && !models.ValidTargetStatus(cb.Status) {
		return nil, ErrInvalidStatus
	}
	if cb.CampaignStatus != "" && !models.ValidCampaignStatus(cb.CampaignStatus) {
		return nil, ErrInvalidCampaign
	}

	target, err := s.store.GetTargetByDomain(ctx, campaignID, strings.ToLower(strings.TrimSpace(cb.TargetDomain)))
	if err != nil {
		return nil, err
	}

	ApplyUpdate(target, cb, s.now())
	if err := s.store.UpdateTarget(ctx, target); err != nil {
		return nil, fmt.Errorf("update target: %w", err)
	}

	counts, err := s.CountTargets(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if cb.CampaignStatus != "" {
		if err := s.store.UpdateCampaignStatus(ctx, campaignID, cb.CampaignStatus); err != nil {
			return nil, fmt.Errorf("update campaign status: %w", err)
		}
	}

	slog.Info("outreach callback applied", "campaign_id", campaignID, "domain", target.Domain, "status", target.Status)
	return &CallbackResult{TargetID: target.ID, CampaignID: campaignID, Status: target.Status, Counts: counts}, nil
}

// ApplyUpdate merges a callback into target.
func ApplyUpdate(target *models.OutreachTargetRecord, cb Callback, now time.Time) {
	if cb.Status != "" {
		target.Status = cb.Status
		switch cb.Status {
		case models.TargetSent:
			if target.ContactedAt == nil {
				target.ContactedAt = &now
			}
		case models.TargetReplied:
			if target.RepliedAt == nil {
				target.RepliedAt = &now
			}
		case models.TargetLinkAcquired:
			if target.LinkAcquiredAt == nil {
				target.LinkAcquiredAt = &now
			}
		}
	}
	if len(cb.ContactInfo) > 0 {
		target.ContactInfo = cb.ContactInfo
	}
	if len(cb.ResearchData) > 0 {
		target.ResearchData = cb.ResearchData
	}
	if cb.OutreachEmail != "" {
		email := cb.OutreachEmail
		target.OutreachEmail = &email
	}
	if len(cb.ResponseData) > 0 {
		target.ResponseData = cb.ResponseData
	}
}

// Counts derives campaign progress from target statuses.
func Counts(statuses []string) models.CampaignCounts {
	var c models.CampaignCounts
	for _, s := range statuses {
		if models.CountsAsSent(s) {
			c.Sent++
		}
		if models.CountsAsReplied(s) {
			c.Replied++
		}
		if s == models.TargetLinkAcquired {
			c.LinkAcquired++
		}
	}
	return c
}

// CountTargets recomputes and stores a campaign's progress counters.
func (s *Service) CountTargets(ctx context.Context, campaignID uuid.UUID) (models.CampaignCounts, error) {
	statuses, err := s.store.ListTargetStatuses(ctx, campaignID)
	if err != nil {
		return models.CampaignCounts{}, fmt.Errorf("list target statuses: %w", err)
	}
	counts := Counts(statuses)
	if err := s.store.UpdateCampaignCounts(ctx, campaignID, counts); err != nil {
		return counts, fmt.Errorf("update campaign counts: %w", err)
	}
	return counts, nil
}

// UpdateCampaignStatus sets a campaign's status. No transition rules apply.
func (s *Service) UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) error {
	if !models.ValidCampaignStatus(status) {
		return ErrInvalidCampaign
	}
	return s.store.UpdateCampaignStatus(ctx, campaignID, status)
}

// RecordCallbackOutcome counts an inbound callback.
func RecordCallbackOutcome(err error) {
	metrics.OutreachWebhooks.WithLabelValues("inbound", metrics.Outcome(err)).Inc()
}
