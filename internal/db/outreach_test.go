package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"seodesk/internal/models"
)

func TestCreateCampaign_WithTargets(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user, project := createTestProject(t, db, "camp")

	campaign := &models.OutreachCampaign{
		ProjectID:    project.ID,
		UserID:       user.ID,
		CampaignName: "Outreach: seo tools",
		Keyword:      "seo tools",
		Targets:      json.RawMessage(`[{"domain":"blog.com"}]`),
		WebhookURL:   "https://n8n.example.com/webhook/outreach",
	}
	targets := []models.OutreachTargetRecord{
		{Domain: "blog.com", TargetURL: "https://blog.com", TargetScore: 64.5, OutreachAngle: models.AngleGuestPost,
			ResearchPrompts: []string{"a", "b"}},
		{Domain: "news.com", TargetURL: "https://news.com", TargetScore: 25, OutreachAngle: models.AngleResourceUpdate},
	}

	if err := db.CreateCampaign(ctx, campaign, targets); err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	if campaign.Status != models.CampaignPending {
		t.Errorf("Status = %q, want pending", campaign.Status)
	}
	if campaign.TargetCount != 2 {
		t.Errorf("TargetCount = %d, want 2", campaign.TargetCount)
	}

	fired := time.Now()
	if err := db.SetCampaignWebhookResult(ctx, campaign.ID, models.CampaignRunning, &fired, json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("SetCampaignWebhookResult() error = %v", err)
	}

	got, err := db.GetCampaignForUser(ctx, campaign.ID, user.ID)
	if err != nil {
		t.Fatalf("GetCampaignForUser() error = %v", err)
	}
	if got.Status != models.CampaignRunning || got.WebhookFiredAt == nil {
		t.Errorf("campaign = %q fired %v, want running with fired_at", got.Status, got.WebhookFiredAt)
	}

	target, err := db.GetTargetByDomain(ctx, campaign.ID, "blog.com")
	if err != nil {
		t.Fatalf("GetTargetByDomain() error = %v", err)
	}
	target.Status = models.TargetSent
	target.ContactedAt = &fired
	if err := db.UpdateTarget(ctx, target); err != nil {
		t.Fatalf("UpdateTarget() error = %v", err)
	}

	statuses, err := db.ListTargetStatuses(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("ListTargetStatuses() error = %v", err)
	}
	if len(statuses) != 2 {
		t.Errorf("ListTargetStatuses() = %v, want 2", statuses)
	}

	if _, err := db.GetTargetByDomain(ctx, campaign.ID, "missing.com"); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("GetTargetByDomain() error = %v, want ErrTargetNotFound", err)
	}
	if _, err := db.GetCampaign(ctx, uuid.New()); !errors.Is(err, ErrCampaignNotFound) {
		t.Errorf("GetCampaign() error = %v, want ErrCampaignNotFound", err)
	}
}
