package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

const campaignColumns = `id, project_id, keyword_id, user_id, campaign_name, keyword, status,
	target_count, sent_count, replied_count, link_acquired_count, targets, webhook_url,
	webhook_fired_at, webhook_response, created_at, updated_at`

func scanCampaignInto(row pgx.Row, c *models.OutreachCampaign) error {
	return row.Scan(
		&c.ID,
		&c.ProjectID,
		&c.KeywordID,
		&c.UserID,
		&c.CampaignName,
		&c.Keyword,
		&c.Status,
		&c.TargetCount,
		&c.SentCount,
		&c.RepliedCount,
		&c.LinkAcquiredCount,
		&c.Targets,
		&c.WebhookURL,
		&c.WebhookFiredAt,
		&c.WebhookResponse,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func scanCampaign(row pgx.Row) (*models.OutreachCampaign, error) {
	var c models.OutreachCampaign
	err := scanCampaignInto(row, &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const targetColumns = `id, campaign_id, project_id, domain, target_url, target_score, domain_rating,
	referring_domains, linked_competitors, why_targeted, outreach_angle, pitch_hook, research_prompts,
	status, contact_info, research_data, outreach_email, response_data, contacted_at, replied_at,
	link_acquired_at, created_at, updated_at`

func scanTargetInto(row pgx.Row, t *models.OutreachTargetRecord) error {
	return row.Scan(
		&t.ID,
		&t.CampaignID,
		&t.ProjectID,
		&t.Domain,
		&t.TargetURL,
		&t.TargetScore,
		&t.DomainRating,
		&t.ReferringDomains,
		&t.LinkedCompetitors,
		&t.WhyTargeted,
		&t.OutreachAngle,
		&t.PitchHook,
		&t.ResearchPrompts,
		&t.Status,
		&t.ContactInfo,
		&t.ResearchData,
		&t.OutreachEmail,
		&t.ResponseData,
		&t.ContactedAt,
		&t.RepliedAt,
		&t.LinkAcquiredAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// CreateCampaign inserts a campaign and its target records in one transaction.
func (d *DB) CreateCampaign(ctx context.Context, c *models.OutreachCampaign, targets []models.OutreachTargetRecord) error {
	if c.Status == "" {
		c.Status = models.CampaignPending
	}
	if c.Targets == nil {
		c.Targets = json.RawMessage("[]")
	}
	c.TargetCount = len(targets)

	return d.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO outreach_campaigns (project_id, keyword_id, user_id, campaign_name, keyword, status,
				target_count, targets, webhook_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`, c.ProjectID, c.KeywordID, c.UserID, c.CampaignName, c.Keyword, c.Status,
			c.TargetCount, c.Targets, c.WebhookURL,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert campaign: %w", err)
		}

		for i := range targets {
			t := &targets[i]
			t.CampaignID = c.ID
			t.ProjectID = c.ProjectID
			if t.Status == "" {
				t.Status = models.TargetPending
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO outreach_targets (campaign_id, project_id, domain, target_url, target_score,
					domain_rating, referring_domains, linked_competitors, why_targeted, outreach_angle,
					pitch_hook, research_prompts, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				RETURNING id, created_at, updated_at
			`, t.CampaignID, t.ProjectID, t.Domain, t.TargetURL, t.TargetScore,
				t.DomainRating, t.ReferringDomains, t.LinkedCompetitors, t.WhyTargeted, t.OutreachAngle,
				t.PitchHook, nonNil(t.ResearchPrompts), t.Status,
			).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert target %s: %w", t.Domain, err)
			}
		}
		return nil
	})
}

// GetCampaign returns a campaign by ID regardless of owner. Used by webhook callbacks.
func (d *DB) GetCampaign(ctx context.Context, id uuid.UUID) (*models.OutreachCampaign, error) {
	return scanCampaign(d.Pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM outreach_campaigns WHERE id = $1`, id))
}

// GetCampaignForUser returns a campaign only if it belongs to userID.
func (d *DB) GetCampaignForUser(ctx context.Context, id, userID uuid.UUID) (*models.OutreachCampaign, error) {
	return scanCampaign(d.Pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM outreach_campaigns WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListCampaigns returns a project's campaigns, newest first.
func (d *DB) ListCampaigns(ctx context.Context, projectID uuid.UUID) ([]models.OutreachCampaign, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+campaignColumns+`
		FROM outreach_campaigns WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OutreachCampaign, error) {
		var c models.OutreachCampaign
		err := scanCampaignInto(row, &c)
		return c, err
	})
}

// SetCampaignWebhookResult records the outcome of firing the campaign webhook.
func (d *DB) SetCampaignWebhookResult(ctx context.Context, id uuid.UUID, status string, firedAt *time.Time, response json.RawMessage) error {
	tag, err := d.Pool.Exec(ctx, `
		UPDATE outreach_campaigns
		SET status = $2, webhook_fired_at = COALESCE($3, webhook_fired_at), webhook_response = $4, updated_at = NOW()
		WHERE id = $1`, id, status, firedAt, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// UpdateCampaignStatus sets a campaign's status.
func (d *DB) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := d.Pool.Exec(ctx, `
		UPDATE outreach_campaigns SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// UpdateCampaignCounts stores recomputed progress counters.
func (d *DB) UpdateCampaignCounts(ctx context.Context, id uuid.UUID, counts models.CampaignCounts) error {
	_, err := d.Pool.Exec(ctx, `
		UPDATE outreach_campaigns
		SET sent_count = $2, replied_count = $3, link_acquired_count = $4, updated_at = NOW()
		WHERE id = $1`, id, counts.Sent, counts.Replied, counts.LinkAcquired)
	return err
}

// GetTargetByDomain returns a campaign's target record for domain.
func (d *DB) GetTargetByDomain(ctx context.Context, campaignID uuid.UUID, domain string) (*models.OutreachTargetRecord, error) {
	var t models.OutreachTargetRecord
	err := scanTargetInto(d.Pool.QueryRow(ctx, `SELECT `+targetColumns+`
		FROM outreach_targets WHERE campaign_id = $1 AND domain = $2`, campaignID, domain), &t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTargets returns a campaign's targets by score.
func (d *DB) ListTargets(ctx context.Context, campaignID uuid.UUID) ([]models.OutreachTargetRecord, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+targetColumns+`
		FROM outreach_targets WHERE campaign_id = $1 ORDER BY target_score DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OutreachTargetRecord, error) {
		var t models.OutreachTargetRecord
		err := scanTargetInto(row, &t)
		return t, err
	})
}

// ListTargetStatuses returns the current status of every target in a campaign.
func (d *DB) ListTargetStatuses(ctx context.Context, campaignID uuid.UUID) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `SELECT status FROM outreach_targets WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpdateTarget writes the mutable callback fields of a target record.
func (d *DB) UpdateTarget(ctx context.Context, t *models.OutreachTargetRecord) error {
	err := d.Pool.QueryRow(ctx, `
		UPDATE outreach_targets
		SET status = $2, contact_info = $3, research_data = $4, outreach_email = $5, response_data = $6,
			contacted_at = $7, replied_at = $8, link_acquired_at = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, t.ID, t.Status, t.ContactInfo, t.ResearchData, t.OutreachEmail, t.ResponseData,
		t.ContactedAt, t.RepliedAt, t.LinkAcquiredAt,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTargetNotFound
	}
	return err
}
