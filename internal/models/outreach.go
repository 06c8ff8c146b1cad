package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Campaign status constants.
const (
	CampaignPending   = "pending"
	CampaignRunning   = "running"
	CampaignCompleted = "completed"
)

// Target status constants, in the order the external workflow advances them.
const (
	TargetPending      = "pending"
	TargetResearching  = "researching"
	TargetDrafted      = "drafted"
	TargetSent         = "sent"
	TargetOpened       = "opened"
	TargetReplied      = "replied"
	TargetLinkAcquired = "link_acquired"
	TargetDeclined     = "declined"
)

// Outreach angles.
const (
	AngleGuestPost      = "guest_post"
	AngleResourceUpdate = "resource_update"
)

// ValidCampaignStatus reports whether s is a known campaign status.
func ValidCampaignStatus(s string) bool {
	switch s {
	case CampaignPending, CampaignRunning, CampaignCompleted:
		return true
	}
	return false
}

// ValidTargetStatus reports whether s is a known per-target status.
func ValidTargetStatus(s string) bool {
	switch s {
	case TargetPending, TargetResearching, TargetDrafted, TargetSent, TargetOpened,
		TargetReplied, TargetLinkAcquired, TargetDeclined:
		return true
	}
	return false
}

// CountsAsSent reports whether a target in status s has been contacted.
func CountsAsSent(s string) bool {
	switch s {
	case TargetSent, TargetOpened, TargetReplied, TargetLinkAcquired, TargetDeclined:
		return true
	}
	return false
}

// CountsAsReplied reports whether a target in status s has answered.
func CountsAsReplied(s string) bool {
	return s == TargetReplied || s == TargetLinkAcquired
}

// OutreachCampaign is a launched outreach run for one keyword.
type OutreachCampaign struct {
	ID                uuid.UUID       `json:"id"`
	ProjectID         uuid.UUID       `json:"project_id"`
	KeywordID         *uuid.UUID      `json:"keyword_id"`
	UserID            uuid.UUID       `json:"user_id"`
	CampaignName      string          `json:"campaign_name"`
	Keyword           string          `json:"keyword"`
	Status            string          `json:"status"`
	TargetCount       int             `json:"target_count"`
	SentCount         int             `json:"sent_count"`
	RepliedCount      int             `json:"replied_count"`
	LinkAcquiredCount int             `json:"link_acquired_count"`
	Targets           json.RawMessage `json:"targets"`
	WebhookURL        string          `json:"webhook_url"`
	WebhookFiredAt    *time.Time      `json:"webhook_fired_at"`
	WebhookResponse   json.RawMessage `json:"webhook_response,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OutreachTargetRecord is the persisted form of a target after a campaign launch.
type OutreachTargetRecord struct {
	ID                uuid.UUID       `json:"id"`
	CampaignID        uuid.UUID       `json:"campaign_id"`
	ProjectID         uuid.UUID       `json:"project_id"`
	Domain            string          `json:"domain"`
	TargetURL         string          `json:"target_url"`
	TargetScore       float64         `json:"target_score"`
	DomainRating      float64         `json:"domain_rating"`
	ReferringDomains  int             `json:"referring_domains"`
	LinkedCompetitors int             `json:"linked_competitors"`
	WhyTargeted       string          `json:"why_targeted"`
	OutreachAngle     string          `json:"outreach_angle"`
	PitchHook         string          `json:"pitch_hook"`
	ResearchPrompts   []string        `json:"research_prompts"`
	Status            string          `json:"status"`
	ContactInfo       json.RawMessage `json:"contact_info,omitempty"`
	ResearchData      json.RawMessage `json:"research_data,omitempty"`
	OutreachEmail     *string         `json:"outreach_email"`
	ResponseData      json.RawMessage `json:"response_data,omitempty"`
	ContactedAt       *time.Time      `json:"contacted_at"`
	RepliedAt         *time.Time      `json:"replied_at"`
	LinkAcquiredAt    *time.Time      `json:"link_acquired_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OutreachTemplate is a reusable email template owned by a user.
type OutreachTemplate struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CampaignCounts are the progress counters derived from target statuses.
type CampaignCounts struct {
	Sent         int `json:"sent_count"`
	Replied      int `json:"replied_count"`
	LinkAcquired int `json:"link_acquired_count"`
}
