package models

import (
	"time"

	"github.com/google/uuid"
)

// GSCToken holds the Search Console OAuth2 credentials for one user and project.
type GSCToken struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	SiteURL      string    `json:"site_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GSCRow is one search analytics row. The tuple
// (ProjectID, Date, Page, Query, Device, Country) is unique.
type GSCRow struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Page        string    `json:"page"`
	Query       string    `json:"query"`
	Device      string    `json:"device"`
	Country     string    `json:"country"`
	Clicks      int       `json:"clicks"`
	Impressions int       `json:"impressions"`
	CTR         float64   `json:"ctr"`
	Position    float64   `json:"position"`
}
