package models

// ProjectStats holds the dashboard counters for a project.
type ProjectStats struct {
	Keywords        int64    `json:"keywords"`
	Competitors     int64    `json:"competitors"`
	Backlinks       int64    `json:"backlinks"`
	LostBacklinks   int64    `json:"lost_backlinks"`
	Campaigns       int64    `json:"campaigns"`
	ActiveCampaigns int64    `json:"active_campaigns"`
	LinksAcquired   int64    `json:"links_acquired"`
	AvgPosition     *float64 `json:"avg_position"`
	Top10Keywords   int64    `json:"top10_keywords"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
}
