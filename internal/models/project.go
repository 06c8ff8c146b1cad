package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLocationCode is the provider location code for the United States.
const DefaultLocationCode = 2840

// DefaultLanguageCode is used when a project does not set a language.
const DefaultLanguageCode = "en"

// Project groups keywords, competitors and backlinks for a single domain.
type Project struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	Domain         string    `json:"domain"`
	TargetLocation int       `json:"target_location"`
	TargetLanguage string    `json:"target_language"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Competition levels reported by the keyword data provider.
const (
	CompetitionLow    = "low"
	CompetitionMedium = "medium"
	CompetitionHigh   = "high"
)

// Keyword is a keyword tracked by a project. Identity is case-insensitive.
type Keyword struct {
	ID                uuid.UUID `json:"id"`
	ProjectID         uuid.UUID `json:"project_id"`
	Keyword           string    `json:"keyword"`
	SearchVolume      int       `json:"search_volume"`
	Competition       *string   `json:"competition"`
	CPC               float64   `json:"cpc"`
	KeywordDifficulty *int      `json:"keyword_difficulty"`
	Tags              []string  `json:"tags"`
	Category          *string   `json:"category"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Competitor is a domain the project compares itself against.
type Competitor struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Domain    string    `json:"domain"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Devices a ranking can be checked on.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
)

// Ranking is a single SERP position observation for a tracked keyword.
type Ranking struct {
	ID           uuid.UUID `json:"id"`
	KeywordID    uuid.UUID `json:"keyword_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	RankPosition int       `json:"rank_position"`
	RankURL      *string   `json:"rank_url"`
	RankAbsolute int       `json:"rank_absolute"`
	SearchEngine string    `json:"search_engine"`
	Device       string    `json:"device"`
	LocationCode int       `json:"location_code"`
	LanguageCode string    `json:"language_code"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Link types for backlinks.
const (
	LinkTypeDofollow = "dofollow"
	LinkTypeNofollow = "nofollow"
)

// Backlink is an inbound link to a project's domain. (SourceURL, TargetURL) is unique.
type Backlink struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"project_id"`
	SourceURL  string    `json:"source_url"`
	TargetURL  string    `json:"target_url"`
	AnchorText *string   `json:"anchor_text"`
	DomainRank *int      `json:"domain_rank"`
	LinkType   string    `json:"link_type"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	IsLost     bool      `json:"is_lost"`
}
