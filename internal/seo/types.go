// Package seo holds the provider-independent SEO computations: keyword-gap
// analysis, rank lookup in a SERP and merging of keyword ideas.
package seo

// CompetitorKeyword is a keyword a competitor domain ranks for.
type CompetitorKeyword struct {
	Keyword           string   `json:"keyword"`
	Position          *int     `json:"position"`
	SearchVolume      int      `json:"search_volume"`
	Competition       *string  `json:"competition"`
	CPC               float64  `json:"cpc"`
	KeywordDifficulty *int     `json:"keyword_difficulty"`
	URL               *string  `json:"url"`
	Title             *string  `json:"title"`
	ETV               float64  `json:"etv"`
	OpportunityScore  *float64 `json:"opportunity_score,omitempty"`
}

// OrganicResult is one organic SERP entry.
type OrganicResult struct {
	Domain       string `json:"domain"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	RankGroup    int    `json:"rank_group"`
	RankAbsolute int    `json:"rank_absolute"`
}

// SERP is an organic result page for one keyword.
type SERP struct {
	Keyword      string          `json:"keyword"`
	ResultsCount int64           `json:"results_count"`
	Items        []OrganicResult `json:"items"`
}

// ReferringDomain is a domain linking to a target, with the provider's authority rank.
type ReferringDomain struct {
	Domain    string `json:"domain"`
	Backlinks int    `json:"backlinks"`
	Rank      int    `json:"rank"`
}

// KeywordMetrics are provider metrics for one keyword.
type KeywordMetrics struct {
	Keyword           string  `json:"keyword"`
	SearchVolume      int     `json:"search_volume"`
	Competition       *string `json:"competition"`
	CPC               float64 `json:"cpc"`
	KeywordDifficulty *int    `json:"keyword_difficulty"`
}

// Backlink is an inbound link reported by the provider.
type Backlink struct {
	SourceURL  string `json:"source_url"`
	TargetURL  string `json:"target_url"`
	Anchor     string `json:"anchor"`
	DomainRank *int   `json:"domain_rank"`
	Dofollow   bool   `json:"dofollow"`
	FirstSeen  string `json:"first_seen"`
}

// Locale is the search market a query targets.
type Locale struct {
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
}

// WithDefaults fills the United States / English market for zero fields.
func (l Locale) WithDefaults() Locale {
	if l.LocationCode == 0 {
		l.LocationCode = 2840
	}
	if l.LanguageCode == "" {
		l.LanguageCode = "en"
	}
	return l
}
