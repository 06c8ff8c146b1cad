package dataforseo

import "strings"

// Response is the envelope every endpoint returns.
type Response[T any] struct {
	StatusCode    int       `json:"status_code"`
	StatusMessage string    `json:"status_message"`
	Cost          float64   `json:"cost"`
	TasksCount    int       `json:"tasks_count"`
	Tasks         []Task[T] `json:"tasks"`
}

// Task is one task in the envelope.
type Task[T any] struct {
	ID            string  `json:"id"`
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	Cost          float64 `json:"cost"`
	Result        []T     `json:"result"`
}

// ItemsResult is the result shape of list endpoints.
type ItemsResult[I any] struct {
	Keyword        string `json:"keyword,omitempty"`
	Target         string `json:"target,omitempty"`
	TotalCount     int64  `json:"total_count"`
	ItemsCount     int    `json:"items_count"`
	SEResultsCount int64  `json:"se_results_count"`
	Items          []I    `json:"items"`
}

// SearchVolumeItem is a Google Ads keyword metric row.
type SearchVolumeItem struct {
	Keyword          string   `json:"keyword"`
	SearchVolume     *int     `json:"search_volume"`
	Competition      *string  `json:"competition"`
	CompetitionIndex *int     `json:"competition_index"`
	CPC              *float64 `json:"cpc"`
}

// KeywordInfo carries Labs keyword metrics.
type KeywordInfo struct {
	SearchVolume     *int     `json:"search_volume"`
	Competition      *float64 `json:"competition"`
	CompetitionLevel *string  `json:"competition_level"`
	CPC              *float64 `json:"cpc"`
}

// KeywordProperties carries Labs keyword properties.
type KeywordProperties struct {
	KeywordDifficulty *int `json:"keyword_difficulty"`
}

// KeywordData is a Labs keyword with its metrics.
type KeywordData struct {
	Keyword           string            `json:"keyword"`
	KeywordInfo       KeywordInfo       `json:"keyword_info"`
	KeywordProperties KeywordProperties `json:"keyword_properties"`
}

// RelatedKeywordItem is a related_keywords row.
type RelatedKeywordItem struct {
	KeywordData KeywordData `json:"keyword_data"`
	Depth       int         `json:"depth"`
}

// SERPItem is a SERP element. Only items of type "organic" are ranked results.
type SERPItem struct {
	Type         string  `json:"type"`
	RankGroup    int     `json:"rank_group"`
	RankAbsolute int     `json:"rank_absolute"`
	Domain       string  `json:"domain"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	ETV          float64 `json:"etv"`
}

// RankedKeywordItem is a ranked_keywords row.
type RankedKeywordItem struct {
	KeywordData       KeywordData `json:"keyword_data"`
	RankedSERPElement struct {
		SERPItem SERPItem `json:"serp_item"`
	} `json:"ranked_serp_element"`
}

// BacklinkItem is a backlinks row.
type BacklinkItem struct {
	URLFrom    string `json:"url_from"`
	URLTo      string `json:"url_to"`
	DomainFrom string `json:"domain_from"`
	Anchor     string `json:"anchor"`
	Rank       *int   `json:"rank"`
	Dofollow   bool   `json:"dofollow"`
	FirstSeen  string `json:"first_seen"`
}

// ReferringDomainItem is a referring_domains row. Depending on the API
// version the domain arrives as "domain" or "domain_from".
type ReferringDomainItem struct {
	Domain     string `json:"domain"`
	DomainFrom string `json:"domain_from"`
	Backlinks  int    `json:"backlinks"`
	Rank       int    `json:"rank"`
}

// Name returns the referring domain regardless of which field carried it.
func (r ReferringDomainItem) Name() string {
	if r.Domain != "" {
		return r.Domain
	}
	return r.DomainFrom
}

func lowerPtr(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := strings.ToLower(*s)
	return &v
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func floatValue(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
