package dataforseo

import (
	"context"
	"strings"

	"seodesk/internal/seo"
)

// Endpoint paths.
const (
	EndpointSearchVolume      = "/keywords_data/google_ads/search_volume/live"
	EndpointKeywordsForKeys   = "/keywords_data/google_ads/keywords_for_keywords/live"
	EndpointKeywordIdeas      = "/dataforseo_labs/google/keyword_ideas/live"
	EndpointRelatedKeywords   = "/dataforseo_labs/google/related_keywords/live"
	EndpointRankedKeywords    = "/dataforseo_labs/google/ranked_keywords/live"
	EndpointSERPOrganic       = "/serp/google/organic/live/advanced"
	EndpointBacklinks         = "/backlinks/backlinks/live"
	EndpointReferringDomains  = "/backlinks/referring_domains/live"
	DefaultRankedKeywordOrder = "keyword_data.keyword_info.search_volume,desc"
)

// KeywordMetrics returns Google Ads metrics for a list of keywords.
func (c *Client) KeywordMetrics(ctx context.Context, keywords []string, loc seo.Locale) ([]seo.KeywordMetrics, error) {
	loc = loc.WithDefaults()
	items, err := do[SearchVolumeItem](ctx, c, EndpointSearchVolume, []map[string]any{{
		"keywords":      keywords,
		"location_code": loc.LocationCode,
		"language_code": loc.LanguageCode,
	}}, false)
	if err != nil {
		return nil, err
	}
	return adsItemsToMetrics(items), nil
}

// AdsKeywordIdeas returns Google Ads keyword suggestions for a seed keyword.
func (c *Client) AdsKeywordIdeas(ctx context.Context, keyword string, loc seo.Locale) ([]seo.KeywordMetrics, error) {
	loc = loc.WithDefaults()
	items, err := do[SearchVolumeItem](ctx, c, EndpointKeywordsForKeys, []map[string]any{{
		"keywords":               []string{keyword},
		"location_code":          loc.LocationCode,
		"language_code":          loc.LanguageCode,
		"include_adult_keywords": false,
	}}, true)
	if err != nil {
		return nil, err
	}
	return adsItemsToMetrics(items), nil
}

// KeywordIdeas returns Labs keyword ideas for a seed keyword.
func (c *Client) KeywordIdeas(ctx context.Context, keyword string, loc seo.Locale, limit int) ([]seo.KeywordMetrics, error) {
	loc = loc.WithDefaults()
	results, err := do[ItemsResult[KeywordData]](ctx, c, EndpointKeywordIdeas, []map[string]any{{
		"keywords":          []string{keyword},
		"location_code":     loc.LocationCode,
		"language_code":     loc.LanguageCode,
		"limit":             limit,
		"include_serp_info": false,
	}}, true)
	if err != nil {
		return nil, err
	}

	items := firstItems(results)
	out := make([]seo.KeywordMetrics, 0, len(items))
	for _, it := range items {
		out = append(out, keywordDataToMetrics(it))
	}
	return out, nil
}

// RelatedKeywords returns keywords from "searches related to" at the given depth (1-3).
func (c *Client) RelatedKeywords(ctx context.Context, keyword string, loc seo.Locale, depth int) ([]seo.KeywordMetrics, error) {
	loc = loc.WithDefaults()
	if depth <= 0 {
		depth = 1
	}
	results, err := do[ItemsResult[RelatedKeywordItem]](ctx, c, EndpointRelatedKeywords, []map[string]any{{
		"keyword":       keyword,
		"location_code": loc.LocationCode,
		"language_code": loc.LanguageCode,
		"depth":         depth,
	}}, true)
	if err != nil {
		return nil, err
	}

	items := firstItems(results)
	out := make([]seo.KeywordMetrics, 0, len(items))
	for _, it := range items {
		out = append(out, keywordDataToMetrics(it.KeywordData))
	}
	return out, nil
}

// RankedKeywordsRequest selects the organic keywords a domain ranks for.
type RankedKeywordsRequest struct {
	Target  string
	Locale  seo.Locale
	Limit   int
	Offset  int
	OrderBy []string
}

// RankedKeywords returns the organic keywords a domain ranks for, mapped to
// competitor keyword records.
func (c *Client) RankedKeywords(ctx context.Context, req RankedKeywordsRequest) ([]seo.CompetitorKeyword, error) {
	loc := req.Locale.WithDefaults()
	orderBy := req.OrderBy
	if len(orderBy) == 0 {
		orderBy = []string{DefaultRankedKeywordOrder}
	}
	results, err := do[ItemsResult[RankedKeywordItem]](ctx, c, EndpointRankedKeywords, []map[string]any{{
		"target":          req.Target,
		"location_code":   loc.LocationCode,
		"language_code":   loc.LanguageCode,
		"limit":           req.Limit,
		"offset":          req.Offset,
		"order_by":        orderBy,
		"item_types":      []string{"organic"},
		"ignore_synonyms": false,
	}}, true)
	if err != nil {
		return nil, err
	}
	return ToCompetitorKeywords(firstItems(results)), nil
}

// ToCompetitorKeywords maps ranked-keyword rows to typed records. Rows without a keyword are dropped.
func ToCompetitorKeywords(items []RankedKeywordItem) []seo.CompetitorKeyword {
	out := make([]seo.CompetitorKeyword, 0, len(items))
	for _, it := range items {
		kd := it.KeywordData
		if kd.Keyword == "" {
			continue
		}
		serp := it.RankedSERPElement.SERPItem

		rec := seo.CompetitorKeyword{
			Keyword:           kd.Keyword,
			SearchVolume:      intValue(kd.KeywordInfo.SearchVolume),
			Competition:       lowerPtr(kd.KeywordInfo.CompetitionLevel),
			CPC:               floatValue(kd.KeywordInfo.CPC),
			KeywordDifficulty: kd.KeywordProperties.KeywordDifficulty,
			URL:               strPtr(serp.URL),
			Title:             strPtr(serp.Title),
			ETV:               serp.ETV,
		}
		if serp.RankAbsolute > 0 {
			pos := serp.RankAbsolute
			rec.Position = &pos
		}
		out = append(out, rec)
	}
	return out
}

// SERPRequest selects an organic SERP.
type SERPRequest struct {
	Keyword string
	Locale  seo.Locale
	Device  string // desktop or mobile
	Depth   int
}

// SERP returns the organic results for a keyword.
func (c *Client) SERP(ctx context.Context, req SERPRequest) (*seo.SERP, error) {
	loc := req.Locale.WithDefaults()
	if req.Device == "" {
		req.Device = "desktop"
	}
	if req.Depth <= 0 {
		req.Depth = 100
	}
	results, err := do[ItemsResult[SERPItem]](ctx, c, EndpointSERPOrganic, []map[string]any{{
		"keyword":       req.Keyword,
		"location_code": loc.LocationCode,
		"language_code": loc.LanguageCode,
		"device":        req.Device,
		"depth":         req.Depth,
	}}, true)
	if err != nil {
		return nil, err
	}

	out := &seo.SERP{Keyword: req.Keyword, Items: []seo.OrganicResult{}}
	if len(results) == 0 {
		return out, nil
	}
	out.ResultsCount = results[0].SEResultsCount
	for _, it := range results[0].Items {
		if it.Type != "" && it.Type != "organic" {
			continue
		}
		out.Items = append(out.Items, seo.OrganicResult{
			Domain:       it.Domain,
			URL:          it.URL,
			Title:        it.Title,
			RankGroup:    it.RankGroup,
			RankAbsolute: it.RankAbsolute,
		})
	}
	return out, nil
}

// TopOrganic returns the first depth organic results for keyword.
func (c *Client) TopOrganic(ctx context.Context, keyword string, loc seo.Locale, depth int) ([]seo.OrganicResult, error) {
	serp, err := c.SERP(ctx, SERPRequest{Keyword: keyword, Locale: loc, Depth: depth})
	if err != nil {
		return nil, err
	}
	if len(serp.Items) > depth {
		return serp.Items[:depth], nil
	}
	return serp.Items, nil
}

// Backlinks returns backlinks pointing at target.
func (c *Client) Backlinks(ctx context.Context, target string, limit int) ([]seo.Backlink, error) {
	if limit <= 0 {
		limit = 1000
	}
	results, err := do[ItemsResult[BacklinkItem]](ctx, c, EndpointBacklinks, []map[string]any{{
		"target": target,
		"mode":   "as_is",
		"limit":  limit,
	}}, false)
	if err != nil {
		return nil, err
	}

	items := firstItems(results)
	out := make([]seo.Backlink, 0, len(items))
	for _, it := range items {
		if it.URLFrom == "" || it.URLTo == "" {
			continue
		}
		out = append(out, seo.Backlink{
			SourceURL:  it.URLFrom,
			TargetURL:  it.URLTo,
			Anchor:     it.Anchor,
			DomainRank: it.Rank,
			Dofollow:   it.Dofollow,
			FirstSeen:  it.FirstSeen,
		})
	}
	return out, nil
}

// ReferringDomains returns the domains linking to target, highest rank first.
func (c *Client) ReferringDomains(ctx context.Context, target string, limit int) ([]seo.ReferringDomain, error) {
	if limit <= 0 {
		limit = 1000
	}
	results, err := do[ItemsResult[ReferringDomainItem]](ctx, c, EndpointReferringDomains, []map[string]any{{
		"target":   target,
		"limit":    limit,
		"order_by": []string{"rank,desc"},
	}}, true)
	if err != nil {
		return nil, err
	}

	items := firstItems(results)
	out := make([]seo.ReferringDomain, 0, len(items))
	for _, it := range items {
		name := strings.ToLower(it.Name())
		if name == "" {
			continue
		}
		out = append(out, seo.ReferringDomain{Domain: name, Backlinks: it.Backlinks, Rank: it.Rank})
	}
	return out, nil
}

func adsItemsToMetrics(items []SearchVolumeItem) []seo.KeywordMetrics {
	out := make([]seo.KeywordMetrics, 0, len(items))
	for _, it := range items {
		if it.Keyword == "" {
			continue
		}
		out = append(out, seo.KeywordMetrics{
			Keyword:      it.Keyword,
			SearchVolume: intValue(it.SearchVolume),
			Competition:  lowerPtr(it.Competition),
			CPC:          floatValue(it.CPC),
		})
	}
	return out
}

func keywordDataToMetrics(kd KeywordData) seo.KeywordMetrics {
	return seo.KeywordMetrics{
		Keyword:           kd.Keyword,
		SearchVolume:      intValue(kd.KeywordInfo.SearchVolume),
		Competition:       lowerPtr(kd.KeywordInfo.CompetitionLevel),
		CPC:               floatValue(kd.KeywordInfo.CPC),
		KeywordDifficulty: kd.KeywordProperties.KeywordDifficulty,
	}
}
