package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"seodesk/internal/dataforseo"
	"seodesk/internal/db"
	"seodesk/internal/metrics"
	"seodesk/internal/models"
	"seodesk/internal/seo"
	"seodesk/internal/validation"
)

// Usage endpoints recorded for DataForSEO calls.
const (
	usageKeywordsData   = "keywords_data"
	usageKeywordsHybrid = "keywords_hybrid"
	usageSERPCheck      = "serp_check"
	usageBacklinks      = "backlinks"
	usageRankedKeywords = "ranked_keywords"
	usageKeywordGap     = "keyword_gap"
)

const (
	maxMetricsKeywords    = 1000
	defaultIdeasLimit     = 50
	maxIdeasLimit         = 1000
	relatedKeywordsDepth  = 2
	rankCheckDepth        = 100
	backlinkFetchLimit    = 100
	defaultSiteLimit      = 100
	maxSiteLimit          = 1000
	defaultGapLimit       = 20
	maxGapLimit           = 100
	backlinkFirstSeenForm = "2006-01-02 15:04:05 -07:00"
)

// Provider is the subset of the DataForSEO client the API uses.
type Provider interface {
	KeywordMetrics(ctx context.Context, keywords []string, loc seo.Locale) ([]seo.KeywordMetrics, error)
	KeywordIdeas(ctx context.Context, keyword string, loc seo.Locale, limit int) ([]seo.KeywordMetrics, error)
	AdsKeywordIdeas(ctx context.Context, keyword string, loc seo.Locale) ([]seo.KeywordMetrics, error)
	RelatedKeywords(ctx context.Context, keyword string, loc seo.Locale, depth int) ([]seo.KeywordMetrics, error)
	RankedKeywords(ctx context.Context, req dataforseo.RankedKeywordsRequest) ([]seo.CompetitorKeyword, error)
	SERP(ctx context.Context, req dataforseo.SERPRequest) (*seo.SERP, error)
	Backlinks(ctx context.Context, target string, limit int) ([]seo.Backlink, error)
}

// DataForSEOHandler exposes keyword research, rank checks, backlinks and the
// keyword gap analysis.
type DataForSEOHandler struct {
	db       *db.DB
	provider Provider
	now      func() time.Time
}

// NewDataForSEOHandler creates a new handler. provider is nil when no
// credentials are configured; every endpoint then answers 503.
func NewDataForSEOHandler(database *db.DB, provider Provider) *DataForSEOHandler {
	return &DataForSEOHandler{db: database, provider: provider, now: time.Now}
}

type localeBody struct {
	LocationCode int    `json:"locationCode"`
	LanguageCode string `json:"languageCode"`
}

func (l localeBody) locale(fallback *models.Project) seo.Locale {
	loc := seo.Locale{LocationCode: l.LocationCode, LanguageCode: l.LanguageCode}
	if fallback != nil {
		if loc.LocationCode == 0 {
			loc.LocationCode = fallback.TargetLocation
		}
		if loc.LanguageCode == "" {
			loc.LanguageCode = fallback.TargetLanguage
		}
	}
	return loc.WithDefaults()
}

func (h *DataForSEOHandler) ready(c fiber.Ctx) (*models.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		_ = jsonError(c, fiber.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if h.provider == nil {
		_ = jsonError(c, fiber.StatusServiceUnavailable, "DataForSEO is not configured")
		return nil, false
	}
	return user, true
}

// optionalProject loads the project when raw is set. It reports false after
// writing an error response.
func (h *DataForSEOHandler) optionalProject(c fiber.Ctx, raw string, userID uuid.UUID) (*models.Project, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = jsonError(c, fiber.StatusBadRequest, "invalid projectId")
		return nil, false
	}
	project, _ := projectFor(c, h.db, id, userID)
	return project, project != nil
}

// Keywords returns search volume, CPC and competition for a keyword list.
// With projectId the project's tracked keywords get the fresh metrics.
func (h *DataForSEOHandler) Keywords(c fiber.Ctx) error {
	user, ok := h.ready(c)
	if !ok {
		return nil
	}

	var body struct {
		localeBody
		Keywords  []string `json:"keywords"`
		ProjectID string   `json:"projectId"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	keywords := keywordList("", strings.Join(body.Keywords, "\n"))
	if len(keywords) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "keywords array is required")
	}
	if len(keywords) > maxMetricsKeywords {
		return jsonError(c, fiber.StatusBadRequest, "at most 1000 keywords per request")
	}

	project, ok := h.optionalProject(c, body.ProjectID, user.ID)
	if !ok {
		return nil
	}

	results, err := h.provider.KeywordMetrics(c.Context(), keywords, body.locale(project))
	if err != nil {
		return providerError(c, "failed to fetch keyword data", err)
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageKeywordsData, len(keywords), body)

	updated := 0
	if project != nil {
		for _, m := range results {
			err := h.db.UpdateKeywordMetrics(c.Context(), &models.Keyword{
				ProjectID:         project.ID,
				Keyword:           m.Keyword,
				SearchVolume:      m.SearchVolume,
				Competition:       m.Competition,
				CPC:               m.CPC,
				KeywordDifficulty: m.KeywordDifficulty,
			})
			switch {
			case err == nil:
				updated++
			case !errors.Is(err, db.ErrKeywordNotFound):
				slog.Warn("failed to store keyword metrics", "project_id", project.ID, "keyword", m.Keyword, "error", err)
			}
		}
	}

	if results == nil {
		results = []seo.KeywordMetrics{}
	}
	return jsonSuccess(c, fiber.Map{"keywords": results, "updated": updated})
}

// Ideas merges keyword suggestions from the Labs ideas, Ads suggestions and
// related searches endpoints. A failing source is logged and left out.
func (h *DataForSEOHandler) Ideas(c fiber.Ctx) error {
	user, ok := h.ready(c)
	if !ok {
		return nil
	}

	body := struct {
		localeBody
		Keyword        string `json:"keyword"`
		Limit          int    `json:"limit"`
		IncludeSEO     bool   `json:"includeSEO"`
		IncludeAds     bool   `json:"includeAds"`
		IncludeRelated bool   `json:"includeRelated"`
	}{IncludeSEO: true, IncludeRelated: true}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	keyword := validation.NormalizeKeyword(body.Keyword)
	if valid, msg := validation.ValidateKeyword(keyword); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	limit := body.Limit
	if limit <= 0 {
		limit = defaultIdeasLimit
	}
	limit = min(limit, maxIdeasLimit)

	type fetch struct {
		name string
		fn   func(context.Context) ([]seo.KeywordMetrics, error)
	}
	loc := body.locale(nil)
	var fetches []fetch
	if body.IncludeSEO {
		fetches = append(fetches, fetch{seo.SourceSEO, func(ctx context.Context) ([]seo.KeywordMetrics, error) {
			return h.provider.KeywordIdeas(ctx, keyword, loc, limit)
		}})
	}
	if body.IncludeAds {
		fetches = append(fetches, fetch{seo.SourceAds, func(ctx context.Context) ([]seo.KeywordMetrics, error) {
			return h.provider.AdsKeywordIdeas(ctx, keyword, loc)
		}})
	}
	if body.IncludeRelated {
		fetches = append(fetches, fetch{seo.SourceRelated, func(ctx context.Context) ([]seo.KeywordMetrics, error) {
			return h.provider.RelatedKeywords(ctx, keyword, loc, relatedKeywordsDepth)
		}})
	}
	if len(fetches) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "at least one idea source must be enabled")
	}

	sources := make([]seo.IdeaSource, len(fetches))
	errs := make([]error, len(fetches))
	g, gctx := errgroup.WithContext(c.Context())
	for i, f := range fetches {
		g.Go(func() error {
			items, err := f.fn(gctx)
			sources[i] = seo.IdeaSource{Name: f.name, Items: items}
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var lastErr error
	for i, err := range errs {
		if err != nil {
			slog.Warn("keyword idea source failed", "source", fetches[i].name, "keyword", keyword, "error", err)
			failed++
			lastErr = err
		}
	}
	if failed == len(fetches) {
		return providerError(c, "failed to fetch keyword ideas", lastErr)
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageKeywordsHybrid, len(fetches), body)

	ideas := seo.MergeKeywordIdeas(sources, limit)
	if ideas == nil {
		ideas = []seo.KeywordIdea{}
	}
	return jsonSuccess(c, fiber.Map{"keyword": keyword, "total": len(ideas), "ideas": ideas})
}

// Rankings checks where a domain ranks for a keyword. With keywordId the
// keyword, domain and locale come from the tracked keyword's project and a
// found position is stored.
func (h *DataForSEOHandler) Rankings(c fiber.Ctx) error {
	user, ok := h.ready(c)
	if !ok {
		return nil
	}

	var body struct {
		localeBody
		Keyword   string `json:"keyword"`
		Domain    string `json:"domain"`
		KeywordID string `json:"keywordId"`
		Device    string `json:"device"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	device := body.Device
	if device == "" {
		device = models.DeviceDesktop
	}
	if device != models.DeviceDesktop && device != models.DeviceMobile {
		return jsonError(c, fiber.StatusBadRequest, "device must be desktop or mobile")
	}

	var (
		tracked *models.Keyword
		project *models.Project
	)
	if body.KeywordID != "" {
		id, err := uuid.Parse(body.KeywordID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid keywordId")
		}
		tracked, err = h.db.GetKeyword(c.Context(), id, user.ID)
		if err != nil {
			if errors.Is(err, db.ErrKeywordNotFound) {
				return jsonError(c, fiber.StatusNotFound, "keyword not found")
			}
			return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keyword")
		}
		if project, _ = projectFor(c, h.db, tracked.ProjectID, user.ID); project == nil {
			return nil
		}
		if body.Keyword == "" {
			body.Keyword = tracked.Keyword
		}
		if body.Domain == "" {
			body.Domain = project.Domain
		}
	}

	keyword := validation.NormalizeKeyword(body.Keyword)
	domain := validation.CleanDomain(body.Domain)
	if keyword == "" || domain == "" {
		return jsonError(c, fiber.StatusBadRequest, "keyword and domain are required")
	}

	loc := body.locale(project)
	serp, err := h.provider.SERP(c.Context(), dataforseo.SERPRequest{
		Keyword: keyword,
		Locale:  loc,
		Device:  device,
		Depth:   rankCheckDepth,
	})
	if err != nil {
		return providerError(c, "failed to check rankings", err)
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageSERPCheck, 1, body)

	hit := seo.FindRank(serp.Items, domain)
	resp := fiber.Map{
		"keyword":      keyword,
		"domain":       domain,
		"position":     nil,
		"rankUrl":      nil,
		"totalResults": serp.ResultsCount,
		"saved":        false,
	}
	if hit == nil {
		return jsonSuccess(c, resp)
	}
	resp["position"] = hit.RankAbsolute
	resp["rankUrl"] = hit.URL

	if tracked != nil {
		rankURL := hit.URL
		ranking := &models.Ranking{
			KeywordID:    tracked.ID,
			ProjectID:    tracked.ProjectID,
			RankPosition: hit.RankAbsolute,
			RankURL:      &rankURL,
			RankAbsolute: hit.RankAbsolute,
			SearchEngine: "google",
			Device:       device,
			LocationCode: loc.LocationCode,
			LanguageCode: loc.LanguageCode,
			CheckedAt:    h.now(),
		}
		if err := h.db.InsertRanking(c.Context(), ranking); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "failed to save ranking")
		}
		resp["saved"] = true
	}
	return jsonSuccess(c, resp)
}

// Backlinks fetches backlinks for the project's domain and stores them.
func (h *DataForSEOHandler) Backlinks(c fiber.Ctx) error {
	user, ok := h.ready(c)
	if !ok {
		return nil
	}

	var body struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.ProjectID == "" {
		return jsonError(c, fiber.StatusBadRequest, "projectId is required")
	}
	project, ok := h.optionalProject(c, body.ProjectID, user.ID)
	if !ok {
		return nil
	}

	links, err := h.provider.Backlinks(c.Context(), project.Domain, backlinkFetchLimit)
	if err != nil {
		return providerError(c, "failed to fetch backlinks", err)
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageBacklinks, 1, body)

	count, err := h.db.UpsertBacklinks(c.Context(), BacklinkModels(project.ID, links, h.now()))
	if err != nil {
		slog.Error("failed to store backlinks", "project_id", project.ID, "stored", count, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to store backlinks")
	}
	return jsonSuccess(c, fiber.Map{"success": true, "count": count})
}

// KeywordsForSite lists the organic keywords a domain ranks for.
func (h *DataForSEOHandler) KeywordsForSite(c fiber.Ctx) error {
	user, ok := h.ready(c)
	if !ok {
		return nil
	}

	var body struct {
		localeBody
		Domain string `json:"domain"`
		Limit  int    `json:"limit"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if valid, msg := validation.ValidateDomain(body.Domain); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	limit := body.Limit
	if limit <= 0 {
		limit = defaultSiteLimit
	}
	limit = min(limit, maxSiteLimit)

	domain := validation.CleanDomain(body.Domain)
	keywords, err := h.provider.RankedKeywords(c.Context(), dataforseo.RankedKeywordsRequest{
		Target: domain,
		Locale: body.locale(nil),
		Limit:  limit,
	})
	if err != nil {
		return providerError(c, "failed to fetch ranked keywords", err)
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageRankedKeywords, 1, body)

	if keywords == nil {
		keywords = []seo.CompetitorKeyword{}
	}
	return jsonSuccess(c, fiber.Map{"domain": domain, "total": len(keywords), "keywords": keywords})
}

// GapResponse is the keyword gap report.
type GapResponse struct {
	CompetitorDomain        string                  `json:"competitor_domain"`
	YourKeywordsCount       int                     `json:"your_keywords_count"`
	CompetitorKeywordsCount int                     `json:"competitor_keywords_count"`
	GapsCount               int                     `json:"gaps_count"`
	OverlapsCount           int                     `json:"overlaps_count"`
	Gaps                    []seo.CompetitorKeyword `json:"gaps"`
	Overlaps                []seo.CompetitorKeyword `json:"overlaps"`
	Timestamp               time.Time               `json:"timestamp"`
}

// KeywordGap finds keywords a competitor ranks for that the project does not track.
func (h *DataForSEOHandler) KeywordGap(c fiber.Ctx) error {
	user, ok := h.ready(c)
	if !ok {
		return nil
	}

	var body struct {
		ProjectID        string `json:"projectId"`
		CompetitorDomain string `json:"competitorDomain"`
		Limit            int    `json:"limit"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.ProjectID == "" || body.CompetitorDomain == "" {
		return jsonError(c, fiber.StatusBadRequest, "projectId and competitorDomain are required")
	}
	competitor := validation.CleanDomain(body.CompetitorDomain)
	if valid, msg := validation.ValidateDomain(competitor); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	limit := body.Limit
	if limit <= 0 {
		limit = defaultGapLimit
	}
	limit = min(limit, maxGapLimit)

	project, ok := h.optionalProject(c, body.ProjectID, user.ID)
	if !ok {
		return nil
	}

	tracked, err := h.db.ListKeywordTexts(c.Context(), project.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch project keywords")
	}

	ranked, err := h.provider.RankedKeywords(c.Context(), dataforseo.RankedKeywordsRequest{
		Target: competitor,
		Locale: seo.Locale{LocationCode: project.TargetLocation, LanguageCode: project.TargetLanguage},
		Limit:  limit,
	})
	if err != nil {
		return providerError(c, "failed to analyze keyword gap", err)
	}
	metrics.RecordUsage(&user.ID, models.APIDataForSEO, usageKeywordGap, 1, body)

	result := seo.AnalyzeGap(seo.NewKeywordSet(tracked), ranked)
	return jsonSuccess(c, GapReport(competitor, len(tracked), len(ranked), result, h.now()))
}

// GapReport builds the response for a gap analysis. Nil lists become empty.
func GapReport(competitor string, yours, theirs int, r seo.GapResult, now time.Time) GapResponse {
	gaps, overlaps := r.Gaps, r.Overlaps
	if gaps == nil {
		gaps = []seo.CompetitorKeyword{}
	}
	if overlaps == nil {
		overlaps = []seo.CompetitorKeyword{}
	}
	return GapResponse{
		CompetitorDomain:        competitor,
		YourKeywordsCount:       yours,
		CompetitorKeywordsCount: theirs,
		GapsCount:               len(gaps),
		OverlapsCount:           len(overlaps),
		Gaps:                    gaps,
		Overlaps:                overlaps,
		Timestamp:               now,
	}
}

// TrackGapKeyword starts tracking a keyword found by the gap analysis, keeping
// the metrics the analysis returned.
func (h *DataForSEOHandler) TrackGapKeyword(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		ProjectID         string  `json:"projectId"`
		Keyword           string  `json:"keyword"`
		SearchVolume      int     `json:"search_volume"`
		Competition       *string `json:"competition"`
		CPC               float64 `json:"cpc"`
		KeywordDifficulty *int    `json:"keyword_difficulty"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.ProjectID == "" {
		return jsonError(c, fiber.StatusBadRequest, "projectId is required")
	}
	keyword := validation.NormalizeKeyword(body.Keyword)
	if valid, msg := validation.ValidateKeyword(keyword); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	project, ok := h.optionalProject(c, body.ProjectID, user.ID)
	if !ok {
		return nil
	}

	category := "competitor_gap"
	k := &models.Keyword{
		ProjectID:         project.ID,
		Keyword:           keyword,
		SearchVolume:      body.SearchVolume,
		Competition:       body.Competition,
		CPC:               body.CPC,
		KeywordDifficulty: body.KeywordDifficulty,
		Tags:              []string{"gap"},
		Category:          &category,
	}
	if err := h.db.CreateKeyword(c.Context(), k); err != nil {
		if errors.Is(err, db.ErrDuplicateKeyword) {
			return jsonError(c, fiber.StatusConflict, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to track keyword")
	}
	return jsonCreated(c, k)
}

// BacklinkModels maps provider backlinks to rows for projectID. At most
// backlinkFetchLimit rows are returned.
func BacklinkModels(projectID uuid.UUID, links []seo.Backlink, now time.Time) []models.Backlink {
	if len(links) > backlinkFetchLimit {
		links = links[:backlinkFetchLimit]
	}
	out := make([]models.Backlink, 0, len(links))
	for _, l := range links {
		b := models.Backlink{
			ProjectID:  projectID,
			SourceURL:  l.SourceURL,
			TargetURL:  l.TargetURL,
			DomainRank: l.DomainRank,
			LinkType:   models.LinkTypeNofollow,
			FirstSeen:  now,
			LastSeen:   now,
		}
		if l.Dofollow {
			b.LinkType = models.LinkTypeDofollow
		}
		if anchor := strings.TrimSpace(l.Anchor); anchor != "" {
			b.AnchorText = &anchor
		}
		if t, err := time.Parse(backlinkFirstSeenForm, l.FirstSeen); err == nil {
			b.FirstSeen = t
		}
		out = append(out, b)
	}
	return out
}
