package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"seodesk/internal/config"
	"seodesk/internal/dataforseo"
	"seodesk/internal/metrics"
	"seodesk/internal/models"
	"seodesk/internal/seo"
	"seodesk/internal/validation"
)

// RankCheckJob is the job name used in logs and metrics.
const RankCheckJob = "daily_rank_check"

// SERPSource fetches organic results for a keyword.
type SERPSource interface {
	SERP(ctx context.Context, req dataforseo.SERPRequest) (*seo.SERP, error)
}

// RankStore is what the rank checker reads and writes.
type RankStore interface {
	ListAllProjects(ctx context.Context) ([]models.Project, error)
	ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error)
	InsertRanking(ctx context.Context, r *models.Ranking) error
}

// RankCheckResult summarises one run.
type RankCheckResult struct {
	KeywordsChecked int       `json:"keywords_checked"`
	TotalChecked    int       `json:"total_checked"` // rankings stored
	TotalErrors     int       `json:"total_errors"`
	Timestamp       time.Time `json:"timestamp"`
}

// RankChecker checks every tracked keyword of every project against the SERP.
type RankChecker struct {
	store    RankStore
	serp     SERPSource
	cfg      config.RankCheckConfig
	interval time.Duration
	now      func() time.Time
}

// NewRankChecker creates a rank checker. Provider rate limiting is applied by serp.
func NewRankChecker(store RankStore, serp SERPSource, cfg config.RankCheckConfig, interval time.Duration) *RankChecker {
	return &RankChecker{store: store, serp: serp, cfg: cfg, interval: interval, now: time.Now}
}

// Start runs the check on the configured interval until ctx is cancelled.
func (r *RankChecker) Start(ctx context.Context) {
	loop(ctx, RankCheckJob, r.interval, func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)
		return err
	})
}

// RunOnce checks all keywords. Per-keyword failures are counted and skipped;
// only failing to list projects aborts the run.
func (r *RankChecker) RunOnce(ctx context.Context) (*RankCheckResult, error) {
	projects, err := r.store.ListAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	res := &RankCheckResult{}
	for _, p := range projects {
		keywords, err := r.store.ListKeywords(ctx, p.ID)
		if err != nil {
			slog.Error("rank check: failed to list keywords", "project_id", p.ID, "error", err)
			res.TotalErrors++
			continue
		}

		for _, k := range keywords {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			res.KeywordsChecked++

			stored, err := r.checkKeyword(ctx, p, k)
			if err != nil {
				slog.Error("rank check: keyword failed", "project_id", p.ID, "keyword", k.Keyword, "error", err)
				res.TotalErrors++
				continue
			}
			if stored {
				res.TotalChecked++
			}
		}
	}

	res.Timestamp = r.now()
	slog.Info("rank check complete", "checked", res.TotalChecked, "errors", res.TotalErrors)
	return res, nil
}

func (r *RankChecker) checkKeyword(ctx context.Context, p models.Project, k models.Keyword) (bool, error) {
	loc := seo.Locale{LocationCode: p.TargetLocation, LanguageCode: p.TargetLanguage}.WithDefaults()
	serp, err := r.serp.SERP(ctx, dataforseo.SERPRequest{
		Keyword: k.Keyword,
		Locale:  loc,
		Device:  r.cfg.Device,
		Depth:   r.cfg.Depth,
	})
	metrics.RecordUsage(&p.UserID, models.APIDataForSEO, "serp_check", 1, map[string]any{
		"keyword": k.Keyword, "domain": p.Domain, "source": RankCheckJob,
	})
	if err != nil {
		return false, err
	}

	hit := seo.FindRank(serp.Items, validation.CleanDomain(p.Domain))
	if hit == nil {
		return false, nil
	}

	url := hit.URL
	ranking := &models.Ranking{
		KeywordID:    k.ID,
		ProjectID:    p.ID,
		RankPosition: hit.RankAbsolute,
		RankURL:      &url,
		RankAbsolute: hit.RankAbsolute,
		Device:       r.cfg.Device,
		LocationCode: loc.LocationCode,
		LanguageCode: loc.LanguageCode,
	}
	if err := r.store.InsertRanking(ctx, ranking); err != nil {
		return false, fmt.Errorf("save ranking: %w", err)
	}
	return true, nil
}
