// Package outreach finds link-building targets for a keyword and runs
// outreach campaigns through an external workflow engine.
package outreach

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"seodesk/internal/config"
	"seodesk/internal/models"
	"seodesk/internal/seo"
	"seodesk/internal/validation"
)

// SERPFetcher returns the top organic results for a keyword.
type SERPFetcher interface {
	TopOrganic(ctx context.Context, keyword string, loc seo.Locale, depth int) ([]seo.OrganicResult, error)
}

// ReferringDomainFetcher returns the domains linking to a target.
type ReferringDomainFetcher interface {
	ReferringDomains(ctx context.Context, target string, limit int) ([]seo.ReferringDomain, error)
}

const (
	pointsPerCompetitor = 20
	maxRankPoints       = 50
	guestPostThreshold  = 40
)

// Attribution records one competitor a referring domain links to.
type Attribution struct {
	Competitor string `json:"competitor"`
	Backlinks  int    `json:"backlinks_count"`
	Rank       int    `json:"rank"`
}

// TargetMetrics are the provider figures attached to a target.
type TargetMetrics struct {
	DomainRating     float64 `json:"domain_rating"`
	MonthlyTraffic   int     `json:"monthly_traffic"`
	ReferringDomains int     `json:"referring_domains"`
}

// Target is a scored outreach candidate.
type Target struct {
	Domain          string        `json:"domain"`
	TargetURL       string        `json:"target_url"`
	TargetScore     float64       `json:"target_score"`
	Metrics         TargetMetrics `json:"metrics"`
	LinkingTo       []Attribution `json:"linking_to"`
	WhyTargeted     string        `json:"why_targeted"`
	OutreachAngle   string        `json:"outreach_angle"`
	PitchHook       string        `json:"pitch_hook"`
	ResearchPrompts []string      `json:"research_prompts"`
}

// Result is the outcome of one FindTargets run.
type Result struct {
	Keyword             string   `json:"keyword"`
	YourDomain          string   `json:"your_domain"`
	Competitors         []string `json:"competitors"`
	CompetitorsAnalyzed int      `json:"competitors_analyzed"`
	TotalTargetsFound   int      `json:"total_targets_found"`
	Targets             []Target `json:"targets"`
	CreditsUsed         int      `json:"credits_used"`
}

// Finder scores referring domains shared by the competitors ranking for a keyword.
type Finder struct {
	serp   SERPFetcher
	refs   ReferringDomainFetcher
	cfg    config.OutreachConfig
	locale seo.Locale
}

// MaxTargets caps the targets returned by one search.
const MaxTargets = 10

// NewFinder creates a Finder. Zero limits in cfg fall back to the YAML defaults.
func NewFinder(serp SERPFetcher, refs ReferringDomainFetcher, cfg config.OutreachConfig) *Finder {
	if cfg.Blacklist == nil {
		cfg.Blacklist = config.DefaultBlacklist
	}
	if cfg.MaxCompetitors <= 0 {
		cfg.MaxCompetitors = 5
	}
	if cfg.MaxTargets <= 0 || cfg.MaxTargets > MaxTargets {
		cfg.MaxTargets = MaxTargets
	}
	if cfg.SERPDepth <= 0 {
		cfg.SERPDepth = 20
	}
	if cfg.ReferringLimit <= 0 {
		cfg.ReferringLimit = 500
	}
	return &Finder{serp: serp, refs: refs, cfg: cfg, locale: seo.Locale{}.WithDefaults()}
}

// WithLocale returns a copy of f that queries SERPs in loc.
func (f *Finder) WithLocale(loc seo.Locale) *Finder {
	cp := *f
	cp.locale = loc.WithDefaults()
	return &cp
}

// IsBlacklisted reports whether domain contains any blacklist entry.
func (f *Finder) IsBlacklisted(domain string) bool {
	domain = strings.ToLower(domain)
	for _, entry := range f.cfg.Blacklist {
		if entry != "" && strings.Contains(domain, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}

func (f *Finder) excluded(domain, own string) bool {
	d := validation.CleanDomain(domain)
	return d == "" || (own != "" && d == own) || f.IsBlacklisted(d)
}

// FindTargets runs the link-intersect search for keyword. Provider failures
// never surface as errors: a failed SERP fetch yields an empty result and a
// failed referring-domain fetch drops that competitor.
func (f *Finder) FindTargets(ctx context.Context, keyword, yourDomain string) (*Result, error) {
	own := validation.CleanDomain(yourDomain)
	res := &Result{
		Keyword:     keyword,
		YourDomain:  own,
		Competitors: []string{},
		Targets:     []Target{},
		CreditsUsed: 1,
	}

	organic, err := f.serp.TopOrganic(ctx, keyword, f.locale, f.cfg.SERPDepth)
	if err != nil {
		slog.Error("outreach serp fetch failed", "keyword", keyword, "error", err)
		return res, nil
	}
	if len(organic) > f.cfg.SERPDepth {
		organic = organic[:f.cfg.SERPDepth]
	}
	slog.Info("outreach serp fetched", "keyword", keyword, "organic", len(organic))

	for _, item := range organic {
		if len(res.Competitors) == f.cfg.MaxCompetitors {
			break
		}
		d := strings.ToLower(item.Domain)
		if f.excluded(d, own) || slices.Contains(res.Competitors, d) {
			continue
		}
		res.Competitors = append(res.Competitors, d)
	}
	res.CompetitorsAnalyzed = len(res.Competitors)
	res.CreditsUsed = 1 + res.CompetitorsAnalyzed

	slots := f.fetchReferringDomains(ctx, res.Competitors)
	targets := f.score(keyword, own, res.Competitors, slots)

	res.TotalTargetsFound = len(targets)
	if len(targets) > f.cfg.MaxTargets {
		targets = targets[:f.cfg.MaxTargets]
	}
	res.Targets = targets

	slog.Info("outreach targets found", "keyword", keyword, "competitors", res.CompetitorsAnalyzed,
		"found", res.TotalTargetsFound, "returned", len(res.Targets))
	return res, nil
}

// fetchReferringDomains fetches every competitor in parallel; slot i holds
// competitor i's domains, nil when the fetch failed.
func (f *Finder) fetchReferringDomains(ctx context.Context, competitors []string) [][]seo.ReferringDomain {
	slots := make([][]seo.ReferringDomain, len(competitors))
	var g errgroup.Group
	for i, competitor := range competitors {
		g.Go(func() error {
			domains, err := f.refs.ReferringDomains(ctx, competitor, f.cfg.ReferringLimit)
			if err != nil {
				slog.Warn("referring domains fetch failed", "competitor", competitor, "error", err)
				return nil
			}
			slots[i] = domains
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (f *Finder) score(keyword, own string, competitors []string, slots [][]seo.ReferringDomain) []Target {
	var order []string
	linking := make(map[string][]Attribution)

	for i, domains := range slots {
		for _, rd := range domains {
			d := strings.ToLower(rd.Domain)
			if d == "" {
				continue
			}
			if _, seen := linking[d]; !seen {
				order = append(order, d)
			}
			// One attribution per competitor, even when the provider lists a domain twice.
			if slices.ContainsFunc(linking[d], func(a Attribution) bool { return a.Competitor == competitors[i] }) {
				continue
			}
			linking[d] = append(linking[d], Attribution{Competitor: competitors[i], Backlinks: rd.Backlinks, Rank: rd.Rank})
		}
	}

	targets := make([]Target, 0, len(order))
	for _, d := range order {
		if f.excluded(d, own) {
			continue
		}
		targets = append(targets, BuildTarget(d, keyword, linking[d]))
	}

	slices.SortStableFunc(targets, func(a, b Target) int {
		switch {
		case a.TargetScore > b.TargetScore:
			return -1
		case a.TargetScore < b.TargetScore:
			return 1
		}
		return 0
	})
	return targets
}

// Score is linked competitors * 20 plus the average authority rank / 10, the
// second term capped at 50.
func Score(linkingTo []Attribution) float64 {
	if len(linkingTo) == 0 {
		return 0
	}
	var rankSum int
	for _, a := range linkingTo {
		rankSum += a.Rank
	}
	avg := float64(rankSum) / float64(len(linkingTo))
	return float64(len(linkingTo)*pointsPerCompetitor) + min(avg/10, maxRankPoints)
}

// Angle classifies a target by score.
func Angle(score float64) string {
	if score >= guestPostThreshold {
		return models.AngleGuestPost
	}
	return models.AngleResourceUpdate
}

// BuildTarget scores domain and renders its rationale, pitch hook and research prompts.
func BuildTarget(domain, keyword string, linkingTo []Attribution) Target {
	score := Score(linkingTo)

	var rankSum, backlinks int
	names := make([]string, len(linkingTo))
	for i, a := range linkingTo {
		rankSum += a.Rank
		backlinks += a.Backlinks
		names[i] = a.Competitor
	}

	return Target{
		Domain:      domain,
		TargetURL:   "https://" + domain,
		TargetScore: score,
		Metrics: TargetMetrics{
			DomainRating:     float64(rankSum) / float64(max(len(linkingTo), 1)),
			ReferringDomains: backlinks,
		},
		LinkingTo:       linkingTo,
		WhyTargeted:     whyTargeted(keyword, names),
		OutreachAngle:   Angle(score),
		PitchHook:       pitchHook(names),
		ResearchPrompts: ResearchPrompts(domain, keyword),
	}
}

func whyTargeted(keyword string, competitors []string) string {
	switch {
	case len(competitors) >= 3:
		return fmt.Sprintf("Links to %d of your competitors (%s)", len(competitors), strings.Join(competitors, ", "))
	case len(competitors) == 2:
		return "Links to " + strings.Join(competitors, " and ")
	case len(competitors) == 1:
		return fmt.Sprintf("Links to %s (top ranker for \"%s\")", competitors[0], keyword)
	}
	return ""
}

func pitchHook(competitors []string) string {
	if len(competitors) >= 2 {
		return fmt.Sprintf("They recommend %d competitors but are missing your unique value prop", len(competitors))
	}
	if len(competitors) == 1 {
		return fmt.Sprintf("They mention %s, would benefit from your alternative perspective", competitors[0])
	}
	return ""
}

// ResearchPrompts are the questions the workflow engine researches per target.
func ResearchPrompts(domain, keyword string) []string {
	return []string{
		fmt.Sprintf("What are the main topics and categories covered on %s?", domain),
		fmt.Sprintf("Who writes content for %s and what is their typical writing style?", domain),
		fmt.Sprintf("What tools, products, or resources does %s currently recommend in the %s niche?", domain, keyword),
		fmt.Sprintf("Are there any content gaps or missing topics on %s related to %s?", domain, keyword),
		fmt.Sprintf("What is the contact information for editorial team or content submissions at %s?", domain),
	}
}

// Records converts targets to their persisted form.
func Records(targets []Target) []models.OutreachTargetRecord {
	out := make([]models.OutreachTargetRecord, len(targets))
	for i, t := range targets {
		out[i] = models.OutreachTargetRecord{
			Domain:            strings.ToLower(t.Domain),
			TargetURL:         t.TargetURL,
			TargetScore:       t.TargetScore,
			DomainRating:      t.Metrics.DomainRating,
			ReferringDomains:  t.Metrics.ReferringDomains,
			LinkedCompetitors: len(t.LinkingTo),
			WhyTargeted:       t.WhyTargeted,
			OutreachAngle:     t.OutreachAngle,
			PitchHook:         t.PitchHook,
			ResearchPrompts:   t.ResearchPrompts,
			Status:            models.TargetPending,
		}
	}
	return out
}
