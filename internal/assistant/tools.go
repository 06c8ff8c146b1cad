package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"seodesk/internal/db"
	"seodesk/internal/metrics"
	"seodesk/internal/models"
	"seodesk/internal/pageaudit"
	"seodesk/internal/validation"
)

// Tool names exposed to the model.
const (
	ToolGetUserProjects           = "get_user_projects"
	ToolGetProjectKeywords        = "get_project_keywords"
	ToolGetRankingHistory         = "get_ranking_history"
	ToolGetBacklinks              = "get_backlinks"
	ToolGetGSCData                = "get_gsc_data"
	ToolAnalyzeKeywordPerformance = "analyze_keyword_performance"
	ToolAnalyzePageSEO            = "analyze_page_seo"
)

const (
	defaultDays   = 30
	backlinkLimit = 1000
	gscRowLimit   = 1000
)

// Store is the data the tools read, always scoped by the calling user.
type Store interface {
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	GetProject(ctx context.Context, id, userID uuid.UUID) (*models.Project, error)
	ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error)
	GetKeyword(ctx context.Context, id, userID uuid.UUID) (*models.Keyword, error)
	ListRankings(ctx context.Context, keywordID uuid.UUID, since time.Time) ([]models.Ranking, error)
	ListProjectRankings(ctx context.Context, projectID uuid.UUID, since time.Time) ([]models.Ranking, error)
	ListBacklinks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Backlink, error)
	ListGSCRows(ctx context.Context, projectID uuid.UUID, since string, limit int) ([]models.GSCRow, error)
	CreatePageAudit(ctx context.Context, a *models.PageAudit) error
	SaveChatMessage(ctx context.Context, m *models.ChatMessage) error
}

// PageAnalyzer renders and audits a URL.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url, keyword string) (*pageaudit.Report, error)
}

var projectParam = &schema.ParameterInfo{
	Type:     schema.String,
	Desc:     "The UUID of the project",
	Required: true,
}

// Tools returns the tool schemas bound to the chat model.
func Tools() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolGetProjectKeywords,
			Desc: "Get all keywords for a specific project with their metrics",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"project_id": projectParam,
			}),
		},
		{
			Name: ToolGetRankingHistory,
			Desc: "Get historical ranking data for a keyword",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"keyword_id": {Type: schema.String, Desc: "The UUID of the keyword", Required: true},
				"days":       {Type: schema.Number, Desc: "Number of days of history to retrieve (default 30)"},
			}),
		},
		{
			Name:        ToolGetUserProjects,
			Desc:        "Get all projects for the current user",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: ToolGetBacklinks,
			Desc: "Get backlink data for a project",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"project_id": projectParam,
			}),
		},
		{
			Name: ToolGetGSCData,
			Desc: "Get Google Search Console data for a project",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"project_id": projectParam,
				"days":       {Type: schema.Number, Desc: "Number of days of data to retrieve (default 30)"},
			}),
		},
		{
			Name: ToolAnalyzeKeywordPerformance,
			Desc: "Analyze keyword performance and provide insights",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"project_id": projectParam,
			}),
		},
		{
			Name: ToolAnalyzePageSEO,
			Desc: "Analyze on-page SEO for a specific URL in a headless browser. Returns title, meta description, " +
				"headings, word count, image alt text analysis, internal/external links, schema markup, and keyword " +
				"optimization if target keyword provided. Works with JavaScript-heavy sites.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"url":            {Type: schema.String, Desc: "The full URL to analyze (e.g., https://example.com/page)", Required: true},
				"project_id":     {Type: schema.String, Desc: "Optional project ID to associate this audit with"},
				"target_keyword": {Type: schema.String, Desc: "Optional keyword to check in title, H1, meta and URL, and to calculate density"},
			}),
		},
	}
}

type toolArgs struct {
	ProjectID     string  `json:"project_id"`
	KeywordID     string  `json:"keyword_id"`
	Days          float64 `json:"days"`
	URL           string  `json:"url"`
	TargetKeyword string  `json:"target_keyword"`
}

func (a toolArgs) days() int {
	if a.Days < 1 {
		return defaultDays
	}
	return int(a.Days)
}

// toolError is returned to the model as {"error": ...}.
type toolError struct {
	msg string
}

func (e *toolError) Error() string { return e.msg }

func errorResult(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

// Performance summarises the latest ranking of every keyword in a project.
type Performance struct {
	TotalKeywords   int              `json:"total_keywords"`
	TrackedKeywords int              `json:"tracked_keywords"`
	AveragePosition float64          `json:"average_position"`
	Top3            int              `json:"top_3"`
	Top10           int              `json:"top_10"`
	Keywords        []models.Keyword `json:"keywords"`
}

// KeywordPerformance computes a Performance from keywords and their rankings
// ordered newest first.
func KeywordPerformance(keywords []models.Keyword, rankings []models.Ranking) Performance {
	known := make(map[uuid.UUID]bool, len(keywords))
	for _, k := range keywords {
		known[k.ID] = true
	}

	latest := make(map[uuid.UUID]int)
	for _, r := range rankings {
		if !known[r.KeywordID] {
			continue
		}
		if _, ok := latest[r.KeywordID]; !ok {
			latest[r.KeywordID] = r.RankPosition
		}
	}

	p := Performance{
		TotalKeywords:   len(keywords),
		TrackedKeywords: len(latest),
		Keywords:        keywords,
	}
	if p.Keywords == nil {
		p.Keywords = []models.Keyword{}
	}
	sum := 0
	for _, pos := range latest {
		sum += pos
		if pos <= 3 {
			p.Top3++
		}
		if pos <= 10 {
			p.Top10++
		}
	}
	if len(latest) > 0 {
		p.AveragePosition = float64(sum) / float64(len(latest))
	}
	return p
}

// PageSummary is the analyze_page_seo result.
type PageSummary struct {
	URL              string                     `json:"url"`
	Title            string                     `json:"title"`
	MetaDescription  string                     `json:"meta_description"`
	WordCount        int                        `json:"word_count"`
	ImagesTotal      int                        `json:"images_total"`
	ImagesWithoutAlt int                        `json:"images_without_alt"`
	InternalLinks    int                        `json:"internal_links"`
	ExternalLinks    int                        `json:"external_links"`
	HasSchemaMarkup  bool                       `json:"has_schema_markup"`
	SchemaTypes      []string                   `json:"schema_types"`
	KeywordAnalysis  *pageaudit.KeywordAnalysis `json:"keyword_analysis"`
	Issues           []string                   `json:"issues"`
	AuditID          uuid.UUID                  `json:"audit_id"`
}

// execute runs one tool call for userID and returns its JSON result. Failures
// are reported to the model as an error object.
func (a *Assistant) execute(ctx context.Context, userID uuid.UUID, call schema.ToolCall) string {
	name := call.Function.Name
	result, err := a.dispatch(ctx, userID, name, call.Function.Arguments)
	metrics.AssistantToolCalls.WithLabelValues(name, metrics.Outcome(err)).Inc()
	if err != nil {
		var te *toolError
		if errors.As(err, &te) {
			return errorResult(te.msg)
		}
		a.logger.Error("assistant tool failed", "tool", name, "user_id", userID, "error", err)
		return errorResult(err.Error())
	}

	b, err := json.Marshal(result)
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	return string(b)
}

func (a *Assistant) dispatch(ctx context.Context, userID uuid.UUID, name, rawArgs string) (any, error) {
	var args toolArgs
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, &toolError{msg: "Invalid tool arguments"}
		}
	}

	switch name {
	case ToolGetUserProjects:
		return a.store.ListProjects(ctx, userID)

	case ToolGetProjectKeywords:
		project, err := a.project(ctx, userID, args.ProjectID)
		if err != nil {
			return nil, err
		}
		return a.store.ListKeywords(ctx, project.ID)

	case ToolGetRankingHistory:
		id, err := uuid.Parse(args.KeywordID)
		if err != nil {
			return nil, &toolError{msg: "Invalid keyword_id"}
		}
		keyword, err := a.store.GetKeyword(ctx, id, userID)
		if errors.Is(err, db.ErrKeywordNotFound) {
			return nil, &toolError{msg: "Keyword not found"}
		}
		if err != nil {
			return nil, err
		}
		rankings, err := a.store.ListRankings(ctx, keyword.ID, a.now().AddDate(0, 0, -args.days()))
		if err != nil {
			return nil, err
		}
		slices.Reverse(rankings)
		return rankings, nil

	case ToolGetBacklinks:
		project, err := a.project(ctx, userID, args.ProjectID)
		if err != nil {
			return nil, err
		}
		links, err := a.store.ListBacklinks(ctx, project.ID, backlinkLimit)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(links, func(b models.Backlink) bool { return b.IsLost }), nil

	case ToolGetGSCData:
		project, err := a.project(ctx, userID, args.ProjectID)
		if err != nil {
			return nil, err
		}
		since := a.now().UTC().AddDate(0, 0, -args.days()).Format(time.DateOnly)
		return a.store.ListGSCRows(ctx, project.ID, since, gscRowLimit)

	case ToolAnalyzeKeywordPerformance:
		project, err := a.project(ctx, userID, args.ProjectID)
		if err != nil {
			return nil, err
		}
		keywords, err := a.store.ListKeywords(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		rankings, err := a.store.ListProjectRankings(ctx, project.ID, time.Time{})
		if err != nil {
			return nil, err
		}
		return KeywordPerformance(keywords, rankings), nil

	case ToolAnalyzePageSEO:
		return a.analyzePage(ctx, userID, args)

	default:
		return nil, &toolError{msg: "Unknown tool"}
	}
}

func (a *Assistant) project(ctx context.Context, userID uuid.UUID, rawID string) (*models.Project, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, &toolError{msg: "Invalid project_id"}
	}
	p, err := a.store.GetProject(ctx, id, userID)
	if errors.Is(err, db.ErrProjectNotFound) {
		return nil, &toolError{msg: "Project not found"}
	}
	return p, err
}

func (a *Assistant) analyzePage(ctx context.Context, userID uuid.UUID, args toolArgs) (*PageSummary, error) {
	if a.analyzer == nil {
		return nil, &toolError{msg: "Page analyzer is not configured"}
	}
	if ok, msg := validation.ValidateURLForFetch(args.URL); !ok {
		return nil, &toolError{msg: msg}
	}

	var projectID *uuid.UUID
	if args.ProjectID != "" {
		project, err := a.project(ctx, userID, args.ProjectID)
		if err != nil {
			return nil, err
		}
		projectID = &project.ID
	}

	report, err := a.analyzer.Analyze(ctx, args.URL, args.TargetKeyword)
	if err != nil {
		return nil, &toolError{msg: "Failed to analyze page: " + err.Error()}
	}

	audit := report.Audit(userID, projectID, a.now())
	if err := a.store.CreatePageAudit(ctx, audit); err != nil {
		return nil, fmt.Errorf("save page audit: %w", err)
	}
	metrics.RecordUsage(&userID, models.APIPageAnalyzer, "analyze_page", 1, map[string]string{"url": args.URL})

	return &PageSummary{
		URL:              report.URL,
		Title:            report.Title,
		MetaDescription:  report.MetaDescription,
		WordCount:        report.WordCount,
		ImagesTotal:      len(report.Images),
		ImagesWithoutAlt: report.ImagesNoAlt,
		InternalLinks:    len(report.InternalLinks),
		ExternalLinks:    len(report.ExternalLinks),
		HasSchemaMarkup:  len(report.SchemaTypes) > 0,
		SchemaTypes:      report.SchemaTypes,
		KeywordAnalysis:  report.Keyword,
		Issues:           report.Issues(),
		AuditID:          audit.ID,
	}, nil
}
