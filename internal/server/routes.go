package server

import (
	"context"
	"errors"

	"seodesk/internal/db"
	"seodesk/internal/gsc"
	"seodesk/internal/handlers"
	"seodesk/internal/handlers/api"
	"seodesk/internal/middleware"
	"seodesk/internal/outreach"
)

// Deps holds the services the routes are wired to. Optional services are
// left nil when not configured and their endpoints answer 503.
type Deps struct {
	DB        *db.DB
	Redis     api.Pinger
	Provider  api.Provider
	Finder    *outreach.Finder
	Campaigns *outreach.Service
	GSC       *gsc.Client
	Chatter   api.Chatter
	Analyzer  api.PageAnalyzer
	RankJob   api.RankCheckRunner
	GSCJob    api.GSCSyncRunner
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	if s.Cfg.OIDCIssuer == "" {
		return errors.New("OIDC_ISSUER is required")
	}

	database := deps.DB
	authMiddleware := middleware.NewAuthMiddleware(database)

	authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, database)
	if err != nil {
		return err
	}
	pageHandler := handlers.NewPageHandler(database)

	healthHandler := api.NewHealthHandler(database, deps.Redis)
	projectHandler := api.NewProjectHandler(database)
	keywordHandler := api.NewKeywordHandler(database)
	competitorHandler := api.NewCompetitorHandler(database)
	dataforseoHandler := api.NewDataForSEOHandler(database, deps.Provider)
	outreachHandler := api.NewOutreachHandler(database, deps.Finder, deps.Campaigns, s.Cfg.N8NWebhookURL, s.Cfg.OutreachWebhookSecret)
	gscHandler := api.NewGSCHandler(database, deps.GSC)
	chatHandler := api.NewChatHandler(deps.Chatter, database)
	auditHandler := api.NewAuditHandler(database, deps.Analyzer)
	cronHandler := api.NewCronHandler(deps.RankJob, deps.GSCJob)

	s.App.Get("/healthz", healthHandler.Check)

	// Auth routes
	s.App.Get("/login", pageHandler.Login)
	s.App.Get("/auth/login", authHandler.Login)
	s.App.Get("/auth/callback", authHandler.Callback)
	s.App.Get("/auth/logout", authHandler.Logout)

	// Pages
	s.App.Get("/", authMiddleware.RequireAuth, pageHandler.Dashboard)
	s.App.Get("/projects", authMiddleware.RequireAuth, pageHandler.Projects)
	s.App.Get("/projects/:id", authMiddleware.RequireAuth, pageHandler.Project)
	s.App.Get("/audits", authMiddleware.RequireAuth, pageHandler.Audits)
	s.App.Get("/assistant", authMiddleware.RequireAuth, pageHandler.Assistant)

	// Routes under /api that do not take an API session.
	// These must be registered before the authenticated group.
	s.App.Get("/api/outreach/webhook-callback", outreachHandler.CallbackInfo)
	s.App.Post("/api/outreach/webhook-callback", outreachHandler.Callback)

	cron := s.App.Group("/api/cron", middleware.CronAuth(s.Cfg.CronSecret))
	cron.Get("/daily-rank-check", cronHandler.DailyRankCheck)
	cron.Get("/gsc-sync", cronHandler.GSCSync)

	// Browser redirects through Google consent.
	s.App.Get("/api/gsc/auth", authMiddleware.RequireAuth, gscHandler.Auth)
	s.App.Get("/api/gsc/callback", authMiddleware.RequireAuth, gscHandler.Callback)

	apiGroup := s.App.Group("/api", authMiddleware.RequireAPIAuth)

	apiGroup.Get("/projects", projectHandler.List)
	apiGroup.Post("/projects", projectHandler.Create)
	apiGroup.Get("/projects/:id", projectHandler.Get)
	apiGroup.Put("/projects/:id", projectHandler.Update)
	apiGroup.Delete("/projects/:id", projectHandler.Delete)
	apiGroup.Get("/projects/:id/stats", projectHandler.Stats)
	apiGroup.Get("/projects/:id/backlinks", projectHandler.Backlinks)
	apiGroup.Get("/projects/:id/campaigns", projectHandler.Campaigns)
	apiGroup.Get("/projects/:id/gsc", gscHandler.Data)

	apiGroup.Get("/projects/:id/keywords", keywordHandler.List)
	apiGroup.Post("/projects/:id/keywords", keywordHandler.Create)
	apiGroup.Delete("/keywords/:id", keywordHandler.Delete)
	apiGroup.Get("/keywords/:id/rankings", keywordHandler.Rankings)

	apiGroup.Get("/projects/:id/competitors", competitorHandler.List)
	apiGroup.Post("/projects/:id/competitors", competitorHandler.Create)
	apiGroup.Delete("/competitors/:id", competitorHandler.Delete)

	dfs := apiGroup.Group("/dataforseo")
	dfs.Post("/keywords", dataforseoHandler.Keywords)
	dfs.Post("/ideas", dataforseoHandler.Ideas)
	dfs.Post("/rankings", dataforseoHandler.Rankings)
	dfs.Post("/backlinks", dataforseoHandler.Backlinks)
	dfs.Post("/keywords-for-site", dataforseoHandler.KeywordsForSite)
	dfs.Post("/keyword-gap", dataforseoHandler.KeywordGap)
	dfs.Post("/keyword-gap/track", dataforseoHandler.TrackGapKeyword)

	out := apiGroup.Group("/outreach")
	out.Post("/find-targets", outreachHandler.FindTargets)
	out.Post("/launch-campaign", outreachHandler.LaunchCampaign)
	out.Get("/campaigns/:id", outreachHandler.GetCampaign)
	out.Put("/campaigns/:id/status", outreachHandler.UpdateCampaignStatus)
	out.Get("/templates", outreachHandler.ListTemplates)
	out.Post("/templates", outreachHandler.CreateTemplate)
	out.Delete("/templates/:id", outreachHandler.DeleteTemplate)

	apiGroup.Post("/gsc/sync", gscHandler.Sync)

	apiGroup.Post("/chat", chatHandler.Chat)
	apiGroup.Get("/chat/history", chatHandler.History)

	apiGroup.Post("/analyze-page", auditHandler.Analyze)
	apiGroup.Get("/audits", auditHandler.List)

	return nil
}
