package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seodesk/internal/assistant"
	"seodesk/internal/cache"
	"seodesk/internal/config"
	"seodesk/internal/dataforseo"
	"seodesk/internal/db"
	"seodesk/internal/gsc"
	"seodesk/internal/jobs"
	"seodesk/internal/logging"
	"seodesk/internal/metrics"
	"seodesk/internal/outreach"
	"seodesk/internal/pageaudit"
	"seodesk/internal/server"
)

const (
	webhookTimeout = 30 * time.Second
	llmTimeout     = 2 * time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		fatal("failed to load config file", err)
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		fatal("failed to run migrations", err)
	}
	slog.Info("migrations completed")

	metrics.Init(database)
	defer metrics.Flush()

	deps := server.Deps{DB: database}

	var providerCache *cache.RedisCache
	if cfg.RedisURL != "" {
		providerCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, provider cache disabled", "error", err)
		} else {
			defer providerCache.Close()
			deps.Redis = providerCache
		}
	}

	var provider *dataforseo.Client
	if cfg.HasDataForSEO() {
		opts := []dataforseo.Option{
			dataforseo.WithBaseURL(cfg.DataForSEOBaseURL),
			dataforseo.WithRateLimit(cfg.DataForSEORateLimit),
		}
		if providerCache != nil && cfg.DataForSEOCacheTTL > 0 {
			opts = append(opts, dataforseo.WithCache(providerCache, cfg.DataForSEOCacheTTL))
		}
		provider = dataforseo.NewClient(cfg.DataForSEOLogin, cfg.DataForSEOPassword, opts...)

		deps.Provider = provider
		deps.Finder = outreach.NewFinder(provider, provider, yamlCfg.Outreach)

		rankChecker := jobs.NewRankChecker(database, provider, yamlCfg.RankCheck, yamlCfg.Jobs.RankCheckInterval)
		deps.RankJob = rankChecker
		if cfg.EnableJobs {
			go rankChecker.Start(ctx)
		}
	} else {
		slog.Warn("DataForSEO credentials not set, keyword research and outreach discovery disabled")
	}

	deps.Campaigns = outreach.NewService(database, outreach.NewHTTPWebhook(webhookTimeout, cfg.OutreachWebhookSecret), cfg.CallbackURL())

	if cfg.HasGSC() {
		client := gsc.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		deps.GSC = client

		gscSync := jobs.NewGSCSync(database, client, yamlCfg.Jobs.GSCSyncDays, yamlCfg.Jobs.GSCSyncInterval)
		deps.GSCJob = gscSync
		if cfg.EnableJobs {
			go gscSync.Start(ctx)
		}
	} else {
		slog.Warn("Google OAuth credentials not set, Search Console disabled")
	}

	analyzer := pageaudit.NewAnalyzer(pageaudit.NewChromeRenderer(cfg.ChromePath, cfg.PageTimeout))
	deps.Analyzer = analyzer

	if cfg.LLMAPIKey != "" {
		chatModel, err := assistant.NewOpenAIModel(ctx, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, llmTimeout)
		if err != nil {
			fatal("failed to create chat model", err)
		}
		a, err := assistant.New(chatModel, database, analyzer)
		if err != nil {
			fatal("failed to create assistant", err)
		}
		deps.Chatter = a
	} else {
		slog.Warn("LLM_API_KEY not set, assistant disabled")
	}

	srv := server.New(cfg)
	if err := srv.RegisterRoutes(ctx, deps); err != nil {
		fatal("failed to register routes", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	cancel()
	if err := srv.Shutdown(); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server exited")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
